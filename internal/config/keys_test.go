package config

import (
	"errors"
	"os"
	"testing"
)

func TestGetAPIKey(t *testing.T) {
	originalKey := os.Getenv("ANTHROPIC_API_KEY")
	defer os.Setenv("ANTHROPIC_API_KEY", originalKey)

	t.Run("from environment variable", func(t *testing.T) {
		os.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-key")

		key, err := GetAPIKey(&Config{})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-test-key" {
			t.Errorf("expected 'sk-ant-test-key', got %q", key)
		}
	})

	t.Run("from config", func(t *testing.T) {
		os.Unsetenv("ANTHROPIC_API_KEY")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-config-key" {
			t.Errorf("expected 'sk-ant-config-key', got %q", key)
		}
	})

	t.Run("unresolved reference counts as unset", func(t *testing.T) {
		os.Unsetenv("ANTHROPIC_API_KEY")
		os.Unsetenv("PROMPTSMITH_TEST_MISSING_KEY")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${PROMPTSMITH_TEST_MISSING_KEY}"}}
		if _, err := GetAPIKey(cfg); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("missing everywhere", func(t *testing.T) {
		os.Unsetenv("ANTHROPIC_API_KEY")

		if _, err := GetAPIKey(nil); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"empty", "", "(not set)"},
		{"short", "sk-ant-short", "***"},
		{"full", "sk-ant-REDACTED", "sk-ant-...1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
