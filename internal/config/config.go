// Package config handles configuration loading for promptsmith.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/promptsmith/internal/condition"
)

// Config holds all configuration for promptsmith.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Bedrock   BedrockConfig   `mapstructure:"bedrock"`
	Models    ModelsConfig    `mapstructure:"models"`
	Cycle     CycleConfig     `mapstructure:"cycle"`
	Paths     PathsConfig     `mapstructure:"paths"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// BedrockConfig holds AWS Bedrock settings. When enabled, requests go
// through Bedrock instead of the Anthropic API.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
}

// ModelsConfig selects the model for each role in a round.
type ModelsConfig struct {
	Agent    string `mapstructure:"agent"`
	Judge    string `mapstructure:"judge"`
	Improver string `mapstructure:"improver"`
}

// CycleConfig holds the improvement loop policy.
type CycleConfig struct {
	// TargetScore terminates the cycle once reached; 0 disables it.
	TargetScore float64 `mapstructure:"target_score"`
	// MaxRounds caps the number of rounds; 0 disables the cap.
	MaxRounds int `mapstructure:"max_rounds"`
	// MaxCost caps total spend in dollars; 0 disables the cap.
	MaxCost float64 `mapstructure:"max_cost"`
	// NoImprovementRounds stops after this many consecutive rounds
	// without improvement; 0 disables the check.
	NoImprovementRounds int `mapstructure:"no_improvement_rounds"`
	// MinDelta is the score gain below which a round counts as
	// non-improving.
	MinDelta float64 `mapstructure:"min_delta"`
	// AutoApprove runs without human review, approving every suggestion.
	AutoApprove bool `mapstructure:"auto_approve"`
	// VersionBump is the semver component bumped per improving round.
	VersionBump string `mapstructure:"version_bump"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// SessionsDir is where session history files are written.
	SessionsDir string `mapstructure:"sessions_dir"`
	// RunIndex is the SQLite run index path.
	RunIndex string `mapstructure:"run_index"`
	// SignalsDir is watched for stop and pause signal files.
	SignalsDir string `mapstructure:"signals_dir"`
}

// Conditions builds the termination conditions the cycle policy
// enables. Disabled limits produce no condition.
func (c CycleConfig) Conditions() ([]condition.Condition, error) {
	var conds []condition.Condition

	if c.TargetScore > 0 {
		cond, err := condition.TargetScore(c.TargetScore)
		if err != nil {
			return nil, fmt.Errorf("target_score: %w", err)
		}
		conds = append(conds, cond)
	}
	if c.MaxRounds > 0 {
		cond, err := condition.MaxRounds(c.MaxRounds)
		if err != nil {
			return nil, fmt.Errorf("max_rounds: %w", err)
		}
		conds = append(conds, cond)
	}
	if c.MaxCost > 0 {
		cond, err := condition.MaxCost(c.MaxCost)
		if err != nil {
			return nil, fmt.Errorf("max_cost: %w", err)
		}
		conds = append(conds, cond)
	}
	if c.NoImprovementRounds > 0 {
		cond, err := condition.NoImprovement(c.NoImprovementRounds, c.MinDelta)
		if err != nil {
			return nil, fmt.Errorf("no_improvement_rounds: %w", err)
		}
		conds = append(conds, cond)
	}

	return conds, nil
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.promptsmith.yaml in current directory or parent)
// 3. User config (~/.config/promptsmith/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("bedrock.enabled", "PROMPTSMITH_USE_BEDROCK")
	v.BindEnv("bedrock.region", "AWS_REGION")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("bedrock.enabled", cfg.Bedrock.Enabled)
	v.Set("bedrock.region", cfg.Bedrock.Region)
	v.Set("models.agent", cfg.Models.Agent)
	v.Set("models.judge", cfg.Models.Judge)
	v.Set("models.improver", cfg.Models.Improver)
	v.Set("cycle.target_score", cfg.Cycle.TargetScore)
	v.Set("cycle.max_rounds", cfg.Cycle.MaxRounds)
	v.Set("cycle.max_cost", cfg.Cycle.MaxCost)
	v.Set("cycle.no_improvement_rounds", cfg.Cycle.NoImprovementRounds)
	v.Set("cycle.min_delta", cfg.Cycle.MinDelta)
	v.Set("cycle.auto_approve", cfg.Cycle.AutoApprove)
	v.Set("cycle.version_bump", cfg.Cycle.VersionBump)
	v.Set("paths.sessions_dir", cfg.Paths.SessionsDir)
	v.Set("paths.run_index", cfg.Paths.RunIndex)
	v.Set("paths.signals_dir", cfg.Paths.SignalsDir)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("bedrock.enabled", false)
	v.SetDefault("bedrock.region", "us-east-1")

	v.SetDefault("models.agent", "claude-sonnet-4-20250514")
	v.SetDefault("models.judge", "claude-sonnet-4-20250514")
	v.SetDefault("models.improver", "claude-opus-4-20250514")

	v.SetDefault("cycle.target_score", 90.0)
	v.SetDefault("cycle.max_rounds", 10)
	v.SetDefault("cycle.max_cost", 5.0)
	v.SetDefault("cycle.no_improvement_rounds", 3)
	v.SetDefault("cycle.min_delta", 0.0)
	v.SetDefault("cycle.auto_approve", false)
	v.SetDefault("cycle.version_bump", "patch")

	v.SetDefault("paths.sessions_dir", defaultDataPath("sessions"))
	v.SetDefault("paths.run_index", defaultDataPath("runs.db"))
	v.SetDefault("paths.signals_dir", defaultDataPath("signals"))
}

// defaultDataPath returns a path under the XDG data directory.
func defaultDataPath(name string) string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", ".promptsmith", name)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "promptsmith", name)
}

// getUserConfigDir returns the XDG config directory for promptsmith.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "promptsmith")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "promptsmith")
	}
	return filepath.Join(home, ".config", "promptsmith")
}

// findProjectConfig searches for .promptsmith.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".promptsmith.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Bedrock: BedrockConfig{Region: "us-east-1"},
		Models: ModelsConfig{
			Agent:    "claude-sonnet-4-20250514",
			Judge:    "claude-sonnet-4-20250514",
			Improver: "claude-opus-4-20250514",
		},
		Cycle: CycleConfig{
			TargetScore:         90.0,
			MaxRounds:           10,
			MaxCost:             5.0,
			NoImprovementRounds: 3,
			VersionBump:         "patch",
		},
		Paths: PathsConfig{
			SessionsDir: defaultDataPath("sessions"),
			RunIndex:    defaultDataPath("runs.db"),
			SignalsDir:  defaultDataPath("signals"),
		},
	}
}
