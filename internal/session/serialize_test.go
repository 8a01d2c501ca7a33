package session

import (
	"errors"
	"testing"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

func samplePrompt() models.AgentPrompt {
	return models.AgentPrompt{
		ID:           "summarizer",
		Version:      "1.0.0",
		System:       "You summarize text.",
		UserTemplate: "Summarize: {{text}}",
		CustomFields: map[string]any{
			"temperature": 0.7,
			"maxTokens":   1024,
		},
	}
}

func TestSerializePrompt_RoundTrip(t *testing.T) {
	p := samplePrompt()

	sp, err := SerializePrompt(p)
	if err != nil {
		t.Fatalf("SerializePrompt: %v", err)
	}
	got, err := DeserializePrompt(sp)
	if err != nil {
		t.Fatalf("DeserializePrompt: %v", err)
	}

	if got.ID != p.ID || got.Version != p.Version || got.System != p.System || got.UserTemplate != p.UserTemplate {
		t.Errorf("round trip changed core fields: %+v", got)
	}
	if got.CustomFields["temperature"] != 0.7 || got.CustomFields["maxTokens"] != 1024 {
		t.Errorf("round trip lost custom fields: %+v", got.CustomFields)
	}

	input := map[string]string{"text": "the quick brown fox"}
	if got.Render(input) != p.Render(input) {
		t.Error("round-tripped prompt renders differently")
	}
}

func TestSerializePrompt_RequiresUserTemplate(t *testing.T) {
	p := samplePrompt()
	p.UserTemplate = ""
	_, err := SerializePrompt(p)
	if !errors.Is(err, models.ErrPromptInvalidFormat) {
		t.Errorf("error = %v, want ErrPromptInvalidFormat", err)
	}
}

func TestSerializePrompt_StripsCoreFieldCollisions(t *testing.T) {
	p := samplePrompt()
	p.CustomFields["id"] = "spoofed"
	p.CustomFields["version"] = "9.9.9"

	sp, err := SerializePrompt(p)
	if err != nil {
		t.Fatalf("SerializePrompt: %v", err)
	}
	if _, ok := sp.CustomFields["id"]; ok {
		t.Error("customFields bag carries a core field name")
	}
	if sp.ID != "summarizer" || sp.Version != "1.0.0" {
		t.Errorf("core fields overridden: id=%q version=%q", sp.ID, sp.Version)
	}
}

func TestDeserializePrompt_CoreFieldsWin(t *testing.T) {
	sp := models.SerializedPrompt{
		ID:           "real",
		Version:      "1.2.3",
		System:       "sys",
		UserTemplate: "{{x}}",
		CustomFields: map[string]any{
			"id":      "spoofed",
			"version": "0.0.1",
			"extra":   "kept",
		},
	}

	p, err := DeserializePrompt(sp)
	if err != nil {
		t.Fatalf("DeserializePrompt: %v", err)
	}
	if p.ID != "real" || p.Version != "1.2.3" {
		t.Errorf("spoofed identity applied: id=%q version=%q", p.ID, p.Version)
	}
	if _, ok := p.CustomFields["id"]; ok {
		t.Error("spoofed id retained in custom fields")
	}
	if p.CustomFields["extra"] != "kept" {
		t.Error("legitimate extra field dropped")
	}
}

func TestDeserializePrompt_ShapeChecks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.SerializedPrompt)
		wantErr error
	}{
		{
			name:    "missing id",
			mutate:  func(sp *models.SerializedPrompt) { sp.ID = "" },
			wantErr: models.ErrPromptInvalidFormat,
		},
		{
			name:    "bad version",
			mutate:  func(sp *models.SerializedPrompt) { sp.Version = "1.2" },
			wantErr: models.ErrPromptInvalidFormat,
		},
		{
			name:    "missing template",
			mutate:  func(sp *models.SerializedPrompt) { sp.UserTemplate = "" },
			wantErr: models.ErrPromptInvalidFormat,
		},
		{
			name:    "corrupted template",
			mutate:  func(sp *models.SerializedPrompt) { sp.UserTemplate = "{{broken }} }}" },
			wantErr: models.ErrTemplateCompile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := models.SerializedPrompt{ID: "p", Version: "1.0.0", UserTemplate: "{{x}}"}
			tt.mutate(&sp)
			_, err := DeserializePrompt(sp)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
