// Package session owns the persisted improvement history: prompt
// serialization, the session lifecycle, and schema-versioned JSON
// persistence with ordered background saves.
package session

import (
	"fmt"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// coreFields are serialized prompt keys that may never be supplied via
// the customFields bag. Core fields always win over same-named entries,
// so an untrusted history file cannot spoof prompt identity.
var coreFields = map[string]bool{
	"id":           true,
	"version":      true,
	"system":       true,
	"userTemplate": true,
	"customFields": true,
}

// SerializePrompt converts a live prompt into its persistable record.
// Prompts without a user template cannot be serialized.
func SerializePrompt(p models.AgentPrompt) (models.SerializedPrompt, error) {
	if p.UserTemplate == "" {
		return models.SerializedPrompt{}, fmt.Errorf("%w: prompt %q has no serializable userTemplate", models.ErrPromptInvalidFormat, p.ID)
	}
	if _, err := models.ParseVersion(p.Version); err != nil {
		return models.SerializedPrompt{}, fmt.Errorf("%w: prompt %q version: %v", models.ErrPromptInvalidFormat, p.ID, err)
	}

	sp := models.SerializedPrompt{
		ID:           p.ID,
		Version:      p.Version,
		System:       p.System,
		UserTemplate: p.UserTemplate,
	}
	for k, v := range p.CustomFields {
		if coreFields[k] {
			continue
		}
		if sp.CustomFields == nil {
			sp.CustomFields = make(map[string]any)
		}
		sp.CustomFields[k] = v
	}
	return sp, nil
}

// DeserializePrompt reconstructs a live prompt from its persisted
// record, recompiling the user template. Entries in customFields that
// collide with core field names are dropped.
func DeserializePrompt(sp models.SerializedPrompt) (models.AgentPrompt, error) {
	if sp.ID == "" {
		return models.AgentPrompt{}, fmt.Errorf("%w: serialized prompt has no id", models.ErrPromptInvalidFormat)
	}
	if _, err := models.ParseVersion(sp.Version); err != nil {
		return models.AgentPrompt{}, fmt.Errorf("%w: serialized prompt %q version: %v", models.ErrPromptInvalidFormat, sp.ID, err)
	}
	if sp.UserTemplate == "" {
		return models.AgentPrompt{}, fmt.Errorf("%w: serialized prompt %q has no userTemplate", models.ErrPromptInvalidFormat, sp.ID)
	}
	if err := models.ValidateTemplate(sp.UserTemplate); err != nil {
		return models.AgentPrompt{}, fmt.Errorf("deserialize prompt %q: %w", sp.ID, err)
	}

	p := models.AgentPrompt{
		ID:           sp.ID,
		Version:      sp.Version,
		System:       sp.System,
		UserTemplate: sp.UserTemplate,
	}
	for k, v := range sp.CustomFields {
		if coreFields[k] {
			continue
		}
		if p.CustomFields == nil {
			p.CustomFields = make(map[string]any)
		}
		p.CustomFields[k] = v
	}
	return p, nil
}
