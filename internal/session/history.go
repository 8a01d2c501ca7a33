package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// SchemaVersion is the pinned history file schema. Loading rejects any
// other version outright; there is no migration path.
const SchemaVersion = "1.1.0"

// ImprovementHistory is the persisted record of an improvement run.
// It is exclusively owned by its Session: external code must treat it
// as read-only and mutate only through AddRound and Complete.
type ImprovementHistory struct {
	SchemaVersion     string                  `json:"schemaVersion"`
	SessionID         string                  `json:"sessionId"`
	StartedAt         time.Time               `json:"startedAt"`
	InitialPrompt     models.SerializedPrompt `json:"initialPrompt"`
	CurrentPrompt     models.SerializedPrompt `json:"currentPrompt"`
	Rounds            []models.RoundResult    `json:"rounds"`
	TotalCost         float64                 `json:"totalCost"`
	CompletedAt       *time.Time              `json:"completedAt,omitempty"`
	TerminationReason string                  `json:"terminationReason,omitempty"`
}

// requiredFields are the top-level keys a history file must carry.
var requiredFields = []string{
	"schemaVersion",
	"sessionId",
	"startedAt",
	"initialPrompt",
	"currentPrompt",
	"rounds",
	"totalCost",
}

// validateHistoryJSON checks raw history JSON for the required keys and
// an exact schema version match before full decoding.
func validateHistoryJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrSchemaValidation, err)
	}
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrSchemaValidation, field)
		}
	}

	var version string
	if err := json.Unmarshal(raw["schemaVersion"], &version); err != nil {
		return fmt.Errorf("%w: schemaVersion is not a string", ErrSchemaValidation)
	}
	if version != SchemaVersion {
		return fmt.Errorf("%w: schema version %q does not match %q", ErrSchemaValidation, version, SchemaVersion)
	}
	return nil
}

// Validate checks a decoded history for structural soundness.
func (h *ImprovementHistory) Validate() error {
	if h.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: schema version %q does not match %q", ErrSchemaValidation, h.SchemaVersion, SchemaVersion)
	}
	if h.SessionID == "" {
		return fmt.Errorf("%w: empty sessionId", ErrSchemaValidation)
	}
	if h.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing startedAt", ErrSchemaValidation)
	}
	if h.InitialPrompt.ID == "" || h.CurrentPrompt.ID == "" {
		return fmt.Errorf("%w: missing prompt records", ErrSchemaValidation)
	}
	return nil
}
