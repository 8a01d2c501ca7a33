package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveHistory writes a history to path as pretty-printed JSON with
// 2-space indentation, creating missing parent directories.
func SaveHistory(path string, h *ImprovementHistory) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal history: %v", ErrFileWrite, err)
	}
	return writeHistoryBytes(path, data)
}

func writeHistoryBytes(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: create history directory: %v", ErrFileWrite, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileWrite, err)
	}
	return nil
}

// LoadHistory reads and validates a history file. Files with a missing
// required field or a schema version other than SchemaVersion are
// rejected outright.
func LoadHistory(path string) (*ImprovementHistory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}

	if err := validateHistoryJSON(data); err != nil {
		return nil, err
	}

	var h ImprovementHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: decode history: %v", ErrSchemaValidation, err)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &h, nil
}
