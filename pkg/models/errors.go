package models

import "errors"

// Sentinel errors shared across the engine. Callers match with errors.Is.
var (
	// ErrInvalidVersion indicates a version string that does not parse as x.y.z.
	ErrInvalidVersion = errors.New("invalid semver version")
	// ErrTemplateCompile indicates a user template that fails validation.
	ErrTemplateCompile = errors.New("template compile failed")
	// ErrPromptInvalidFormat indicates a prompt that cannot be serialized or
	// a serialized prompt that fails shape checks.
	ErrPromptInvalidFormat = errors.New("invalid prompt format")
)
