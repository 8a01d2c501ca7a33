package session

import "errors"

var (
	// ErrInvalidConfig indicates a bad session configuration or an
	// operation the session's state does not permit, such as appending
	// a round after completion or saving without a configured path.
	ErrInvalidConfig = errors.New("invalid session configuration")
	// ErrConcurrentModification indicates a re-entrant mutation of the
	// session. This is a reentrancy guard, not a cross-process lock.
	ErrConcurrentModification = errors.New("concurrent session modification")
	// ErrSchemaValidation indicates a malformed or schema-incompatible
	// history file.
	ErrSchemaValidation = errors.New("history schema validation failed")
	// ErrFileRead indicates an I/O failure loading a history file.
	ErrFileRead = errors.New("history file read failed")
	// ErrFileWrite indicates an I/O failure saving a history file.
	ErrFileWrite = errors.New("history file write failed")
)
