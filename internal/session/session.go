package session

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// Options configures a Session.
type Options struct {
	// Path is the history file location. Required when AutoSave is set.
	Path string
	// AutoSave triggers a best-effort background save after every
	// mutation. Failures never surface to the mutating caller.
	AutoSave bool
	// OnSaveError receives background save failures. Defaults to a log
	// line when nil.
	OnSaveError func(error)
}

// Session is the live, mutable owner of an ImprovementHistory. It
// enforces that rounds cannot be appended after completion and that
// mutation is not re-entrant.
type Session struct {
	opts    Options
	history *ImprovementHistory

	// mutating guards against re-entrant mutation, not cross-process use.
	mutating atomic.Bool
	queue    writeQueue
}

// NewSession creates a fresh session for the given prompt with an empty
// round list and the schema version pinned.
func NewSession(initial models.AgentPrompt, opts Options) (*Session, error) {
	if opts.AutoSave && opts.Path == "" {
		return nil, fmt.Errorf("%w: auto-save requires a history path", ErrInvalidConfig)
	}

	sp, err := SerializePrompt(initial)
	if err != nil {
		return nil, err
	}

	return &Session{
		opts: opts,
		history: &ImprovementHistory{
			SchemaVersion: SchemaVersion,
			SessionID:     uuid.NewString(),
			StartedAt:     time.Now().UTC(),
			InitialPrompt: sp,
			CurrentPrompt: sp,
			Rounds:        []models.RoundResult{},
		},
	}, nil
}

// ResumeSession loads a persisted history and returns a live session
// with the completion fields cleared. The round counter resumes from
// the number of persisted rounds.
func ResumeSession(path string, opts Options) (*Session, error) {
	h, err := LoadHistory(path)
	if err != nil {
		return nil, err
	}
	h.CompletedAt = nil
	h.TerminationReason = ""

	if opts.Path == "" {
		opts.Path = path
	}
	return &Session{opts: opts, history: h}, nil
}

// History returns the owned history. Callers must treat it as read-only.
func (s *Session) History() *ImprovementHistory {
	return s.history
}

// Rounds returns the number of recorded rounds.
func (s *Session) Rounds() int {
	return len(s.history.Rounds)
}

// CurrentPrompt returns the latest persisted prompt record.
func (s *Session) CurrentPrompt() models.SerializedPrompt {
	return s.history.CurrentPrompt
}

// TotalCost returns the accumulated cost across recorded rounds.
func (s *Session) TotalCost() float64 {
	return s.history.TotalCost
}

// Path returns the configured history file path, empty for in-memory
// sessions.
func (s *Session) Path() string {
	return s.opts.Path
}

// Completed reports whether the session has been completed.
func (s *Session) Completed() bool {
	return s.history.CompletedAt != nil
}

// AddRound appends a round record, updates the current prompt and
// accumulates total cost. It fails once the session is completed and
// when invoked re-entrantly.
func (s *Session) AddRound(result models.RoundResult, updated models.SerializedPrompt) error {
	if !s.mutating.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: addRound while another mutation is in flight", ErrConcurrentModification)
	}
	defer s.mutating.Store(false)

	if s.Completed() {
		return fmt.Errorf("%w: cannot add round %d to a completed session", ErrInvalidConfig, result.Round)
	}

	s.history.Rounds = append(s.history.Rounds, result)
	s.history.CurrentPrompt = updated
	s.history.TotalCost += result.Cost.Total

	s.autoSave()
	return nil
}

// Complete marks the session finished with the given reason. The
// session accepts no further rounds, but may still be resumed later
// from its file.
func (s *Session) Complete(reason string) error {
	if !s.mutating.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: complete while another mutation is in flight", ErrConcurrentModification)
	}
	defer s.mutating.Store(false)

	if s.Completed() {
		return fmt.Errorf("%w: session already completed", ErrInvalidConfig)
	}

	now := time.Now().UTC()
	s.history.CompletedAt = &now
	s.history.TerminationReason = reason

	s.autoSave()
	return nil
}

// Save persists the history synchronously, after any queued background
// writes have finished.
func (s *Session) Save() error {
	if s.opts.Path == "" {
		return fmt.Errorf("%w: no history path configured", ErrInvalidConfig)
	}
	data, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal history: %v", ErrFileWrite, err)
	}
	return <-s.queue.enqueue(func() error {
		return writeHistoryBytes(s.opts.Path, data)
	})
}

// Flush waits for all pending background saves and performs a final
// synchronous save. Callers requiring durability must call this (or
// Save) explicitly.
func (s *Session) Flush() error {
	return s.Save()
}

// autoSave queues a best-effort background save. The snapshot is
// marshaled synchronously so later mutations cannot leak into a queued
// write; failures go to the error callback, never to the caller.
func (s *Session) autoSave() {
	if !s.opts.AutoSave {
		return
	}
	data, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		s.reportSaveError(fmt.Errorf("%w: marshal history: %v", ErrFileWrite, err))
		return
	}
	errc := s.queue.enqueue(func() error {
		return writeHistoryBytes(s.opts.Path, data)
	})
	go func() {
		if err := <-errc; err != nil {
			s.reportSaveError(err)
		}
	}()
}

func (s *Session) reportSaveError(err error) {
	if s.opts.OnSaveError != nil {
		s.opts.OnSaveError(err)
		return
	}
	log.Printf("promptsmith: background save failed for session %s: %v", s.history.SessionID, err)
}

// writeQueue chains file writes for a session so overlapping save
// triggers cannot interleave partial writes.
type writeQueue struct {
	mu   sync.Mutex
	tail chan struct{}
}

// enqueue schedules fn after every previously queued write. The
// returned channel receives fn's result exactly once.
func (q *writeQueue) enqueue(fn func() error) <-chan error {
	q.mu.Lock()
	prev := q.tail
	done := make(chan struct{})
	q.tail = done
	q.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		errc <- fn()
	}()
	return errc
}
