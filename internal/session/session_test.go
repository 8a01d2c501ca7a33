package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

func roundResult(round int, score float64, cost float64) models.RoundResult {
	snapshot := models.SerializedPrompt{ID: "p", Version: "1.0.0", UserTemplate: "{{x}}"}
	r := models.RoundResult{
		Round:              round,
		AvgScore:           score,
		Passed:             1,
		TotalTests:         1,
		PromptSnapshot:     snapshot,
		PromptVersionAfter: "1.0.0",
		Cost:               models.RoundCost{Total: cost},
	}
	if round > 1 {
		delta := 0.0
		r.ScoreDelta = &delta
	}
	return r
}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := NewSession(samplePrompt(), opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestNewSession_PinsSchema(t *testing.T) {
	s := newTestSession(t, Options{})
	h := s.History()
	if h.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %q, want %q", h.SchemaVersion, SchemaVersion)
	}
	if h.SessionID == "" {
		t.Error("session id not generated")
	}
	if len(h.Rounds) != 0 {
		t.Errorf("fresh session has %d rounds", len(h.Rounds))
	}
	if !reflect.DeepEqual(h.InitialPrompt, h.CurrentPrompt) {
		t.Error("initial and current prompt differ on a fresh session")
	}
}

func TestNewSession_AutoSaveRequiresPath(t *testing.T) {
	_, err := NewSession(samplePrompt(), Options{AutoSave: true})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestAddRound_AccumulatesCost(t *testing.T) {
	s := newTestSession(t, Options{})
	updated := s.CurrentPrompt()

	if err := s.AddRound(roundResult(1, 70, 0.5), updated); err != nil {
		t.Fatalf("AddRound: %v", err)
	}
	if err := s.AddRound(roundResult(2, 75, 0.25), updated); err != nil {
		t.Fatalf("AddRound: %v", err)
	}

	if s.Rounds() != 2 {
		t.Errorf("Rounds() = %d, want 2", s.Rounds())
	}
	if s.TotalCost() != 0.75 {
		t.Errorf("TotalCost() = %v, want 0.75", s.TotalCost())
	}
}

func TestAddRound_AfterCompleteFails(t *testing.T) {
	s := newTestSession(t, Options{})
	if err := s.Complete("Target score reached"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	err := s.AddRound(roundResult(1, 70, 0), s.CurrentPrompt())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestAddRound_ReentrancyGuard(t *testing.T) {
	s := newTestSession(t, Options{})
	s.mutating.Store(true)
	defer s.mutating.Store(false)

	err := s.AddRound(roundResult(1, 70, 0), s.CurrentPrompt())
	if !errors.Is(err, ErrConcurrentModification) {
		t.Errorf("error = %v, want ErrConcurrentModification", err)
	}
}

func TestSave_WithoutPathFails(t *testing.T) {
	s := newTestSession(t, Options{})
	if err := s.Save(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "history.json")
	s := newTestSession(t, Options{Path: path})

	if err := s.AddRound(roundResult(1, 70, 0.1), s.CurrentPrompt()); err != nil {
		t.Fatalf("AddRound: %v", err)
	}
	if err := s.Complete("done"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	loaded, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	// Compare through JSON to sidestep time.Time monotonic clock noise.
	want, _ := json.Marshal(s.History())
	got, _ := json.Marshal(loaded)
	if string(want) != string(got) {
		t.Errorf("loaded history differs:\n got %s\nwant %s", got, want)
	}
}

func TestSaveHistory_PrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := newTestSession(t, Options{Path: path})
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  \"schemaVersion\": \"1.1.0\"") {
		t.Errorf("history file not pretty-printed with 2-space indent:\n%s", data)
	}
}

func TestLoadHistory_RejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	valid := func() map[string]any {
		return map[string]any{
			"schemaVersion": SchemaVersion,
			"sessionId":     "abc",
			"startedAt":     "2026-01-02T15:04:05Z",
			"initialPrompt": map[string]any{"id": "p", "version": "1.0.0", "system": "", "userTemplate": "{{x}}"},
			"currentPrompt": map[string]any{"id": "p", "version": "1.0.0", "system": "", "userTemplate": "{{x}}"},
			"rounds":        []any{},
			"totalCost":     0,
		}
	}

	t.Run("malformed JSON", func(t *testing.T) {
		p := write("malformed.json", "{not json")
		if _, err := LoadHistory(p); !errors.Is(err, ErrSchemaValidation) {
			t.Errorf("error = %v, want ErrSchemaValidation", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadHistory(filepath.Join(dir, "absent.json")); !errors.Is(err, ErrFileRead) {
			t.Errorf("error = %v, want ErrFileRead", err)
		}
	})

	t.Run("wrong schema version", func(t *testing.T) {
		doc := valid()
		doc["schemaVersion"] = "2.0.0"
		data, _ := json.Marshal(doc)
		p := write("wrong-schema.json", string(data))
		if _, err := LoadHistory(p); !errors.Is(err, ErrSchemaValidation) {
			t.Errorf("error = %v, want ErrSchemaValidation", err)
		}
	})

	for _, field := range requiredFields {
		t.Run("missing "+field, func(t *testing.T) {
			doc := valid()
			delete(doc, field)
			data, _ := json.Marshal(doc)
			p := write("missing-"+field+".json", string(data))
			if _, err := LoadHistory(p); !errors.Is(err, ErrSchemaValidation) {
				t.Errorf("error = %v, want ErrSchemaValidation", err)
			}
		})
	}
}

func TestResumeSession_ClearsCompletion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := newTestSession(t, Options{Path: path})
	if err := s.AddRound(roundResult(1, 70, 0.1), s.CurrentPrompt()); err != nil {
		t.Fatalf("AddRound: %v", err)
	}
	if err := s.Complete("stopped"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	resumed, err := ResumeSession(path, Options{})
	if err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if resumed.Completed() {
		t.Error("resumed session still completed")
	}
	if resumed.History().TerminationReason != "" {
		t.Error("resumed session kept its termination reason")
	}
	if resumed.Rounds() != 1 {
		t.Errorf("resumed round count = %d, want 1", resumed.Rounds())
	}

	// A resumed session accepts further rounds again.
	if err := resumed.AddRound(roundResult(2, 72, 0.1), resumed.CurrentPrompt()); err != nil {
		t.Errorf("AddRound after resume: %v", err)
	}
}

func TestAutoSave_FailureGoesToCallback(t *testing.T) {
	// A directory where the history file should be forces a write error.
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 1)
	s, err := NewSession(samplePrompt(), Options{
		Path:        path,
		AutoSave:    true,
		OnSaveError: func(e error) { errs <- e },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	// The mutation itself must not fail.
	if err := s.AddRound(roundResult(1, 70, 0), s.CurrentPrompt()); err != nil {
		t.Fatalf("AddRound surfaced a save failure: %v", err)
	}

	if got := <-errs; !errors.Is(got, ErrFileWrite) {
		t.Errorf("callback error = %v, want ErrFileWrite", got)
	}
}

func TestAutoSave_OrderedWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := newTestSession(t, Options{Path: path, AutoSave: true})

	for i := 1; i <= 5; i++ {
		if err := s.AddRound(roundResult(i, float64(60+i), 0.01), s.CurrentPrompt()); err != nil {
			t.Fatalf("AddRound %d: %v", i, err)
		}
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	loaded, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(loaded.Rounds) != 5 {
		t.Errorf("persisted rounds = %d, want 5 (writes interleaved?)", len(loaded.Rounds))
	}
}
