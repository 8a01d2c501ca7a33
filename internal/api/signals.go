package api

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalManager watches a directory for stop and pause signal files, so
// a long unattended run can be interrupted from another terminal.
type SignalManager struct {
	signalsDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalManager creates a signal manager over the given directory,
// creating it if needed. The watcher is best-effort: when it cannot be
// set up, signal checks fall back to polling the files.
func NewSignalManager(signalsDir string) (*SignalManager, error) {
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sm := &SignalManager{
		signalsDir: signalsDir,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return sm, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return sm, nil
	}
	sm.watcher = watcher

	go sm.watchSignals()

	return sm, nil
}

// watchSignals monitors the signals directory for stop/pause files.
func (sm *SignalManager) watchSignals() {
	for {
		select {
		case <-sm.done:
			return
		case event, ok := <-sm.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			sm.mu.Lock()
			switch filepath.Base(event.Name) {
			case "stop":
				sm.stopSignal = true
			case "pause":
				sm.pauseSignal = true
			}
			sm.mu.Unlock()
		case <-sm.watcher.Errors:
			// keep watching
		}
	}
}

// ShouldStop reports whether a stop signal has been received. It also
// checks the file directly in case the watcher missed it.
func (sm *SignalManager) ShouldStop() bool {
	if _, err := os.Stat(filepath.Join(sm.signalsDir, "stop")); err == nil {
		sm.mu.Lock()
		sm.stopSignal = true
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stopSignal
}

// ShouldPause reports whether a pause signal has been received.
func (sm *SignalManager) ShouldPause() bool {
	if _, err := os.Stat(filepath.Join(sm.signalsDir, "pause")); err == nil {
		sm.mu.Lock()
		sm.pauseSignal = true
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.pauseSignal
}

// SendStop creates a stop signal file.
func (sm *SignalManager) SendStop() error {
	path := filepath.Join(sm.signalsDir, "stop")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (sm *SignalManager) SendPause() error {
	path := filepath.Join(sm.signalsDir, "pause")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes all signal files and resets signal state.
func (sm *SignalManager) ClearSignals() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stopSignal = false
	sm.pauseSignal = false

	os.Remove(filepath.Join(sm.signalsDir, "stop"))
	os.Remove(filepath.Join(sm.signalsDir, "pause"))
}

// Close shuts down the signal manager.
func (sm *SignalManager) Close() {
	close(sm.done)
	if sm.watcher != nil {
		sm.watcher.Close()
	}
}
