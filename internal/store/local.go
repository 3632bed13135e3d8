// Package store is the two-tier persistence layer for resolved targets:
// a single-slot local cache and the remote resolution endpoints.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deeptrail/appshell/internal/logging"
)

// Local is the single-slot persistence collaborator: one string value,
// the last resolved destination URL.
type Local interface {
	// Get returns the persisted URL, or "" when none is stored.
	Get() string

	// Set overwrites the slot. Best-effort; failures are logged only.
	Set(url string)
}

const localFileName = "resolved_target.json"

type localRecord struct {
	TargetURL string    `json:"target_url"`
	SavedAt   time.Time `json:"saved_at"`
}

// FileLocal persists the slot as a JSON file under a state directory.
type FileLocal struct {
	path string
	log  *logging.Logger
	mu   sync.Mutex
}

// NewFileLocal creates a file-backed local slot under stateDir.
func NewFileLocal(stateDir string, log *logging.Logger) *FileLocal {
	return &FileLocal{
		path: filepath.Join(stateDir, localFileName),
		log:  log,
	}
}

// Get implements Local.
func (l *FileLocal) Get() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return ""
	}

	var rec localRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		l.log.Warn("corrupt local target record", zap.Error(err))
		return ""
	}
	return rec.TargetURL
}

// Set implements Local. The write goes through a temp file and rename so
// a crash never leaves a truncated record behind.
func (l *FileLocal) Set(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := json.Marshal(localRecord{TargetURL: url, SavedAt: time.Now().UTC()})
	if err != nil {
		l.log.Warn("failed to encode local target record", zap.Error(err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.log.Warn("failed to create state dir", zap.Error(err))
		return
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		l.log.Warn("failed to write local target record", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, l.path); err != nil {
		l.log.Warn("failed to commit local target record", zap.Error(err))
	}
}
