package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StatusLogHeader starts every freshly created status log.
const StatusLogHeader = "System Status Log:\n"

// StatusLog is the append-only text file that records applied fixes.
type StatusLog struct {
	mu   sync.Mutex
	path string
}

// NewStatusLog targets path.
func NewStatusLog(path string) *StatusLog {
	return &StatusLog{path: path}
}

// Path returns the backing file.
func (l *StatusLog) Path() string { return l.path }

// Append adds entry, writing the header first when the file does not exist yet.
func (l *StatusLog) Append(entry string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create status log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open status log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat status log: %w", err)
	}
	if info.Size() == 0 {
		entry = StatusLogHeader + entry
	}
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("append status log: %w", err)
	}
	return nil
}
