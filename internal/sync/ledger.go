package sync

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Ledger entry types.
const (
	// EntryTypeEmptySessionBlocked records a session add refused outright
	// because a completed session with zero exercises is a corruption
	// signature, not a legitimate state.
	EntryTypeEmptySessionBlocked = "empty_session_blocked"
)

// Entry is one failed-sync record.
type Entry struct {
	Type         string    `json:"type"`
	ResourceID   string    `json:"resource_id"`
	ResourceName string    `json:"resource_name,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Ledger is the append-only local record of refused sync attempts.
//
// Entries are written as JSON lines. The ledger is consumed only by
// manual and administrative tooling; nothing in the sync engine replays it.
type Ledger struct {
	mu     sync.Mutex
	path   string
	notify func(Entry)
}

// NewLedger creates a ledger backed by the given file path. The file is
// created on first append.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// OnAppend registers fn to be called after every successful append, with
// the entry as written (timestamp filled). The dashboard uses this to push
// ledger entries to connected clients as they are recorded. fn is invoked
// outside the ledger's lock and must not block for long.
func (l *Ledger) OnAppend(fn func(Entry)) {
	l.mu.Lock()
	l.notify = fn
	l.mu.Unlock()
}

// Append writes one entry to the end of the ledger. A zero Timestamp is
// filled with the current time.
func (l *Ledger) Append(e Entry) error {
	l.mu.Lock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	err := l.appendLocked(e)
	notify := l.notify
	l.mu.Unlock()

	if err != nil {
		return err
	}
	if notify != nil {
		notify(e)
	}
	return nil
}

func (l *Ledger) appendLocked(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// Entries reads the full ledger, oldest first. A ledger that doesn't exist
// yet reads as empty.
func (l *Ledger) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to parse ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}

	return entries, nil
}
