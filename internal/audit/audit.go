// Package audit records trash operations in a JSON log file.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileName is the log's name inside the data directory.
const FileName = "trash_log.json"

// SenderRef identifies one sender whose mail was trashed.
type SenderRef struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	MessageCount int    `json:"message_count"`
}

// Entry is one trash operation.
type Entry struct {
	ID            string      `json:"id"`
	Date          time.Time   `json:"date"`
	Senders       []SenderRef `json:"senders"`
	TotalMessages int         `json:"total_messages"`
	MessageIDs    []string    `json:"message_ids"`
	// Partial marks an operation that stopped after some batches failed;
	// MessageIDs then lists only the acknowledged messages.
	Partial bool `json:"partial,omitempty"`
}

// Log is a JSON array on disk. Appends rewrite the whole file; concurrent
// writers are not supported.
type Log struct {
	path string
	now  func() time.Time
}

// New returns a Log stored at path.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Entries returns every recorded entry, oldest first. A missing or
// unreadable log is treated as empty.
func (l *Log) Entries() ([]Entry, error) {
	entries, _, err := l.read()
	return entries, err
}

// read loads the log. corrupt reports a file that exists but does not
// parse.
func (l *Log) read() (entries []Entry, corrupt bool, err error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read audit log: %w", err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, true, nil
	}
	return entries, false, nil
}

// corruptPath is where an unreadable log is moved before a new one is
// started.
func (l *Log) corruptPath() string {
	return l.path + ".corrupt-" + l.now().UTC().Format("20060102T150405Z")
}

// Append stamps e with an ID and date when unset and adds it to the log.
func (l *Log) Append(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Date.IsZero() {
		e.Date = l.now()
	}
	if e.Senders == nil {
		e.Senders = []SenderRef{}
	}
	if e.MessageIDs == nil {
		e.MessageIDs = []string{}
	}

	entries, corrupt, err := l.read()
	if err != nil {
		return Entry{}, err
	}
	if corrupt {
		if err := os.Rename(l.path, l.corruptPath()); err != nil {
			return Entry{}, fmt.Errorf("failed to move aside unreadable audit log: %w", err)
		}
	}
	entries = append(entries, e)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal audit log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return Entry{}, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return Entry{}, fmt.Errorf("failed to write audit log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return Entry{}, fmt.Errorf("failed to replace audit log: %w", err)
	}
	return e, nil
}
