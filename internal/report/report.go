// Package report persists finished-task records as JSON files, one file per
// run. The files are an audit trail of what automation did against which
// account, kept outside the profile store so they can be shipped or wiped
// independently.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry is one finished task.
type Entry struct {
	Profile   string         `json:"profile"`
	Scenario  string         `json:"scenario"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration_ns"`
	Payload   map[string]any `json:"payload,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Writer appends task records to a directory
type Writer struct {
	dir string
	mu  sync.Mutex
}

// New creates a Writer rooted at dir, creating it if needed
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write stores one entry as an indented JSON file
func (w *Writer) Write(entry Entry) error {
	filename := fmt.Sprintf("%d_%s_%s.json",
		entry.StartedAt.UnixNano(),
		sanitize(entry.Profile),
		sanitize(entry.Scenario))

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	// Lock to prevent concurrent file access issues
	w.mu.Lock()
	defer w.mu.Unlock()

	return os.WriteFile(filepath.Join(w.dir, filename), data, 0644)
}

// sanitize creates a safe filename fragment
func sanitize(s string) string {
	unsafe := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	for _, char := range unsafe {
		s = strings.ReplaceAll(s, char, "_")
	}
	if s == "" {
		return "unnamed"
	}
	return s
}
