package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journal is a JSON file recording the confirmed registration steps of
// each program id.
type Journal struct {
	path    string
	mu      sync.Mutex
	entries map[string]*JournalEntry
}

// OpenJournal loads the journal at path, creating its directory if needed.
// A missing file is an empty journal.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create journal directory: %w", err)
	}

	j := &Journal{path: path, entries: make(map[string]*JournalEntry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read journal file: %w", err)
	}
	if len(data) == 0 {
		return j, nil
	}
	if err := json.Unmarshal(data, &j.entries); err != nil {
		return nil, fmt.Errorf("could not parse journal file: %w", err)
	}
	return j, nil
}

// Completed returns the signature recorded for step, if any.
func (j *Journal) Completed(programID, step string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, ok := j.entries[programID]
	if !ok {
		return "", false
	}
	sig, ok := entry.Steps[step]
	return sig, ok
}

// Record stores signature for step and flushes the journal to disk.
func (j *Journal) Record(programID, step, signature string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, ok := j.entries[programID]
	if !ok {
		entry = &JournalEntry{Steps: make(map[string]string)}
		j.entries[programID] = entry
	}
	entry.Steps[step] = signature
	entry.UpdatedAt = time.Now().UTC()
	return j.flush()
}

// Entry returns a copy of the steps recorded for programID.
func (j *Journal) Entry(programID string) (JournalEntry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, ok := j.entries[programID]
	if !ok {
		return JournalEntry{}, false
	}
	steps := make(map[string]string, len(entry.Steps))
	for k, v := range entry.Steps {
		steps[k] = v
	}
	return JournalEntry{Steps: steps, UpdatedAt: entry.UpdatedAt}, true
}

// Forget drops everything recorded for programID.
func (j *Journal) Forget(programID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.entries[programID]; !ok {
		return nil
	}
	delete(j.entries, programID)
	return j.flush()
}

// flush writes a temp file and renames it over the journal.
// Callers hold mu.
func (j *Journal) flush() error {
	data, err := json.MarshalIndent(j.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal journal: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("could not write journal file: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("could not replace journal file: %w", err)
	}
	return nil
}

// Close is a no-op; every Record is already on disk.
func (j *Journal) Close() error {
	return nil
}
