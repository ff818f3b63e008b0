// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package alertstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the full alert-state map to a single file, written
// atomically (write-temp-then-rename), per spec.md §6 "<state>/
// alert_state.json — map of alert-key -> state record, written
// atomically".
type Store struct {
	path string
}

// NewStore returns a Store backed by path. The parent directory is
// created if necessary.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("alertstate: creating directory for %s: %w", path, err)
	}
	return &Store{path: path}, nil
}

// Load reads the persisted map back. An unreadable or corrupt file is
// treated as empty (spec.md §4.6 "unreadable state is treated as
// NORMAL" — the absence of a key from the returned map has exactly that
// effect, since Machine.Record defaults an unknown key to NORMAL).
func (s *Store) Load() map[string]Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

// Save writes records to the Store's path atomically: it marshals to a
// temp file in the same directory, then renames over the destination so
// a concurrent reader never observes a partially written file.
func (s *Store) Save(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("alertstate: marshalling state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".alert_state-*.tmp")
	if err != nil {
		return fmt.Errorf("alertstate: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("alertstate: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("alertstate: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("alertstate: renaming %s to %s: %w", tmpPath, s.path, err)
	}
	return nil
}
