// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package alertstate

import (
	"sync"
	"time"

	"github.com/azzuwayed/serversentry/internal/status"
)

// SilenceWindow is a time range during which alerts for a key are
// unconditionally suppressed (spec.md glossary "Silence window"). Key "*"
// matches every alert key.
type SilenceWindow struct {
	Key   string
	Start time.Time
	End   time.Time
}

func (w SilenceWindow) contains(key string, now time.Time) bool {
	if w.Key != "*" && w.Key != key {
		return false
	}
	return !now.Before(w.Start) && now.Before(w.End)
}

// Machine is the concurrency-safe, persisted collection of per-key
// Records. Per spec.md §5 it is mutated only here, processing ticks in
// Scheduler order (the caller is expected to call Evaluate for each key
// serially within a tick; Machine's lock only guards the map itself).
type Machine struct {
	mu      sync.Mutex
	records map[string]Record
	store   *Store
	windows []SilenceWindow
}

// NewMachine returns a Machine optionally backed by a persistence Store.
// If store is non-nil its previously persisted records are loaded now;
// an unreadable or corrupt store is treated as empty (spec.md §4.6
// "Persistence").
func NewMachine(store *Store) *Machine {
	m := &Machine{records: make(map[string]Record), store: store}
	if store != nil {
		for k, r := range store.Load() {
			m.records[k] = r
		}
	}
	return m
}

// SetSilenceWindows replaces the active silence window list.
func (m *Machine) SetSilenceWindows(windows []SilenceWindow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = windows
}

func (m *Machine) isSilenced(key string, now time.Time) bool {
	for _, w := range m.windows {
		if w.contains(key, now) {
			return true
		}
	}
	return false
}

// Record returns a copy of the current record for key, or the zero Record
// (State NORMAL) if key has never been classified.
func (m *Machine) Record(key string) Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	if !ok {
		return Record{Key: key, State: NORMAL}
	}
	return r
}

// Tick classifies one (key, source) pair for the current tick and
// returns the updated Record and, when applicable, an Emission for the
// Dispatcher. It persists the new Record (if a Store is attached) before
// returning, per spec.md §4.6 "after every transition the state ... is
// written to disk atomically".
func (m *Machine) Tick(key string, isNonOK bool, severity status.Level, minConsecutive int, cooldown time.Duration, notifyOnRecovery bool, now time.Time) (Record, *Emission) {
	m.mu.Lock()
	prev, ok := m.records[key]
	if !ok {
		prev = Record{Key: key, State: NORMAL}
	}
	m.mu.Unlock()

	params := Params{
		IsNonOK:          isNonOK,
		Severity:         severity,
		MinConsecutive:   minConsecutive,
		Cooldown:         cooldown,
		Silenced:         m.isSilenced(key, now),
		NotifyOnRecovery: notifyOnRecovery,
		Now:              now,
	}

	next, emission := Evaluate(prev, params)

	m.mu.Lock()
	m.records[key] = next
	snapshot := make(map[string]Record, len(m.records))
	for k, v := range m.records {
		snapshot[k] = v
	}
	m.mu.Unlock()

	if m.store != nil {
		_ = m.store.Save(snapshot)
	}

	return next, emission
}
