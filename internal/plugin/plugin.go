// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package plugin implements the Metric Sampler (spec.md §4.1): the plugin
// capability contract, a fixed-for-the-run registry, and the per-check
// execution runtime with timeout enforcement and performance accounting.
package plugin

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Info describes a plugin's static metadata, returned by its info()
// operation (spec.md §4.1 "Contract").
type Info struct {
	Name               string
	Version            string
	DeclaredAttributes []string
	DefaultWarning     float64
	DefaultCritical    float64
}

// Plugin is the capability set every metric sampler must implement:
// info/configure/check, matching spec.md §4.1 and the tagged-variant
// guidance of §9 ("Dynamic dispatch / interface polymorphism").
type Plugin interface {
	Info() Info
	Configure(cfg map[string]any) error
	Check(ctx context.Context) (Reading, error)
}

// Registry holds the fixed set of plugins registered for the lifetime of a
// daemon run (spec.md §4.1 "Registration": "the set is fixed for the
// lifetime of a daemon run; reloads are treated as a restart"). It is
// populated exactly once at start and read-only thereafter, per spec.md §5
// "Resource policy".
type Registry struct {
	mu      sync.RWMutex
	order   []string
	plugins map[string]Plugin
	built   bool
}

// NewRegistry returns an empty, mutable Registry. Call Register for each
// configured plugin in declared order, then Freeze to make it immutable.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds p under id, in declared order. Register only succeeds if
// p's Configure call (performed by the caller beforehand) already
// succeeded — Registry itself does not call Configure, matching spec.md
// §4.1 "Registration": "A plugin becomes active only if ... configure
// succeeds on the loaded configuration."
func (r *Registry) Register(id string, p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		return fmt.Errorf("plugin registry: cannot register %q after Freeze", id)
	}
	if _, exists := r.plugins[id]; exists {
		return fmt.Errorf("plugin registry: duplicate plugin id %q", id)
	}
	r.plugins[id] = p
	r.order = append(r.order, id)
	return nil
}

// Freeze marks the registry immutable; subsequent Register calls fail.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built = true
}

// Ordered returns the registered plugin ids in declaration order.
func (r *Registry) Ordered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the plugin registered under id.
func (r *Registry) Get(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	return p, ok
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Stats holds the per-plugin performance counters from spec.md §4.1
// "Performance accounting": invocation count, error count, last duration,
// and last check time. They feed plugin-health reporting but never gate
// execution.
type Stats struct {
	Invocations   uint64
	Errors        uint64
	LastDuration  time.Duration
	LastCheckTime time.Time
	LastError     string
}

// Accountant tracks Stats per plugin id under a mutex; Runtime updates it
// after every Check, concurrent-safe across the parallel plugin checks
// spec.md §5 describes.
type Accountant struct {
	mu    sync.Mutex
	stats map[string]*Stats
}

// NewAccountant returns an empty Accountant.
func NewAccountant() *Accountant {
	return &Accountant{stats: make(map[string]*Stats)}
}

func (a *Accountant) record(id string, d time.Duration, at time.Time, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.stats[id]
	if !ok {
		s = &Stats{}
		a.stats[id] = s
	}
	s.Invocations++
	s.LastDuration = d
	s.LastCheckTime = at
	if err != nil {
		s.Errors++
		s.LastError = err.Error()
	} else {
		s.LastError = ""
	}
}

// Snapshot returns a copy of the Stats recorded for id.
func (a *Accountant) Snapshot(id string) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.stats[id]; ok {
		return *s
	}
	return Stats{}
}

// All returns a copy of every recorded Stats, keyed by plugin id.
func (a *Accountant) All() map[string]Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]Stats, len(a.stats))
	for k, v := range a.stats {
		out[k] = *v
	}
	return out
}

// DefaultCheckTimeout is the spec.md §4.1 default per-plugin check timeout.
const DefaultCheckTimeout = 30 * time.Second

// Runtime executes one plugin's check() within a bounded timeout and
// validates the result, per spec.md §4.1 "Execution". It never panics: a
// plugin that ignores cancellation is abandoned after its timeout and
// counted as an error (spec.md §5 "Cancellation").
type Runtime struct {
	Accountant *Accountant
	Timeout    time.Duration
}

// NewRuntime returns a Runtime with the given per-check timeout, defaulting
// to DefaultCheckTimeout when timeout <= 0.
func NewRuntime(accountant *Accountant, timeout time.Duration) *Runtime {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Runtime{Accountant: accountant, Timeout: timeout}
}

// checkResult carries a Check's outcome across the abandon-after-timeout
// boundary; a plugin goroutine that outlives its timeout is left running
// but its result, if it ever arrives, is discarded.
type checkResult struct {
	reading Reading
	err     error
}

// Run executes id's Check against a context derived from parent with
// r.Timeout applied, validates the Reading, and records performance
// counters. A malformed Reading (an empty plugin id, a plugin id other than
// id, or a zero timestamp) is treated as a plugin error per spec.md §4.1
// "Execution": "malformed output counts as a plugin error, not a Reading."
func (r *Runtime) Run(parent context.Context, id string, p Plugin) (Reading, error) {
	ctx, cancel := context.WithTimeout(parent, r.Timeout)
	defer cancel()

	start := time.Now()
	resultCh := make(chan checkResult, 1)

	go func() {
		reading, err := p.Check(ctx)
		resultCh <- checkResult{reading: reading, err: err}
	}()

	var reading Reading
	var err error

	select {
	case res := <-resultCh:
		reading, err = res.reading, res.err
	case <-ctx.Done():
		err = fmt.Errorf("plugin %q: check abandoned after timeout %s: %w", id, r.Timeout, ctx.Err())
	}

	finished := time.Now()

	if err == nil {
		if validateErr := validate(id, reading); validateErr != nil {
			err = validateErr
		}
	}

	if r.Accountant != nil {
		r.Accountant.record(id, finished.Sub(start), finished, err)
	}

	if err != nil {
		return Reading{}, err
	}
	return reading, nil
}

func validate(id string, r Reading) error {
	if r.PluginID() == "" {
		return fmt.Errorf("plugin %q: malformed reading: empty plugin id", id)
	}
	if r.PluginID() != id {
		return fmt.Errorf("plugin %q: malformed reading: plugin id mismatch %q", id, r.PluginID())
	}
	if r.Timestamp().IsZero() {
		return fmt.Errorf("plugin %q: malformed reading: zero timestamp", id)
	}
	return nil
}
