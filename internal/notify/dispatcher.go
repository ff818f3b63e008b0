// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// retryDelays is the fixed exponential backoff schedule on transient_error
// (spec.md §4.7 "Transient retry": 1s, 2s, 4s).
var retryDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// perEventBudget is the total wall-clock cap for one channel's dispatch,
// including retries; anything past it counts as a permanent failure for
// accounting (spec.md §4.7).
const perEventBudget = 15 * time.Second

// DefaultCooldown is the global minimum interval between identical
// (source, severity) pairs (spec.md §4.7 "Cooldown").
const DefaultCooldown = 60 * time.Second

// ChannelOutcome is one channel's final result after retries, returned in
// the Dispatcher's aggregate report.
type ChannelOutcome struct {
	Channel string
	Result  Result
	Err     error
	Retries int
}

// Dispatcher fans an Event out to every enabled Channel concurrently,
// retrying transient errors, and absorbs bursts with a global per-
// (source, severity) cooldown independent of the Alert State Machine's own
// (spec.md §4.7 "Cooldown": "not owned by the dispatcher... enforced at
// this layer").
type Dispatcher struct {
	channels map[string]Channel
	cooldown time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewDispatcher returns a Dispatcher with the given cooldown (use
// DefaultCooldown unless overridden by configuration).
func NewDispatcher(cooldown time.Duration, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		channels: make(map[string]Channel),
		cooldown: cooldown,
		log:      log,
		lastSent: make(map[string]time.Time),
	}
}

// Register adds or replaces a named channel.
func (d *Dispatcher) Register(name string, ch Channel) {
	d.channels[name] = ch
}

func cooldownKey(e Event) string {
	return fmt.Sprintf("%s:%s", e.Source, e.Severity)
}

// Dispatch sends event to every channel in event.Channels (or every
// registered, enabled channel if empty), honouring the global cooldown.
// An event inside its cooldown window is dropped entirely and Dispatch
// returns nil, nil.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) ([]ChannelOutcome, error) {
	d.mu.Lock()
	key := cooldownKey(event)
	if last, ok := d.lastSent[key]; ok && event.Timestamp.Sub(last) < d.cooldown {
		d.mu.Unlock()
		return nil, nil
	}
	d.lastSent[key] = event.Timestamp
	d.mu.Unlock()

	targets := d.targets(event)
	outcomes := make([]ChannelOutcome, len(targets))

	var wg sync.WaitGroup
	for i, name := range targets {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			outcomes[i] = d.sendWithRetry(ctx, name, event)
		}(i, name)
	}
	wg.Wait()

	return outcomes, nil
}

func (d *Dispatcher) targets(event Event) []string {
	if len(event.Channels) > 0 {
		return event.Channels
	}
	names := make([]string, 0, len(d.channels))
	for name, ch := range d.channels {
		if ch.Info().Enabled {
			names = append(names, name)
		}
	}
	return names
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, name string, event Event) ChannelOutcome {
	ch, ok := d.channels[name]
	if !ok {
		return ChannelOutcome{Channel: name, Result: ResultPermanentError, Err: fmt.Errorf("notify: unknown channel %q", name)}
	}

	budget, cancel := context.WithTimeout(ctx, perEventBudget)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		result, err := ch.Send(budget, event)
		if result == ResultOK {
			return ChannelOutcome{Channel: name, Result: ResultOK, Retries: attempt}
		}
		lastErr = err
		if result == ResultPermanentError {
			d.log.Warn().Str("channel", name).Err(err).Msg("notification dispatch failed permanently")
			return ChannelOutcome{Channel: name, Result: ResultPermanentError, Err: err, Retries: attempt}
		}

		if attempt == len(retryDelays) {
			break
		}
		d.log.Debug().Str("channel", name).Int("attempt", attempt+1).Err(err).Msg("retrying transient notification failure")
		select {
		case <-budget.Done():
			return ChannelOutcome{Channel: name, Result: ResultPermanentError, Err: fmt.Errorf("notify: %s exceeded dispatch budget: %w", name, budget.Err()), Retries: attempt}
		case <-time.After(retryDelays[attempt]):
		}
	}

	return ChannelOutcome{Channel: name, Result: ResultPermanentError, Err: fmt.Errorf("notify: %s exhausted retries: %w", name, lastErr), Retries: len(retryDelays)}
}
