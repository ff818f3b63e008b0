// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package threshold implements the Threshold Evaluator (spec.md §4.3):
// mapping a Reading and a per-plugin threshold configuration to a Status,
// with hysteresis on de-escalation and a minimum-consecutive-samples gate
// on escalation.
package threshold

import (
	"fmt"
	"time"

	"github.com/azzuwayed/serversentry/internal/status"
)

// Direction selects which side of the comparison is "bad" for a metric.
type Direction int

const (
	// GreaterIsBad is used by cpu, memory, disk: higher values are worse.
	GreaterIsBad Direction = iota
	// LessIsBad reverses both comparisons (e.g. free-space-remaining style
	// metrics).
	LessIsBad
)

// Config is the per-plugin threshold configuration from spec.md §3
// "Threshold configuration".
type Config struct {
	Warning        float64
	Critical       float64
	Direction      Direction
	HysteresisBand float64
	MinConsecutive int
}

// Validate enforces the spec.md §3 invariant: "warning and critical are on
// the same side of the comparison and ordered consistently with
// direction."
func (c Config) Validate() error {
	if c.MinConsecutive < 1 {
		return fmt.Errorf("threshold: min_consecutive must be >= 1, got %d", c.MinConsecutive)
	}
	if c.HysteresisBand < 0 {
		return fmt.Errorf("threshold: hysteresis band must be >= 0, got %v", c.HysteresisBand)
	}
	switch c.Direction {
	case GreaterIsBad:
		if c.Critical < c.Warning {
			return fmt.Errorf("threshold: critical (%v) must be >= warning (%v) for greater-is-bad", c.Critical, c.Warning)
		}
	case LessIsBad:
		if c.Critical > c.Warning {
			return fmt.Errorf("threshold: critical (%v) must be <= warning (%v) for less-is-bad", c.Critical, c.Warning)
		}
	default:
		return fmt.Errorf("threshold: unknown direction %v", c.Direction)
	}
	return nil
}

// State is the per-alert-key memory the evaluator carries between ticks:
// the currently held Level, an in-progress escalation candidate (band and
// consecutive count), and the timestamp of the last transition. State is a
// plain value so Evaluate can remain a pure function of (State, reading,
// Config) per spec.md §8's testable property.
type State struct {
	Level            status.Level
	candidateLevel   status.Level
	candidateCount   int
	LastTransitionAt time.Time
}

// classify maps value to a raw Level using cfg's direction, with inclusive
// boundaries: a value exactly at the warning or critical level yields that
// level (spec.md §8 "A plugin returning exactly at the warning level with
// greater-is-bad semantics yields WARNING (inclusive)").
func classify(value float64, cfg Config) status.Level {
	switch cfg.Direction {
	case GreaterIsBad:
		switch {
		case value >= cfg.Critical:
			return status.CRITICAL
		case value >= cfg.Warning:
			return status.WARNING
		default:
			return status.OK
		}
	default: // LessIsBad
		switch {
		case value <= cfg.Critical:
			return status.CRITICAL
		case value <= cfg.Warning:
			return status.WARNING
		default:
			return status.OK
		}
	}
}

// exitBoundary returns the value a reading must cross, inclusive, to leave
// level downward, and whether such a boundary exists (OK/UNKNOWN have
// none).
func exitBoundary(level status.Level, cfg Config) (float64, bool) {
	var base float64
	switch level {
	case status.CRITICAL:
		base = cfg.Critical
	case status.WARNING:
		base = cfg.Warning
	default:
		return 0, false
	}
	if cfg.Direction == GreaterIsBad {
		return base - cfg.HysteresisBand, true
	}
	return base + cfg.HysteresisBand, true
}

func crossedDown(value, boundary float64, dir Direction) bool {
	if dir == GreaterIsBad {
		return value <= boundary
	}
	return value >= boundary
}

// severityRank gives OK/WARNING/CRITICAL a total order for escalation
// comparisons; mirrors status.Escalated's notion of severity without
// exposing it.
func severityRank(l status.Level) int {
	switch l {
	case status.CRITICAL:
		return 2
	case status.WARNING:
		return 1
	default:
		return 0
	}
}

// Evaluate is the pure core of the Threshold Evaluator: given the prior
// State, a reading's value (or its absence), cfg, and the current time, it
// returns the new State and the Level to report for this tick.
//
// UNKNOWN is reserved for readings with no numeric value (spec.md §4.3);
// it never mutates the held Level so that a transient sampling gap does
// not reset hysteresis or escalation progress.
func Evaluate(prev State, value float64, hasValue bool, cfg Config, now time.Time) (State, status.Level) {
	if !hasValue {
		return prev, status.UNKNOWN
	}

	raw := classify(value, cfg)

	switch {
	case raw == prev.Level:
		prev.candidateCount = 0
		return prev, prev.Level

	case severityRank(raw) > severityRank(prev.Level):
		// Escalation: gated by MinConsecutive samples in the new band.
		if prev.candidateLevel == raw {
			prev.candidateCount++
		} else {
			prev.candidateLevel = raw
			prev.candidateCount = 1
		}
		if prev.candidateCount >= max(cfg.MinConsecutive, 1) {
			prev.Level = raw
			prev.LastTransitionAt = now
			prev.candidateCount = 0
			return prev, raw
		}
		return prev, prev.Level

	default:
		// De-escalation: gated by hysteresis, not by MinConsecutive.
		boundary, ok := exitBoundary(prev.Level, cfg)
		if ok && crossedDown(value, boundary, cfg.Direction) {
			prev.Level = raw
			prev.LastTransitionAt = now
			prev.candidateCount = 0
			return prev, raw
		}
		return prev, prev.Level
	}
}
