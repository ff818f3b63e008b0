// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package plugin

import (
	"time"

	"github.com/azzuwayed/serversentry/internal/status"
)

// Attribute is a single entry of a Reading's metric attribute bag. Values
// are either a string or a float64; exactly one of the two is set.
type Attribute struct {
	StringValue string
	NumberValue float64
	IsNumber    bool
}

// StringAttr builds a string-valued Attribute.
func StringAttr(v string) Attribute { return Attribute{StringValue: v} }

// NumberAttr builds a numeric Attribute.
func NumberAttr(v float64) Attribute { return Attribute{NumberValue: v, IsNumber: true} }

// Reading is the atomic, immutable output of one plugin invocation
// (spec.md §3 "Reading"). Once constructed via NewReading a Reading's
// fields are never mutated; callers that need a derived Reading build a
// new value.
type Reading struct {
	pluginID    string
	timestamp   time.Time
	value       float64
	hasValue    bool
	attributes  map[string]Attribute
	statusLevel status.Level
	message     string
}

// NewReading constructs a Reading. timestamp is recorded as UTC regardless
// of the input's location, matching the "monotonic wall clock, UTC
// seconds" invariant from spec.md §3. attrs is copied defensively so the
// caller's map cannot mutate the Reading after construction.
func NewReading(pluginID string, timestamp time.Time, value float64, hasValue bool, attrs map[string]Attribute, level status.Level, message string) Reading {
	copied := make(map[string]Attribute, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return Reading{
		pluginID:    pluginID,
		timestamp:   timestamp.UTC(),
		value:       value,
		hasValue:    hasValue,
		attributes:  copied,
		statusLevel: level,
		message:     message,
	}
}

// PluginID returns the stable identifier of the plugin that produced this
// Reading.
func (r Reading) PluginID() string { return r.pluginID }

// Timestamp returns the UTC instant the Reading was produced.
func (r Reading) Timestamp() time.Time { return r.timestamp }

// Value returns the primary floating-point value and whether it is
// present. A Reading with !ok carries no numeric value and must be
// classified UNKNOWN by the Threshold Evaluator.
func (r Reading) Value() (v float64, ok bool) { return r.value, r.hasValue }

// Attribute looks up a single attribute by name.
func (r Reading) Attribute(name string) (Attribute, bool) {
	a, ok := r.attributes[name]
	return a, ok
}

// Attributes returns a defensive copy of the full attribute bag.
func (r Reading) Attributes() map[string]Attribute {
	copied := make(map[string]Attribute, len(r.attributes))
	for k, v := range r.attributes {
		copied[k] = v
	}
	return copied
}

// Status returns the Reading's status level: the level passed to
// NewReading until the Scheduler replaces it, via WithStatus, with the
// Threshold Evaluator's classification.
func (r Reading) Status() status.Level { return r.statusLevel }

// WithStatus returns a copy of the Reading with its status level replaced.
// Readings are immutable; this never mutates r.
func (r Reading) WithStatus(level status.Level, message string) Reading {
	r.statusLevel = level
	r.message = message
	return r
}

// Message returns the human-readable status message.
func (r Reading) Message() string { return r.message }
