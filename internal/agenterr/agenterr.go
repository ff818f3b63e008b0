// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package agenterr implements the error taxonomy described in spec.md §7:
// every fallible operation in the agent returns a typed error so the
// Scheduler and CLI can classify and route it without exceptions.
package agenterr

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Kind enumerates the eight error categories from spec.md §7.
type Kind int

const (
	// KindInvalidInput covers configuration parse failures, out-of-range
	// thresholds, and malformed composite rules.
	KindInvalidInput Kind = iota
	// KindMissingResource covers files or directories that do not exist.
	KindMissingResource
	// KindPermissionDenied covers filesystem permission failures.
	KindPermissionDenied
	// KindTransport covers DNS, connect, TLS, and non-2xx HTTP responses.
	KindTransport
	// KindTimeout covers any operation that exceeded its deadline.
	KindTimeout
	// KindPlugin covers a plugin that errored or produced a malformed Reading.
	KindPlugin
	// KindResourceExhaustion covers disk-full or too-many-open-files conditions.
	KindResourceExhaustion
	// KindCritical covers uncaught errors surfaced at the top level.
	KindCritical
)

// String renders the Kind the way it appears in log fields and crash
// reports.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindMissingResource:
		return "missing_resource"
	case KindPermissionDenied:
		return "permission_denied"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindPlugin:
		return "plugin"
	case KindResourceExhaustion:
		return "resource_exhaustion"
	case KindCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error is the carrier for every surfaced agent error. It always exposes a
// short human message, the error kind, the failing resource identifier, and
// a suggested remedy, per spec.md §7 "User-visible behaviour".
type Error struct {
	Kind     Kind
	Resource string
	Message  string
	Remedy   string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Message, e.Resource, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Resource)
}

// Unwrap allows errors.Is/errors.As to reach the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with the given classification.
func New(kind Kind, resource, message, remedy string, cause error) *Error {
	return &Error{Kind: kind, Resource: resource, Message: message, Remedy: remedy, Err: cause}
}

// Is lets callers test `errors.Is(err, agenterr.KindTransport)`-style
// sentinels by kind via a small wrapper; see KindSentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// KindSentinel returns a zero-value *Error carrying only a Kind, suitable
// for `errors.Is(err, agenterr.KindSentinel(agenterr.KindTimeout))`.
func KindSentinel(k Kind) error {
	return &Error{Kind: k}
}

// Recoverable reports whether the propagation policy in spec.md §7 treats
// this kind as locally recoverable without aborting the current tick.
func (k Kind) Recoverable() bool {
	switch k {
	case KindTransport, KindTimeout, KindResourceExhaustion:
		return true
	case KindMissingResource:
		// Reported recoverable for every resource: the kind alone does not
		// say whether the resource is a log directory that can be
		// recreated, and no resource-specific check is made here.
		return true
	default:
		return false
	}
}

// Fatal reports whether the kind alone requires the process to abort with
// a non-zero exit status. Only KindCritical does; KindInvalidInput and
// KindPermissionDenied, which cmd/serversentry treats as fatal at startup,
// report false here.
func (k Kind) Fatal() bool {
	switch k {
	case KindCritical:
		return true
	default:
		return false
	}
}

// CrashReport is the JSON document written alongside any fatal error, per
// spec.md §7 "Fatal errors additionally write a JSON crash report with
// process context."
type CrashReport struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Resource  string    `json:"resource"`
	Message   string    `json:"message"`
	Remedy    string    `json:"remedy"`
	Cause     string    `json:"cause,omitempty"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname,omitempty"`
}

// WriteCrashReport serializes a CrashReport for the given error to path,
// creating parent directories as needed. Failure to write the crash report
// itself is swallowed to the provided fallback writer (typically stderr):
// a crash-reporting failure must never mask the original fatal error.
func WriteCrashReport(path string, err *Error, fallback func(format string, args ...any)) {
	hostname, _ := os.Hostname()
	report := CrashReport{
		Timestamp: time.Now().UTC(),
		Kind:      err.Kind.String(),
		Resource:  err.Resource,
		Message:   err.Message,
		Remedy:    err.Remedy,
		PID:       os.Getpid(),
		Hostname:  hostname,
	}
	if err.Err != nil {
		report.Cause = err.Err.Error()
	}

	data, marshalErr := json.MarshalIndent(report, "", "  ")
	if marshalErr != nil {
		if fallback != nil {
			fallback("agenterr: failed to marshal crash report: %v", marshalErr)
		}
		return
	}

	if writeErr := os.WriteFile(path, data, 0o644); writeErr != nil {
		if fallback != nil {
			fallback("agenterr: failed to write crash report to %s: %v", path, writeErr)
		}
	}
}
