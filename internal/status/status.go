// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package status defines the four-valued severity level shared by
// Readings, the Threshold Evaluator, the Composite Evaluator and the Alert
// State Machine (spec.md §4.3).
package status

// Level is a classification of a Reading or an alert key, ordered from
// least to most severe for the purposes of escalation comparisons.
type Level int

const (
	// OK indicates the monitored value is within normal bounds.
	OK Level = iota
	// WARNING indicates the value has crossed the warning band.
	WARNING
	// CRITICAL indicates the value has crossed the critical band.
	CRITICAL
	// UNKNOWN is reserved for readings whose primary value is absent or
	// non-numeric; for escalation purposes it ranks below OK (see severity),
	// so it never counts as an escalation.
	UNKNOWN
)

// String renders the Level the way it appears in log fields, notification
// templates ({status_text}) and exit-code mapping.
func (l Level) String() string {
	switch l {
	case OK:
		return "OK"
	case WARNING:
		return "WARNING"
	case CRITICAL:
		return "CRITICAL"
	case UNKNOWN:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// Code returns the exit-code-style numeric representation used by the CLI
// (spec.md §6 "Exit codes") and by Nagios-style plugin output: 0=OK,
// 1=WARNING, 2=CRITICAL, 3=UNKNOWN.
func (l Level) Code() int {
	switch l {
	case OK:
		return 0
	case WARNING:
		return 1
	case CRITICAL:
		return 2
	default:
		return 3
	}
}

// severity assigns a total order to OK/WARNING/CRITICAL for escalation
// comparisons; UNKNOWN is treated as strictly less severe than OK so that
// an UNKNOWN reading never masquerades as an escalation.
func severity(l Level) int {
	switch l {
	case CRITICAL:
		return 3
	case WARNING:
		return 2
	case OK:
		return 1
	default: // UNKNOWN
		return 0
	}
}

// Escalated reports whether next is a more severe level than prev, used by
// the Alert State Machine to detect WARNING->CRITICAL escalation within a
// single FIRING run (spec.md §4.6).
func Escalated(prev, next Level) bool {
	return severity(next) > severity(prev)
}

// Worse returns the more severe of a and b, per the severity ordering.
func Worse(a, b Level) Level {
	if severity(b) > severity(a) {
		return b
	}
	return a
}
