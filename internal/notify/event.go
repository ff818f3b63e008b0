// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package notify implements the Notification Dispatcher (spec.md §4.7):
// per-channel rendering, concurrent fan-out, transient-error retry, and a
// global per-(source,severity) cooldown.
package notify

import (
	"strconv"
	"time"

	"github.com/azzuwayed/serversentry/internal/hostinfo"
	"github.com/azzuwayed/serversentry/internal/status"
)

// SourceKind is the origin of a dispatched Event (spec.md §4.7 "Contract").
type SourceKind string

const (
	SourcePlugin    SourceKind = "plugin"
	SourceAnomaly   SourceKind = "anomaly"
	SourceComposite SourceKind = "composite"
	SourceTest      SourceKind = "test"
	SourceInfo      SourceKind = "info"
	SourceRecovery  SourceKind = "recovery"
)

// Event is the unit of work handed to the Dispatcher.
type Event struct {
	Severity      status.Level
	Source        SourceKind
	SourceID      string
	StatusCode    int
	StatusMessage string
	Metrics       map[string]string
	Timestamp     time.Time
	Channels      []string // nil/empty means "all enabled channels"
}

// Placeholders builds the fixed template vocabulary for e (spec.md §3
// "Notification template": hostname, timestamp, status_text, status_code,
// plugin_name, status_message, metrics, color, uptime, load_avg,
// timestamp_epoch).
func Placeholders(e Event, host hostinfo.Snapshot, color string) map[string]string {
	metrics := ""
	for k, v := range e.Metrics {
		if metrics != "" {
			metrics += ", "
		}
		metrics += k + "=" + v
	}

	loadAvg := ""
	for i, v := range host.LoadAvg {
		if i > 0 {
			loadAvg += " "
		}
		loadAvg += strconv.FormatFloat(v, 'f', 2, 64)
	}

	return map[string]string{
		"hostname":        host.Hostname,
		"timestamp":       e.Timestamp.UTC().Format(time.RFC3339),
		"timestamp_epoch": strconv.FormatInt(e.Timestamp.Unix(), 10),
		"status_text":     e.Severity.String(),
		"status_code":     strconv.Itoa(e.StatusCode),
		"plugin_name":     e.SourceID,
		"status_message":  e.StatusMessage,
		"metrics":         metrics,
		"color":           color,
		"uptime":          host.Uptime.String(),
		"load_avg":        loadAvg,
	}
}

// SeverityColor maps a Level to the hex colour used across card/embed
// renderings (spec.md §4.7 "theme colour derived from severity").
func SeverityColor(l status.Level) string {
	switch l {
	case status.CRITICAL:
		return "FF0000"
	case status.WARNING:
		return "FFA500"
	case status.UNKNOWN:
		return "808080"
	default:
		return "00A651"
	}
}

// EventKind names the four template categories a Notification template is
// keyed by (spec.md §3): alert, info, test, recovery.
type EventKind string

const (
	KindAlert    EventKind = "alert"
	KindInfo     EventKind = "info"
	KindTest     EventKind = "test"
	KindRecovery EventKind = "recovery"
)

// Kind maps an Event's SourceKind to its template EventKind.
func (e Event) Kind() EventKind {
	switch e.Source {
	case SourceRecovery:
		return KindRecovery
	case SourceTest:
		return KindTest
	case SourceInfo:
		return KindInfo
	default:
		return KindAlert
	}
}
