// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package observability exposes the daemon's internal state to operators:
// Prometheus counters and gauges derived from the plugin Accountant and
// Dispatcher outcomes, and an OpenTelemetry tracer emitting one span per
// tick. Neither surface is consulted by the Scheduler itself; both are
// read-only reflections of what already happened (spec.md Non-goals:
// metrics/tracing are observation, never control).
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/azzuwayed/serversentry/internal/notify"
	"github.com/azzuwayed/serversentry/internal/plugin"
)

// Metrics holds the process's Prometheus collectors, grouped the way the
// Scheduler's own tick stages are grouped: plugin execution, alert
// dispatch, and the tick as a whole. The History Store has no collector.
type Metrics struct {
	registry *prometheus.Registry

	pluginInvocations *prometheus.GaugeVec
	pluginErrors      *prometheus.GaugeVec
	pluginDuration    *prometheus.GaugeVec

	dispatchOutcomes *prometheus.CounterVec
	dispatchRetries  *prometheus.CounterVec

	tickDuration prometheus.Histogram
	tickErrors   prometheus.Counter
}

// NewMetrics registers every collector against a fresh registry and returns
// it ready for Observe* calls.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		pluginInvocations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "serversentry",
			Subsystem: "plugin",
			Name:      "invocations",
			Help:      "Cumulative plugin check invocations since process start, by plugin id.",
		}, []string{"plugin"}),
		pluginErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "serversentry",
			Subsystem: "plugin",
			Name:      "errors",
			Help:      "Cumulative plugin check failures since process start (including timeout-abandoned checks), by plugin id.",
		}, []string{"plugin"}),
		pluginDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "serversentry",
			Subsystem: "plugin",
			Name:      "last_duration_seconds",
			Help:      "Duration of the most recent check, by plugin id.",
		}, []string{"plugin"}),
		dispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serversentry",
			Subsystem: "dispatch",
			Name:      "outcomes_total",
			Help:      "Notification dispatch outcomes, by channel and result.",
		}, []string{"channel", "result"}),
		dispatchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serversentry",
			Subsystem: "dispatch",
			Name:      "retries_total",
			Help:      "Notification dispatch retry attempts, by channel.",
		}, []string{"channel"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "serversentry",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of a complete scheduler tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		tickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "serversentry",
			Subsystem: "scheduler",
			Name:      "tick_partial_total",
			Help:      "Ticks that exceeded their per-tick budget (TickResult.Partial).",
		}),
	}

	reg.MustRegister(
		m.pluginInvocations, m.pluginErrors, m.pluginDuration,
		m.dispatchOutcomes, m.dispatchRetries,
		m.tickDuration, m.tickErrors,
	)
	return m
}

// Registry exposes the underlying prometheus.Registry for a /metrics
// handler (see Handler in server.go).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePlugins folds an Accountant snapshot into the plugin collectors.
// Called once per tick with the Runtime's Accountant.
func (m *Metrics) ObservePlugins(stats map[string]plugin.Stats) {
	for id, s := range stats {
		m.pluginInvocations.WithLabelValues(id).Set(float64(s.Invocations))
		m.pluginErrors.WithLabelValues(id).Set(float64(s.Errors))
		m.pluginDuration.WithLabelValues(id).Set(s.LastDuration.Seconds())
	}
}

// ObserveDispatch records one channel's outcome for the current tick.
func (m *Metrics) ObserveDispatch(outcomes []notify.ChannelOutcome) {
	for _, o := range outcomes {
		m.dispatchOutcomes.WithLabelValues(o.Channel, o.Result.String()).Inc()
		if o.Retries > 0 {
			m.dispatchRetries.WithLabelValues(o.Channel).Add(float64(o.Retries))
		}
	}
}

// ObserveTick records a tick's wall-clock duration and whether it ended
// partial (its per-tick budget expired before the plugin checks finished).
func (m *Metrics) ObserveTick(durationSeconds float64, partial bool) {
	m.tickDuration.Observe(durationSeconds)
	if partial {
		m.tickErrors.Inc()
	}
}
