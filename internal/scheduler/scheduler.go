// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package scheduler implements the Scheduler/Supervisor (spec.md §4.8):
// the tick loop that samples, classifies, evaluates composites, decides
// alerts and dispatches notifications, plus its one-shot and daemon
// lifecycles.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/azzuwayed/serversentry/internal/alertstate"
	"github.com/azzuwayed/serversentry/internal/anomaly"
	"github.com/azzuwayed/serversentry/internal/composite"
	"github.com/azzuwayed/serversentry/internal/history"
	"github.com/azzuwayed/serversentry/internal/notify"
	"github.com/azzuwayed/serversentry/internal/observability"
	"github.com/azzuwayed/serversentry/internal/plugin"
	"github.com/azzuwayed/serversentry/internal/status"
	"github.com/azzuwayed/serversentry/internal/threshold"
)

// DefaultInterval is the spec.md §4.8 default tick interval.
const DefaultInterval = 60 * time.Second

// tickBudgetSlack is subtracted from the interval to derive the default
// per-tick budget (spec.md §5 "Timeouts": "per-tick total budget (default
// = interval - 5s)").
const tickBudgetSlack = 5 * time.Second

// PluginSpec binds a registered plugin to its threshold and anomaly
// configuration.
type PluginSpec struct {
	ID        string
	Threshold threshold.Config
	Anomaly   anomaly.Config
}

// PluginResult is one plugin's full per-tick outcome.
type PluginResult struct {
	Reading plugin.Reading
	Err     error
	Level   status.Level
	Anomaly anomaly.Verdict
}

// TickResult is the aggregate outcome of one Scheduler.Tick call.
type TickResult struct {
	StartedAt        time.Time
	Partial          bool
	Plugins          map[string]PluginResult
	CompositeResults map[string]composite.Tri
	Emissions        []notify.Event
	DispatchOutcomes []notify.ChannelOutcome
}

// WorstLevel returns the most severe Level among non-errored plugin
// results, used to derive the Scheduler's one-shot exit code (spec.md
// §4.8 "Modes").
func (t TickResult) WorstLevel() status.Level {
	worst := status.OK
	for _, r := range t.Plugins {
		if r.Err != nil {
			continue
		}
		worst = status.Worse(worst, r.Level)
	}
	return worst
}

// AnyPluginErred reports whether any plugin check failed outright.
func (t TickResult) AnyPluginErred() bool {
	for _, r := range t.Plugins {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Scheduler owns the tick cadence and wires every other component
// together exactly as spec.md §4.8's tick loop describes.
type Scheduler struct {
	log zerolog.Logger

	registry *plugin.Registry
	runtime  *plugin.Runtime
	specs    map[string]PluginSpec

	history    *history.Store
	resultLog  *anomaly.ResultLog
	composite  *composite.Registry
	alerts     *alertstate.Machine
	dispatcher *notify.Dispatcher
	tracer     oteltrace.Tracer

	interval   time.Duration
	tickBudget time.Duration

	mu             sync.Mutex
	thresholdState map[string]threshold.State
}

// Accountant exposes the Runtime's per-plugin performance counters, for
// observability consumers that fold them into Prometheus gauges.
func (s *Scheduler) Accountant() *plugin.Accountant {
	return s.runtime.Accountant
}

// SetTracer overrides the Scheduler's tracer, used by the daemon lifecycle
// once its TracerProvider is constructed (one-shot commands keep the global
// no-op tracer New sets by default).
func (s *Scheduler) SetTracer(tracer oteltrace.Tracer) {
	s.tracer = tracer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
			s.tickBudget = tickBudget(d)
		}
	}
}

func tickBudget(interval time.Duration) time.Duration {
	if interval <= tickBudgetSlack {
		return interval
	}
	return interval - tickBudgetSlack
}

// New returns a Scheduler wired to its collaborators. specs is keyed by
// plugin id and must match the ids registered in registry.
func New(
	log zerolog.Logger,
	registry *plugin.Registry,
	runtime *plugin.Runtime,
	specs map[string]PluginSpec,
	historyStore *history.Store,
	resultLog *anomaly.ResultLog,
	compositeRegistry *composite.Registry,
	alerts *alertstate.Machine,
	dispatcher *notify.Dispatcher,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		log:            log,
		registry:       registry,
		runtime:        runtime,
		specs:          specs,
		history:        historyStore,
		resultLog:      resultLog,
		composite:      compositeRegistry,
		alerts:         alerts,
		dispatcher:     dispatcher,
		tracer:         otel.Tracer("serversentry/scheduler"),
		interval:       DefaultInterval,
		tickBudget:     tickBudget(DefaultInterval),
		thresholdState: make(map[string]threshold.State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type pluginOutcome struct {
	id      string
	reading plugin.Reading
	err     error
}

// Tick runs exactly one iteration of spec.md §4.8's seven-step loop.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	now := time.Now()
	tickCtx, cancel := context.WithTimeout(ctx, s.tickBudget)
	defer cancel()

	ids := s.registry.Ordered()
	outcomes := make([]pluginOutcome, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			p, ok := s.registry.Get(id)
			if !ok {
				outcomes[i] = pluginOutcome{id: id, err: fmt.Errorf("scheduler: plugin %q vanished from registry", id)}
				return
			}
			stageCtx, span := observability.StartStage(tickCtx, s.tracer, "plugin.check", attribute.String("plugin", id))
			reading, err := s.runtime.Run(stageCtx, id, p)
			span.End()
			outcomes[i] = pluginOutcome{id: id, reading: reading, err: err}
		}(i, id)
	}
	wg.Wait()

	result := TickResult{
		StartedAt:        now,
		Partial:          tickCtx.Err() != nil,
		Plugins:          make(map[string]PluginResult, len(ids)),
		CompositeResults: make(map[string]composite.Tri),
	}
	src := make(composite.Source, len(ids))

	for _, o := range outcomes {
		if o.err != nil {
			result.Plugins[o.id] = PluginResult{Err: o.err}
			s.log.Warn().Str("plugin", o.id).Err(o.err).Msg("plugin check failed")
			continue
		}
		pr := s.classify(o.id, o.reading)
		result.Plugins[o.id] = pr
		src[o.id] = pr.Reading
	}

	for _, rule := range s.composite.Rules() {
		result.CompositeResults[rule.Name] = composite.Eval(rule.Expr, src)
	}

	result.Emissions, result.DispatchOutcomes = s.decideAndDispatch(tickCtx, result, src, now)
	return result
}

// classify runs the Threshold Evaluator and Anomaly Detector in parallel
// for one Reading, records it to the History Store first (spec.md §4.8
// step 3 precedes step 4).
func (s *Scheduler) classify(id string, reading plugin.Reading) PluginResult {
	key := history.SeriesKey{Plugin: id, Metric: "value"}
	value, hasValue := reading.Value()
	if hasValue {
		if err := s.history.Record(key, reading.Timestamp(), value); err != nil {
			s.log.Warn().Str("plugin", id).Err(err).Msg("history record rejected")
		}
	}

	spec := s.specs[id]

	var level status.Level
	var verdict anomaly.Verdict
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.mu.Lock()
		prev := s.thresholdState[id]
		s.mu.Unlock()
		next, lvl := threshold.Evaluate(prev, value, hasValue, spec.Threshold, reading.Timestamp())
		s.mu.Lock()
		s.thresholdState[id] = next
		s.mu.Unlock()
		level = lvl
	}()

	go func() {
		defer wg.Done()
		if spec.Anomaly.Enabled && hasValue {
			verdict = anomaly.DetectFromHistory(s.history, key, spec.Anomaly)
			if err := s.resultLog.Append(id, key.Metric, reading.Timestamp(), verdict); err != nil {
				s.log.Warn().Str("plugin", id).Err(err).Msg("anomaly result log append failed")
			}
		}
	}()
	wg.Wait()

	return PluginResult{
		Reading: reading.WithStatus(level, reading.Message()),
		Level:   level,
		Anomaly: verdict,
	}
}
