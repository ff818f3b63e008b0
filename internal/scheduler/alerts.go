// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/azzuwayed/serversentry/internal/alertstate"
	"github.com/azzuwayed/serversentry/internal/composite"
	"github.com/azzuwayed/serversentry/internal/notify"
	"github.com/azzuwayed/serversentry/internal/observability"
	"github.com/azzuwayed/serversentry/internal/status"
)

const anomalyKeySuffix = ":anomaly"

func compositeKey(name string) string { return "composite:" + name }
func anomalyKey(pluginID string) string { return pluginID + anomalyKeySuffix }

// decideAndDispatch feeds each plugin reading, each plugin's anomaly
// classification, and each composite rule through the Alert State Machine
// in Scheduler order, dispatching any resulting Emission.
func (s *Scheduler) decideAndDispatch(ctx context.Context, result TickResult, src composite.Source, now time.Time) ([]notify.Event, []notify.ChannelOutcome) {
	var emitted []notify.Event
	var outcomes []notify.ChannelOutcome

	for _, id := range s.registry.Ordered() {
		pr, ok := result.Plugins[id]
		if !ok || pr.Err != nil {
			continue
		}
		spec := s.specs[id]

		if event, ok := s.tickPluginAlert(id, pr, spec, now); ok {
			outcomes = append(outcomes, s.dispatch(ctx, event)...)
			emitted = append(emitted, event)
		}
		if event, ok := s.tickAnomalyAlert(id, spec, now); ok {
			outcomes = append(outcomes, s.dispatch(ctx, event)...)
			emitted = append(emitted, event)
		}
	}

	for _, rule := range s.composite.Rules() {
		if event, ok := s.tickCompositeAlert(rule, result.CompositeResults[rule.Name], src, now); ok {
			outcomes = append(outcomes, s.dispatch(ctx, event)...)
			emitted = append(emitted, event)
		}
	}

	return emitted, outcomes
}

func (s *Scheduler) tickPluginAlert(id string, pr PluginResult, spec PluginSpec, now time.Time) (notify.Event, bool) {
	isNonOK := pr.Level == status.WARNING || pr.Level == status.CRITICAL
	cooldown := alertstate.DefaultCooldown(alertstate.SourcePlugin)

	_, emission := s.alerts.Tick(id, isNonOK, pr.Level, spec.Threshold.MinConsecutive, cooldown, true, now)
	if emission == nil {
		return notify.Event{}, false
	}

	value, _ := pr.Reading.Value()
	event := notify.Event{
		Severity:      emission.Severity,
		Source:        notify.SourcePlugin,
		SourceID:      id,
		StatusCode:    pr.Level.Code(),
		StatusMessage: pr.Reading.Message(),
		Metrics:       map[string]string{"value": fmt.Sprintf("%v", value)},
		Timestamp:     now,
	}
	if emission.Kind == alertstate.EventRecovery {
		event.Source = notify.SourceRecovery
	}
	return event, true
}

func (s *Scheduler) tickAnomalyAlert(id string, spec PluginSpec, now time.Time) (notify.Event, bool) {
	if !spec.Anomaly.Enabled {
		return notify.Event{}, false
	}

	count := s.resultLog.ConsecutiveCount(id, "value", now)
	isNonOK := count >= spec.Anomaly.ConsecutiveThreshold
	cooldown := time.Duration(spec.Anomaly.CooldownSeconds) * time.Second

	_, emission := s.alerts.Tick(anomalyKey(id), isNonOK, status.WARNING, 1, cooldown, true, now)
	if emission == nil {
		return notify.Event{}, false
	}

	event := notify.Event{
		Severity:      emission.Severity,
		Source:        notify.SourceAnomaly,
		SourceID:      id,
		StatusMessage: fmt.Sprintf("anomaly streak of %d consecutive classifications", count),
		Timestamp:     now,
	}
	if emission.Kind == alertstate.EventRecovery {
		event.Source = notify.SourceRecovery
	}
	return event, true
}

func (s *Scheduler) tickCompositeAlert(rule *composite.Rule, tri composite.Tri, src composite.Source, now time.Time) (notify.Event, bool) {
	isNonOK := tri == composite.True
	cooldown := time.Duration(rule.CooldownSeconds) * time.Second

	_, emission := s.alerts.Tick(compositeKey(rule.Name), isNonOK, rule.Severity, 1, cooldown, rule.NotifyOnRecovery, now)
	if emission == nil {
		return notify.Event{}, false
	}
	if emission.Kind == alertstate.EventAlert && !rule.NotifyOnTrigger {
		return notify.Event{}, false
	}

	message := rule.NotificationMessage
	if message == "" {
		message = rule.Description
	}

	event := notify.Event{
		Severity:      emission.Severity,
		Source:        notify.SourceComposite,
		SourceID:      rule.Name,
		StatusMessage: composite.RenderTemplate(message, src),
		Timestamp:     now,
	}
	if emission.Kind == alertstate.EventRecovery {
		event.Source = notify.SourceRecovery
	}
	return event, true
}

func (s *Scheduler) dispatch(ctx context.Context, event notify.Event) []notify.ChannelOutcome {
	ctx, span := observability.StartStage(ctx, s.tracer, "notify.dispatch", attribute.String("source_id", event.SourceID))
	defer span.End()

	outcomes, err := s.dispatcher.Dispatch(ctx, event)
	if err != nil {
		s.log.Warn().Str("source_id", event.SourceID).Err(err).Msg("notification dispatch failed")
	}
	return outcomes
}
