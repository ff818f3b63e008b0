// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/azzuwayed/serversentry/internal/anomaly"
	"github.com/azzuwayed/serversentry/internal/composite"
	"github.com/azzuwayed/serversentry/internal/config"
	"github.com/azzuwayed/serversentry/internal/history"
	"github.com/azzuwayed/serversentry/internal/hostinfo"
	"github.com/azzuwayed/serversentry/internal/notify"
	"github.com/azzuwayed/serversentry/internal/scheduler"
	"github.com/azzuwayed/serversentry/internal/status"
)

// runAnomalyTest implements `anomaly test`: re-runs the Anomaly Detector
// against whatever history each enabled plugin has already accumulated,
// without recording a new sample or dispatching (spec.md §6 "Force
// anomaly evaluation on current history").
func runAnomalyTest(args []string) error {
	cfg, err := buildConfig(config.CommandType{AnomalyTest: true}, subcommandArg(args, "test"))
	if err != nil {
		return reportConfigErr(err)
	}

	registry, specs, err := scheduler.BuildRegistry(cfg)
	if err != nil {
		return err
	}

	historyStore := history.NewStore()
	for _, id := range registry.Ordered() {
		spec := specs[id]
		if !spec.Anomaly.Enabled {
			fmt.Printf("%s: anomaly detection disabled\n", id)
			continue
		}
		key := history.SeriesKey{Plugin: id, Metric: "value"}
		if historyStore.Len(key) == 0 {
			fmt.Printf("%s: no history yet\n", id)
			continue
		}
		verdict := anomaly.DetectFromHistory(historyStore, key, spec.Anomaly)
		fmt.Printf("%s: anomaly=%v types=%v z_score=%.2f\n", id, verdict.IsAnomaly, verdict.Types, verdict.ZScore)
	}
	return nil
}

// runCompositeTest implements `composite test`: evaluates every loaded
// composite rule against a fresh one-shot tick's readings, without
// dispatching (spec.md §6 "Evaluate composite rules with current state").
func runCompositeTest(args []string) error {
	cfg, err := buildConfig(config.CommandType{CompositeTest: true}, subcommandArg(args, "test"))
	if err != nil {
		return reportConfigErr(err)
	}
	cfg.Notifications.Enabled = false

	registry, _, err := scheduler.BuildRegistry(cfg)
	if err != nil {
		return err
	}

	compositeRegistry, err := scheduler.BuildCompositeRegistry(cfg)
	if err != nil {
		return err
	}
	if len(compositeRegistry.Rules()) == 0 {
		fmt.Println("no composite rules loaded")
		return nil
	}

	src := make(composite.Source, registry.Len())
	for _, id := range registry.Ordered() {
		p, _ := registry.Get(id)
		reading, err := p.Check(context.Background())
		if err != nil {
			fmt.Printf("%s: check failed: %v\n", id, err)
			continue
		}
		src[id] = reading
	}

	for _, rule := range compositeRegistry.Rules() {
		result := composite.Eval(rule.Expr, src)
		fmt.Printf("%s: %s\n", rule.Name, result)
	}
	return nil
}

// runWebhookTest implements `webhook test`: dispatches a synthetic
// SourceTest event to every enabled channel (spec.md §6 "Send a synthetic
// test event to every enabled channel").
func runWebhookTest(args []string) error {
	cfg, err := buildConfig(config.CommandType{WebhookTest: true}, subcommandArg(args, "test"))
	if err != nil {
		return reportConfigErr(err)
	}

	dispatcher, err := scheduler.BuildDispatcher(cfg)
	if err != nil {
		return err
	}

	host := hostinfo.Collect()
	event := notify.Event{
		Severity:      status.OK,
		Source:        notify.SourceTest,
		SourceID:      "webhook-test",
		StatusCode:    status.OK.Code(),
		StatusMessage: fmt.Sprintf("test notification from %s", host.Hostname),
		Timestamp:     time.Now(),
	}

	outcomes, err := dispatcher.Dispatch(context.Background(), event)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Printf("%s: %s (%v)\n", o.Channel, o.Result, o.Err)
			continue
		}
		fmt.Printf("%s: %s\n", o.Channel, o.Result)
	}
	return nil
}
