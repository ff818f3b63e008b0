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

	"github.com/azzuwayed/serversentry/internal/cli"
	"github.com/azzuwayed/serversentry/internal/config"
	"github.com/azzuwayed/serversentry/internal/scheduler"
)

// runCheck implements `check [plugin]`: a single tick, dispatching any
// alerts it raises, then reporting the worst non-errored level as the
// process exit code, or 3 when any plugin erred (spec.md §6 "Exit codes").
func runCheck(args []string) error {
	cfg, err := buildConfig(config.CommandType{Check: true}, args)
	if err != nil {
		return reportConfigErr(err)
	}
	return oneShotTick(cfg, false)
}

// runStatus implements `status`: a tick with dispatch disabled, so no
// notification is sent (spec.md §6 "Print one-shot snapshot (no sends)").
// The tick still records history, the anomaly result log and alert state.
func runStatus(args []string) error {
	cfg, err := buildConfig(config.CommandType{Status: true}, args)
	if err != nil {
		return reportConfigErr(err)
	}
	return oneShotTick(cfg, true)
}

func reportConfigErr(err error) error {
	if err == config.ErrVersionRequested {
		fmt.Println(config.Version())
		return nil
	}
	return err
}

func oneShotTick(cfg *config.Config, suppressDispatch bool) error {
	if cfg.PluginFilter != "" {
		cfg.Plugins.Enabled = []string{cfg.PluginFilter}
	}
	if suppressDispatch {
		cfg.Notifications.Enabled = false
	}

	sched, err := scheduler.Build(cfg)
	if err != nil {
		return err
	}

	result := sched.Tick(context.Background())

	r := cli.NewReporter()
	lines := make([]cli.PluginLine, 0, len(result.Plugins))
	for id, pr := range result.Plugins {
		if pr.Err != nil {
			lines = append(lines, cli.PluginLine{PluginID: id, Erred: true, Message: pr.Err.Error()})
			continue
		}
		lines = append(lines, cli.PluginLine{PluginID: id, Level: pr.Level, Message: pr.Reading.Message()})
	}
	r.Summarize(lines)
	r.Return()
	return nil
}
