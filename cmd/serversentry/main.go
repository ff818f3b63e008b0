// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Command serversentry is the host-resident monitoring agent: a single
// binary exposing status/start/stop/check/anomaly/composite/webhook
// subcommands over the same Scheduler tick loop (spec.md §6 "CLI
// surface").
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/azzuwayed/serversentry/internal/agenterr"
	"github.com/azzuwayed/serversentry/internal/cli"
	"github.com/azzuwayed/serversentry/internal/config"
)

func main() {
	defer recoverPanic()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(3)
	}

	sub := os.Args[1]
	rest := os.Args[2:]

	var err error
	switch sub {
	case "status":
		err = runStatus(rest)
	case "start":
		err = runStart(rest)
	case "stop":
		err = runStop(rest)
	case "check":
		err = runCheck(rest)
	case "anomaly":
		err = runAnomalyTest(rest)
	case "composite":
		err = runCompositeTest(rest)
	case "webhook":
		err = runWebhookTest(rest)
	case "-version", "--version", "version":
		fmt.Println(config.Version())
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(3)
	}

	if err != nil {
		handleFatal(err)
	}
}

// recoverPanic catches an uncaught top-level panic, writes a crash report
// and exits non-zero rather than letting the runtime print a bare stack
// trace to stderr.
func recoverPanic() {
	if r := recover(); r != nil {
		agErr := agenterr.New(agenterr.KindCritical, "process", fmt.Sprintf("panic: %v", r), "restart the agent and inspect the crash report", nil)
		writeCrashReport(agErr)
		fmt.Fprintf(os.Stderr, "serversentry: fatal: %v\n", r)
		os.Exit(3)
	}
}

// handleFatal classifies a top-level command error, writing a crash report
// for the startup failures the error taxonomy treats as fatal (config parse,
// filesystem permission), then reports the failure through the normal
// one-shot exit-state path.
func handleFatal(err error) {
	if agErr := classifyFatal(err); agErr != nil {
		writeCrashReport(agErr)
	}
	r := cli.NewReporter()
	r.Fail(err)
	r.Return()
}

func classifyFatal(err error) *agenterr.Error {
	var existing *agenterr.Error
	if errors.As(err, &existing) {
		return existing
	}
	if errors.Is(err, os.ErrPermission) {
		return agenterr.New(agenterr.KindPermissionDenied, "filesystem", err.Error(), "check permissions on the configured state and log directories", err)
	}
	return nil
}

func writeCrashReport(agErr *agenterr.Error) {
	path := filepath.Join(os.TempDir(), "serversentry-crash.json")
	agenterr.WriteCrashReport(path, agErr, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
}

const usage = `usage: serversentry <command> [flags]

commands:
  status              print one-shot snapshot (no sends)
  start               run as daemon
  stop                signal a running daemon
  check [plugin]      one-shot tick; if plugin given, check only that plugin
  anomaly test        force anomaly evaluation on current history
  composite test      evaluate composite rules with current state
  webhook test        send a synthetic test event to every enabled channel`

// subcommandArg strips a required sub-subcommand token ("anomaly test",
// "composite test", "webhook test") before flag parsing.
func subcommandArg(args []string, name string) []string {
	if len(args) > 0 && args[0] == name {
		return args[1:]
	}
	return args
}

func buildConfig(cmd config.CommandType, args []string) (*config.Config, error) {
	cfg, err := config.New(cmd, args)
	if err != nil {
		if errors.Is(err, config.ErrVersionRequested) {
			return nil, err
		}
		return nil, agenterr.New(agenterr.KindInvalidInput, "config", "failed to load configuration", "check the config file path and YAML syntax", err)
	}
	if cmd.Start && !cfg.System.Enabled {
		return nil, fmt.Errorf("serversentry: system.enabled is false, refusing to start")
	}
	return cfg, nil
}
