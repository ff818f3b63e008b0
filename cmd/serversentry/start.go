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
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/azzuwayed/serversentry/internal/config"
	"github.com/azzuwayed/serversentry/internal/observability"
	"github.com/azzuwayed/serversentry/internal/scheduler"
)

// shutdownGrace bounds how long a daemon waits for in-flight dispatches to
// drain after the first termination signal (spec.md §5 "Lifecycle": "wait
// up to 5s for pending dispatches, then exit").
const shutdownGrace = 5 * time.Second

// metricsAddr is the fixed /metrics bind address; daemon-only, never
// started for one-shot subcommands.
const metricsAddr = ":9110"

func runStart(args []string) error {
	cfg, err := buildConfig(config.CommandType{Start: true}, args)
	if err != nil {
		return reportConfigErr(err)
	}

	if err := writePIDFile(cfg.System.PIDFile); err != nil {
		return err
	}
	defer os.Remove(cfg.System.PIDFile)

	sched, err := scheduler.Build(cfg)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	metricsSrv := observability.NewServer(metricsAddr, metrics, cfg.Log)
	metricsSrv.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	if err := os.MkdirAll(cfg.System.LogDir, 0o755); err != nil {
		return fmt.Errorf("serversentry: creating log directory: %w", err)
	}
	traceFile, err := os.OpenFile(filepath.Join(cfg.System.LogDir, "trace.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("serversentry: opening trace log: %w", err)
	}
	defer traceFile.Close()

	tracerProvider, err := observability.NewTracerProvider(traceFile)
	if err != nil {
		return fmt.Errorf("serversentry: starting tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = tracerProvider.Shutdown(shutdownCtx)
	}()
	tracer := observability.Tracer(tracerProvider)
	sched.SetTracer(tracer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.CheckInterval())
	defer ticker.Stop()

	cfg.Log.Info().
		Int("pid", os.Getpid()).
		Dur("interval", cfg.CheckInterval()).
		Int("plugin_count", len(cfg.Plugins.Enabled)).
		Msg("serversentry daemon started")

	for {
		select {
		case <-sigCh:
			cfg.Log.Info().Msg("shutdown signal received, draining in-flight work")
			cancel()
			drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownGrace)
			select {
			case <-sigCh:
				cfg.Log.Warn().Msg("second signal received, exiting immediately")
			case <-drainCtx.Done():
			}
			drainCancel()
			return nil
		case <-ticker.C:
			tickCtx, span, correlationID := observability.StartTick(ctx, tracer)
			result := sched.Tick(tickCtx)
			span.End()

			metrics.ObserveTick(time.Since(result.StartedAt).Seconds(), result.Partial)
			metrics.ObservePlugins(sched.Accountant().All())
			metrics.ObserveDispatch(result.DispatchOutcomes)
			if result.Partial {
				cfg.Log.Warn().Str("correlation_id", correlationID).Msg("tick truncated: exceeded per-tick budget")
			}
		}
	}
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("serversentry: creating directory for pid file: %w", err)
	}
	if existing, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(string(trimTrailingNewline(existing))); perr == nil && processAlive(pid) {
			return fmt.Errorf("serversentry: daemon already running (pid %d)", pid)
		}
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func trimTrailingNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
