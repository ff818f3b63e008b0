// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package main

import (
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/azzuwayed/serversentry/internal/config"
)

// runStop implements `stop`: reads the configured PID file and sends
// SIGTERM to the running daemon (spec.md §6 "Signal a running daemon").
func runStop(args []string) error {
	cfg, err := buildConfig(config.CommandType{Stop: true}, args)
	if err != nil {
		return reportConfigErr(err)
	}

	data, err := os.ReadFile(cfg.System.PIDFile)
	if err != nil {
		return fmt.Errorf("serversentry: reading pid file %s: %w", cfg.System.PIDFile, err)
	}

	pid, err := strconv.Atoi(string(trimTrailingNewline(data)))
	if err != nil {
		return fmt.Errorf("serversentry: pid file %s is corrupt: %w", cfg.System.PIDFile, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("serversentry: finding process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("serversentry: signalling process %d: %w", pid, err)
	}

	fmt.Printf("sent SIGTERM to serversentry (pid %d)\n", pid)
	return nil
}
