// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package builtin

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/azzuwayed/serversentry/internal/plugin"
	"github.com/azzuwayed/serversentry/internal/status"
)

// Process is the built-in "process" plugin: the primary value is the
// count of configured process names that are not currently running
// (spec.md §4.1).
type Process struct {
	names             []string
	warning, critical float64
	procPath          string
}

// NewProcess returns a Process plugin with no configured names; Configure
// must supply at least one name before Check is useful.
func NewProcess() *Process {
	return &Process{warning: 1, critical: 1, procPath: "/proc"}
}

// Info implements plugin.Plugin.
func (p *Process) Info() plugin.Info {
	return plugin.Info{
		Name:               "process",
		Version:            "1.0.0",
		DeclaredAttributes: []string{"missing", "monitored_count"},
		DefaultWarning:     1,
		DefaultCritical:    1,
	}
}

// Configure implements plugin.Plugin.
func (p *Process) Configure(cfg map[string]any) error {
	if v, ok := cfg["names"]; ok {
		switch t := v.(type) {
		case []string:
			p.names = t
		case []any:
			names := make([]string, 0, len(t))
			for _, item := range t {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("process: names must be strings")
				}
				names = append(names, s)
			}
			p.names = names
		default:
			return fmt.Errorf("process: names must be a list of strings")
		}
	}
	if len(p.names) == 0 {
		return fmt.Errorf("process: at least one process name must be configured")
	}
	if v, ok := cfg["warning_threshold"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("process: warning_threshold: %w", err)
		}
		p.warning = f
	}
	if v, ok := cfg["critical_threshold"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("process: critical_threshold: %w", err)
		}
		p.critical = f
	}
	return nil
}

// Check implements plugin.Plugin.
func (p *Process) Check(ctx context.Context) (plugin.Reading, error) {
	select {
	case <-ctx.Done():
		return plugin.Reading{}, ctx.Err()
	default:
	}

	running, err := runningCommNames(p.procPath)
	if err != nil {
		return plugin.Reading{}, fmt.Errorf("process: %w", err)
	}

	var missing []string
	for _, name := range p.names {
		if !running[name] {
			missing = append(missing, name)
		}
	}

	attrs := map[string]plugin.Attribute{
		"missing":         plugin.StringAttr(strings.Join(missing, ",")),
		"monitored_count": plugin.NumberAttr(float64(len(p.names))),
	}

	return plugin.NewReading("process", time.Now(), float64(len(missing)), true, attrs, status.OK,
		fmt.Sprintf("%d of %d monitored processes missing", len(missing), len(p.names))), nil
}

// runningCommNames reads /proc/<pid>/comm for every numeric pid directory
// and returns the set of process names currently running.
func runningCommNames(procPath string) (map[string]bool, error) {
	entries, err := os.ReadDir(procPath)
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		data, err := os.ReadFile(procPath + "/" + e.Name() + "/comm")
		if err != nil {
			continue
		}
		names[strings.TrimSpace(string(data))] = true
	}
	return names, nil
}
