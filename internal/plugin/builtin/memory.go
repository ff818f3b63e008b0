// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package builtin

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"context"

	"github.com/azzuwayed/serversentry/internal/plugin"
	"github.com/azzuwayed/serversentry/internal/status"
)

// Memory is the built-in "memory" plugin: percent of used physical memory,
// excluding buffers/cache where /proc/meminfo distinguishes them (spec.md
// §4.1).
type Memory struct {
	warning, critical float64
	procPath          string
}

// NewMemory returns a Memory plugin with package defaults applied.
func NewMemory() *Memory {
	return &Memory{warning: 80, critical: 90, procPath: "/proc"}
}

// Info implements plugin.Plugin.
func (m *Memory) Info() plugin.Info {
	return plugin.Info{
		Name:               "memory",
		Version:            "1.0.0",
		DeclaredAttributes: []string{"total_bytes", "used_bytes", "available_bytes"},
		DefaultWarning:     80,
		DefaultCritical:    90,
	}
}

// Configure implements plugin.Plugin.
func (m *Memory) Configure(cfg map[string]any) error {
	if v, ok := cfg["warning_threshold"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("memory: warning_threshold: %w", err)
		}
		m.warning = f
	}
	if v, ok := cfg["critical_threshold"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("memory: critical_threshold: %w", err)
		}
		m.critical = f
	}
	if m.critical < m.warning {
		return fmt.Errorf("memory: critical_threshold (%v) must be >= warning_threshold (%v)", m.critical, m.warning)
	}
	return nil
}

// Check implements plugin.Plugin.
func (m *Memory) Check(ctx context.Context) (plugin.Reading, error) {
	select {
	case <-ctx.Done():
		return plugin.Reading{}, ctx.Err()
	default:
	}

	fields, err := readMemInfo(m.procPath)
	if err != nil {
		return plugin.Reading{}, fmt.Errorf("memory: %w", err)
	}

	total, ok := fields["MemTotal"]
	if !ok || total == 0 {
		return plugin.Reading{}, fmt.Errorf("memory: MemTotal missing from /proc/meminfo")
	}

	var available float64
	if v, ok := fields["MemAvailable"]; ok {
		available = v
	} else {
		// Older kernels lack MemAvailable; approximate by excluding
		// buffers/cache from free memory, matching spec.md's "excluding
		// buffers/cache where the platform distinguishes them".
		available = fields["MemFree"] + fields["Buffers"] + fields["Cached"]
	}

	used := total - available
	pct := used / total * 100

	attrs := map[string]plugin.Attribute{
		"total_bytes":     plugin.NumberAttr(total * 1024),
		"used_bytes":      plugin.NumberAttr(used * 1024),
		"available_bytes": plugin.NumberAttr(available * 1024),
	}

	return plugin.NewReading("memory", time.Now(), pct, true, attrs, status.OK, fmt.Sprintf("memory utilisation %.1f%%", pct)), nil
}

func readMemInfo(procPath string) (map[string]float64, error) {
	f, err := os.Open(procPath + "/meminfo")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := line[:idx]
		rest := strings.TrimSpace(line[idx+1:])
		rest = strings.TrimSuffix(rest, " kB")
		parts := strings.Fields(rest)
		if len(parts) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		out[key] = v
	}
	return out, scanner.Err()
}
