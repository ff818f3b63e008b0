// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package builtin

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/azzuwayed/serversentry/internal/plugin"
	"github.com/azzuwayed/serversentry/internal/status"
)

// sampleInterval is the fixed 1s window spec.md §4.1 mandates for the cpu
// plugin's utilisation sample.
const sampleInterval = 1 * time.Second

// CPU is the built-in "cpu" plugin: percent utilisation over a 1s sampling
// interval, with load-average and top-consumer attributes (spec.md §4.1).
type CPU struct {
	warning, critical float64
	procPath          string
}

// NewCPU returns a CPU plugin with the package defaults applied; Configure
// overrides warning/critical from loaded configuration.
func NewCPU() *CPU {
	return &CPU{warning: 70, critical: 85, procPath: "/proc"}
}

// Info implements plugin.Plugin.
func (c *CPU) Info() plugin.Info {
	return plugin.Info{
		Name:               "cpu",
		Version:            "1.0.0",
		DeclaredAttributes: []string{"load1", "load5", "load15", "top_consumers"},
		DefaultWarning:     70,
		DefaultCritical:    85,
	}
}

// Configure implements plugin.Plugin.
func (c *CPU) Configure(cfg map[string]any) error {
	if v, ok := cfg["warning_threshold"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("cpu: warning_threshold: %w", err)
		}
		c.warning = f
	}
	if v, ok := cfg["critical_threshold"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("cpu: critical_threshold: %w", err)
		}
		c.critical = f
	}
	if c.critical < c.warning {
		return fmt.Errorf("cpu: critical_threshold (%v) must be >= warning_threshold (%v)", c.critical, c.warning)
	}
	return nil
}

// Check implements plugin.Plugin.
func (c *CPU) Check(ctx context.Context) (plugin.Reading, error) {
	before, err := readCPUTotals(c.procPath)
	if err != nil {
		return plugin.Reading{}, fmt.Errorf("cpu: %w", err)
	}

	select {
	case <-time.After(sampleInterval):
	case <-ctx.Done():
		return plugin.Reading{}, ctx.Err()
	}

	after, err := readCPUTotals(c.procPath)
	if err != nil {
		return plugin.Reading{}, fmt.Errorf("cpu: %w", err)
	}

	pct := cpuPercent(before, after)

	attrs := map[string]plugin.Attribute{}
	if load, loadErr := readLoadAvg(c.procPath); loadErr == nil {
		attrs["load1"] = plugin.NumberAttr(load[0])
		attrs["load5"] = plugin.NumberAttr(load[1])
		attrs["load15"] = plugin.NumberAttr(load[2])
	}
	if top, topErr := topConsumers(c.procPath, 3); topErr == nil {
		attrs["top_consumers"] = plugin.StringAttr(strings.Join(top, ","))
	}

	return plugin.NewReading("cpu", time.Now(), pct, true, attrs, status.OK, fmt.Sprintf("cpu utilisation %.1f%%", pct)), nil
}

type cpuTotals struct {
	idle, total uint64
}

func readCPUTotals(procPath string) (cpuTotals, error) {
	f, err := os.Open(procPath + "/stat")
	if err != nil {
		return cpuTotals{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return cpuTotals{}, fmt.Errorf("empty /proc/stat")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return cpuTotals{}, fmt.Errorf("unexpected /proc/stat format")
	}

	var total uint64
	var idle uint64
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			continue
		}
		total += v
		// index 3 (0-based within the numeric fields) is "idle".
		if i == 3 {
			idle = v
		}
	}
	return cpuTotals{idle: idle, total: total}, nil
}

func cpuPercent(before, after cpuTotals) float64 {
	totalDelta := after.total - before.total
	idleDelta := after.idle - before.idle
	if totalDelta == 0 {
		return 0
	}
	used := float64(totalDelta-idleDelta) / float64(totalDelta) * 100
	if used < 0 {
		return 0
	}
	if used > 100 {
		return 100
	}
	return used
}

func readLoadAvg(procPath string) ([3]float64, error) {
	data, err := os.ReadFile(procPath + "/loadavg")
	if err != nil {
		return [3]float64{}, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return [3]float64{}, fmt.Errorf("unexpected /proc/loadavg format")
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return [3]float64{}, err
		}
		out[i] = v
	}
	return out, nil
}

type procCPU struct {
	pid   string
	ticks uint64
}

// topConsumers returns up to n pids (without process names) sorted by cumulative CPU
// ticks (utime+stime from /proc/<pid>/stat), best-effort: unreadable
// entries (raced process exit) are skipped rather than failing the check.
func topConsumers(procPath string, n int) ([]string, error) {
	entries, err := os.ReadDir(procPath)
	if err != nil {
		return nil, err
	}

	var procs []procCPU
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		data, err := os.ReadFile(procPath + "/" + e.Name() + "/stat")
		if err != nil {
			continue
		}
		// Fields after the ")" that closes the comm field are
		// space-separated; utime/stime are fields 14/15 (1-indexed).
		closeParen := strings.LastIndexByte(string(data), ')')
		if closeParen < 0 || closeParen+2 >= len(data) {
			continue
		}
		rest := strings.Fields(string(data[closeParen+2:]))
		if len(rest) < 15 {
			continue
		}
		utime, err1 := strconv.ParseUint(rest[11], 10, 64)
		stime, err2 := strconv.ParseUint(rest[12], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		procs = append(procs, procCPU{pid: e.Name(), ticks: utime + stime})
	}

	sort.Slice(procs, func(i, j int) bool { return procs[i].ticks > procs[j].ticks })
	if len(procs) > n {
		procs = procs[:n]
	}

	out := make([]string, 0, len(procs))
	for _, p := range procs {
		out = append(out, p.pid)
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
