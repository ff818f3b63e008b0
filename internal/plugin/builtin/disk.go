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
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"github.com/azzuwayed/serversentry/internal/plugin"
	"github.com/azzuwayed/serversentry/internal/status"
)

// Disk is the built-in "disk" plugin: percent used for a configured mount
// (default root), with a largest-directory sketch attribute (spec.md
// §4.1).
type Disk struct {
	warning, critical float64
	mount             string
}

// NewDisk returns a Disk plugin defaulting to the root mount.
func NewDisk() *Disk {
	return &Disk{warning: 80, critical: 90, mount: "/"}
}

// Info implements plugin.Plugin.
func (d *Disk) Info() plugin.Info {
	return plugin.Info{
		Name:               "disk",
		Version:            "1.0.0",
		DeclaredAttributes: []string{"mount", "total_bytes", "used_bytes", "largest_directory"},
		DefaultWarning:     80,
		DefaultCritical:    90,
	}
}

// Configure implements plugin.Plugin.
func (d *Disk) Configure(cfg map[string]any) error {
	if v, ok := cfg["mount"]; ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return fmt.Errorf("disk: mount must be a non-empty string")
		}
		d.mount = s
	}
	if v, ok := cfg["warning_threshold"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("disk: warning_threshold: %w", err)
		}
		d.warning = f
	}
	if v, ok := cfg["critical_threshold"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("disk: critical_threshold: %w", err)
		}
		d.critical = f
	}
	if d.critical < d.warning {
		return fmt.Errorf("disk: critical_threshold (%v) must be >= warning_threshold (%v)", d.critical, d.warning)
	}
	return nil
}

// Check implements plugin.Plugin.
func (d *Disk) Check(ctx context.Context) (plugin.Reading, error) {
	select {
	case <-ctx.Done():
		return plugin.Reading{}, ctx.Err()
	default:
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(d.mount, &stat); err != nil {
		return plugin.Reading{}, fmt.Errorf("disk: statfs %q: %w", d.mount, err)
	}

	total := float64(stat.Blocks) * float64(stat.Bsize)
	free := float64(stat.Bavail) * float64(stat.Bsize)
	used := total - free
	var pct float64
	if total > 0 {
		pct = used / total * 100
	}

	attrs := map[string]plugin.Attribute{
		"mount":       plugin.StringAttr(d.mount),
		"total_bytes": plugin.NumberAttr(total),
		"used_bytes":  plugin.NumberAttr(used),
	}
	if largest, size, err := largestSubdirectory(d.mount); err == nil && largest != "" {
		attrs["largest_directory"] = plugin.StringAttr(fmt.Sprintf("%s (%d bytes)", largest, size))
	}

	return plugin.NewReading("disk", time.Now(), pct, true, attrs, status.OK, fmt.Sprintf("disk utilisation %.1f%% on %s", pct, d.mount)), nil
}

type dirSize struct {
	name string
	size int64
}

// largestSubdirectory is a bounded, non-recursive sketch: it sums the
// apparent size of each immediate child's own files only (not a full
// recursive walk) to stay cheap on large filesystems, matching spec.md's
// "largest-directory sketch" wording rather than promising an exact du(1).
func largestSubdirectory(mount string) (string, int64, error) {
	entries, err := os.ReadDir(mount)
	if err != nil {
		return "", 0, err
	}

	var sizes []dirSize
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(mount, e.Name())
		children, err := os.ReadDir(path)
		if err != nil {
			continue
		}
		var total int64
		for _, c := range children {
			info, err := c.Info()
			if err != nil {
				continue
			}
			if !info.IsDir() {
				total += info.Size()
			}
		}
		sizes = append(sizes, dirSize{name: path, size: total})
	}

	if len(sizes) == 0 {
		return "", 0, nil
	}

	sort.Slice(sizes, func(i, j int) bool { return sizes[i].size > sizes[j].size })
	return sizes[0].name, sizes[0].size, nil
}
