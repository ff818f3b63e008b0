// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package hostinfo collects the host-wide fields the webhook envelope and
// notification templates need (spec.md §6 "Webhook JSON envelope":
// hostname, os, kernel, uptime, loadavg) without shelling out, per
// SPEC_FULL.md's supplemented-features note on sourcing these in-process.
package hostinfo

import (
	"net"
	"os"
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

// Snapshot is a point-in-time read of host identity and load.
type Snapshot struct {
	Hostname string
	OS       string
	Kernel   string
	IP       string
	Uptime   time.Duration
	LoadAvg  [3]float64
}

// Collect reads the current host snapshot. If unix.Uname or unix.Sysinfo
// fails, the kernel, load average and uptime fields are left zero rather
// than erroring — they are cosmetic notification
// fields, not evaluated metrics.
func Collect() Snapshot {
	hostname, _ := os.Hostname()
	snap := Snapshot{
		Hostname: hostname,
		OS:       runtime.GOOS,
		IP:       primaryIP(),
	}

	var uname unix.Utsname
	if err := unix.Uname(&uname); err == nil {
		snap.Kernel = cstring(uname.Release[:])
	}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err == nil {
		snap.Uptime = time.Duration(info.Uptime) * time.Second
		scale := float64(1 << unix.SI_LOAD_SHIFT)
		snap.LoadAvg = [3]float64{
			float64(info.Loads[0]) / scale,
			float64(info.Loads[1]) / scale,
			float64(info.Loads[2]) / scale,
		}
	}

	return snap
}

// primaryIP returns the first non-loopback, non-link-local address found
// on an up interface, or "" if none is found.
func primaryIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ip, _, err := net.ParseCIDR(addr.String())
			if err != nil {
				continue
			}
			if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
			return ip.String()
		}
	}
	return ""
}

func cstring(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}
