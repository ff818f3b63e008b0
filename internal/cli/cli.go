// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package cli adapts the teacher's Nagios-style terminal exit-state
// reporting (nagios.ExitState, deferred ReturnCheckResults) to
// ServerSentry's own one-shot subcommands and exit-code table (spec.md §6
// "Exit codes": 0 success, 1 warnings present, 2 critical present, 3
// plugin error).
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atc0005/go-nagios"

	"github.com/azzuwayed/serversentry/internal/status"
)

// Reporter accumulates a one-shot run's outcome and emits it as a single
// terminal summary on exit, the same "defer this from the start" pattern
// the teacher's cmd/check_vmware_* entrypoints use.
type Reporter struct {
	state nagios.ExitState
}

// NewReporter returns a Reporter defaulted to the OK state; callers should
// `defer r.Return()` immediately after constructing it so a panic or early
// return still prints a summary.
func NewReporter() *Reporter {
	return &Reporter{state: nagios.ExitState{ExitStatusCode: nagios.StateOKExitCode}}
}

func levelToNagios(l status.Level) (label string, code int) {
	switch l {
	case status.CRITICAL:
		return nagios.StateCRITICALLabel, nagios.StateCRITICALExitCode
	case status.WARNING:
		return nagios.StateWARNINGLabel, nagios.StateWARNINGExitCode
	case status.UNKNOWN:
		return nagios.StateUNKNOWNLabel, nagios.StateUNKNOWNExitCode
	default:
		return nagios.StateOKLabel, nagios.StateOKExitCode
	}
}

// PluginLine is one plugin's reported status for the summary.
type PluginLine struct {
	PluginID string
	Level    status.Level
	Message  string
	Erred    bool
}

// Summarize renders lines into the Reporter's service output, setting the
// overall exit code to the worst non-errored level (plugin errors report
// exit code 3 regardless of level, per spec.md §6).
func (r *Reporter) Summarize(lines []PluginLine) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].PluginID < lines[j].PluginID })

	worst := status.OK
	anyErr := false
	var long strings.Builder
	for _, l := range lines {
		if l.Erred {
			anyErr = true
			fmt.Fprintf(&long, "%s: PLUGIN ERROR: %s\n", l.PluginID, l.Message)
			continue
		}
		worst = status.Worse(worst, l.Level)
		fmt.Fprintf(&long, "%s: %s: %s\n", l.PluginID, l.Level, l.Message)
	}

	label, code := levelToNagios(worst)
	r.state.ExitStatusCode = code
	if anyErr {
		r.state.ExitStatusCode = nagios.StateUNKNOWNExitCode
		label = nagios.StateUNKNOWNLabel
	}

	r.state.ServiceOutput = fmt.Sprintf("%s: %d plugin(s) checked", label, len(lines))
	r.state.LongServiceOutput = long.String()
}

// Fail records a fatal error for the summary, forcing a non-OK exit.
func (r *Reporter) Fail(err error) {
	r.state.LastError = err
	r.state.ServiceOutput = fmt.Sprintf("%s: %v", nagios.StateCRITICALLabel, err)
	r.state.ExitStatusCode = nagios.StateCRITICALExitCode
}

// Return prints the accumulated summary and terminates the process with
// the recorded exit code, exactly like the teacher's
// `defer nagiosExitState.ReturnCheckResults()`.
func (r *Reporter) Return() {
	r.state.ReturnCheckResults()
}
