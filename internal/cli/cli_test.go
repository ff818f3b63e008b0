// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package cli

import (
	"errors"
	"testing"

	"github.com/atc0005/go-nagios"
	"github.com/stretchr/testify/assert"

	"github.com/azzuwayed/serversentry/internal/status"
)

func TestSummarizeAllOKExitsZero(t *testing.T) {
	r := NewReporter()
	r.Summarize([]PluginLine{
		{PluginID: "cpu", Level: status.OK, Message: "12%"},
		{PluginID: "memory", Level: status.OK, Message: "40%"},
	})
	assert.Equal(t, nagios.StateOKExitCode, r.state.ExitStatusCode)
}

func TestSummarizeWorstLevelWins(t *testing.T) {
	r := NewReporter()
	r.Summarize([]PluginLine{
		{PluginID: "cpu", Level: status.WARNING, Message: "85%"},
		{PluginID: "disk", Level: status.CRITICAL, Message: "98%"},
	})
	assert.Equal(t, nagios.StateCRITICALExitCode, r.state.ExitStatusCode)
}

func TestSummarizePluginErrorForcesUnknown(t *testing.T) {
	r := NewReporter()
	r.Summarize([]PluginLine{
		{PluginID: "cpu", Level: status.OK, Message: "12%"},
		{PluginID: "gpu", Erred: true, Message: "check abandoned after timeout"},
	})
	assert.Equal(t, nagios.StateUNKNOWNExitCode, r.state.ExitStatusCode)
}

func TestFailSetsCriticalExitCode(t *testing.T) {
	r := NewReporter()
	r.Fail(errors.New("config: reading serversentry.yaml: permission denied"))
	assert.Equal(t, nagios.StateCRITICALExitCode, r.state.ExitStatusCode)
	assert.Error(t, r.state.LastError)
}
