// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azzuwayed/serversentry/internal/notify"
	"github.com/azzuwayed/serversentry/internal/plugin"
)

func TestObservePluginsSetsGaugesToCurrentTotals(t *testing.T) {
	m := NewMetrics()
	m.ObservePlugins(map[string]plugin.Stats{
		"cpu": {Invocations: 3, Errors: 1, LastDuration: 250 * time.Millisecond},
	})

	assert.Equal(t, float64(3), testutil.ToFloat64(m.pluginInvocations.WithLabelValues("cpu")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pluginErrors.WithLabelValues("cpu")))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.pluginDuration.WithLabelValues("cpu")))
}

func TestObservePluginsOverwritesRatherThanAccumulates(t *testing.T) {
	m := NewMetrics()
	m.ObservePlugins(map[string]plugin.Stats{"cpu": {Invocations: 3}})
	m.ObservePlugins(map[string]plugin.Stats{"cpu": {Invocations: 4}})

	require.Equal(t, float64(4), testutil.ToFloat64(m.pluginInvocations.WithLabelValues("cpu")))
}

func TestObserveDispatchCountsOutcomesAndRetries(t *testing.T) {
	m := NewMetrics()
	m.ObserveDispatch([]notify.ChannelOutcome{
		{Channel: "webhook", Result: notify.ResultOK, Retries: 0},
		{Channel: "webhook", Result: notify.ResultTransientError, Retries: 2},
	})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.dispatchOutcomes.WithLabelValues("webhook", notify.ResultOK.String())))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dispatchOutcomes.WithLabelValues("webhook", notify.ResultTransientError.String())))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.dispatchRetries.WithLabelValues("webhook")))
}

func TestObserveTickCountsPartialTicksOnly(t *testing.T) {
	m := NewMetrics()
	m.ObserveTick(0.5, false)
	m.ObserveTick(0.5, true)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.tickErrors))
}
