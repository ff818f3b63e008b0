// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/azzuwayed/serversentry/internal/alertstate"
	"github.com/azzuwayed/serversentry/internal/anomaly"
	"github.com/azzuwayed/serversentry/internal/composite"
	"github.com/azzuwayed/serversentry/internal/history"
	"github.com/azzuwayed/serversentry/internal/notify"
	"github.com/azzuwayed/serversentry/internal/plugin"
	"github.com/azzuwayed/serversentry/internal/status"
	"github.com/azzuwayed/serversentry/internal/threshold"
)

type fakePlugin struct {
	id    string
	value float64
}

func (f *fakePlugin) Info() plugin.Info                  { return plugin.Info{Name: f.id} }
func (f *fakePlugin) Configure(cfg map[string]any) error { return nil }
func (f *fakePlugin) Check(ctx context.Context) (plugin.Reading, error) {
	return plugin.NewReading(f.id, time.Now(), f.value, true, nil, status.OK, "synthetic"), nil
}

type fakeChannel struct {
	sent []notify.Event
}

func (f *fakeChannel) Info() notify.Info                        { return notify.Info{Name: "fake", Enabled: true} }
func (f *fakeChannel) Configure(cfg map[string]any) error        { return nil }
func (f *fakeChannel) Send(ctx context.Context, e notify.Event) (notify.Result, error) {
	f.sent = append(f.sent, e)
	return notify.ResultOK, nil
}

func newTestScheduler(t *testing.T, id string, value float64, thresh threshold.Config) (*Scheduler, *fakePlugin, *fakeChannel) {
	t.Helper()

	reg := plugin.NewRegistry()
	p := &fakePlugin{id: id, value: value}
	require.NoError(t, reg.Register(id, p))
	reg.Freeze()

	stateDir := t.TempDir()
	store, err := alertstate.NewStore(filepath.Join(stateDir, "alert_state.json"))
	require.NoError(t, err)

	resultLog, err := anomaly.NewResultLog(filepath.Join(stateDir, "anomaly"))
	require.NoError(t, err)

	ch := &fakeChannel{}
	dispatcher := notify.NewDispatcher(0, zerolog.Nop())
	dispatcher.Register("fake", ch)

	sched := New(
		zerolog.Nop(),
		reg,
		plugin.NewRuntime(plugin.NewAccountant(), time.Second),
		map[string]PluginSpec{id: {ID: id, Threshold: thresh, Anomaly: anomaly.DefaultConfig()}},
		history.NewStore(),
		resultLog,
		composite.NewRegistry(zerolog.Nop()),
		alertstate.NewMachine(store),
		dispatcher,
		WithInterval(time.Minute),
	)
	return sched, p, ch
}

func TestTickClassifiesReadingAndDispatchesOnCritical(t *testing.T) {
	thresh := threshold.Config{Warning: 80, Critical: 90, Direction: threshold.GreaterIsBad, MinConsecutive: 1}
	sched, _, ch := newTestScheduler(t, "cpu", 95, thresh)

	result := sched.Tick(context.Background())

	require.Contains(t, result.Plugins, "cpu")
	require.Equal(t, status.CRITICAL, result.Plugins["cpu"].Level)
	require.Len(t, ch.sent, 1)
	require.Equal(t, notify.SourcePlugin, ch.sent[0].Source)
}

func TestTickBelowThresholdDoesNotDispatch(t *testing.T) {
	thresh := threshold.Config{Warning: 80, Critical: 90, Direction: threshold.GreaterIsBad, MinConsecutive: 1}
	sched, _, ch := newTestScheduler(t, "cpu", 10, thresh)

	result := sched.Tick(context.Background())

	require.Equal(t, status.OK, result.Plugins["cpu"].Level)
	require.Empty(t, ch.sent)
}

func TestTickRecoveryDispatchesRecoveryEvent(t *testing.T) {
	thresh := threshold.Config{Warning: 80, Critical: 90, Direction: threshold.GreaterIsBad, MinConsecutive: 1}
	sched, p, ch := newTestScheduler(t, "cpu", 95, thresh)

	sched.Tick(context.Background())
	require.Len(t, ch.sent, 1)

	p.value = 10
	sched.Tick(context.Background())
	require.Len(t, ch.sent, 2)
	require.Equal(t, notify.SourceRecovery, ch.sent[1].Source)
}

func TestWorstLevelIgnoresErroredPlugins(t *testing.T) {
	result := TickResult{Plugins: map[string]PluginResult{
		"cpu":  {Level: status.WARNING},
		"disk": {Err: context.DeadlineExceeded},
	}}
	require.Equal(t, status.WARNING, result.WorstLevel())
	require.True(t, result.AnyPluginErred())
}

func TestAccountantRecordsInvocationAfterTick(t *testing.T) {
	thresh := threshold.Config{Warning: 80, Critical: 90, Direction: threshold.GreaterIsBad, MinConsecutive: 1}
	sched, _, _ := newTestScheduler(t, "cpu", 10, thresh)

	sched.Tick(context.Background())

	stats := sched.Accountant().All()
	require.Contains(t, stats, "cpu")
	require.Equal(t, uint64(1), stats["cpu"].Invocations)
}
