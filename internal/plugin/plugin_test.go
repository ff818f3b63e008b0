// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azzuwayed/serversentry/internal/status"
)

type fakePlugin struct {
	id       string
	delay    time.Duration
	err      error
	malforme bool
}

func (f *fakePlugin) Info() Info { return Info{Name: f.id} }

func (f *fakePlugin) Configure(map[string]any) error { return nil }

func (f *fakePlugin) Check(ctx context.Context) (Reading, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Reading{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Reading{}, f.err
	}
	id := f.id
	if f.malforme {
		id = ""
	}
	return NewReading(id, time.Now(), 42, true, nil, status.OK, "ok"), nil
}

func TestRuntimeRunSuccess(t *testing.T) {
	rt := NewRuntime(NewAccountant(), time.Second)
	reading, err := rt.Run(context.Background(), "cpu", &fakePlugin{id: "cpu"})
	require.NoError(t, err)
	v, ok := reading.Value()
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	stats := rt.Accountant.Snapshot("cpu")
	assert.Equal(t, uint64(1), stats.Invocations)
	assert.Equal(t, uint64(0), stats.Errors)
}

func TestRuntimeRunTimeoutAbandoned(t *testing.T) {
	rt := NewRuntime(NewAccountant(), 10*time.Millisecond)
	_, err := rt.Run(context.Background(), "slow", &fakePlugin{id: "slow", delay: time.Second})
	require.Error(t, err)

	stats := rt.Accountant.Snapshot("slow")
	assert.Equal(t, uint64(1), stats.Errors)
}

func TestRuntimeRunPluginError(t *testing.T) {
	rt := NewRuntime(NewAccountant(), time.Second)
	_, err := rt.Run(context.Background(), "broken", &fakePlugin{id: "broken", err: errors.New("boom")})
	require.Error(t, err)
	stats := rt.Accountant.Snapshot("broken")
	assert.Equal(t, uint64(1), stats.Errors)
}

func TestRuntimeRunMalformedReadingIsPluginError(t *testing.T) {
	rt := NewRuntime(NewAccountant(), time.Second)
	_, err := rt.Run(context.Background(), "weird", &fakePlugin{id: "weird", malforme: true})
	require.Error(t, err)
	stats := rt.Accountant.Snapshot("weird")
	assert.Equal(t, uint64(1), stats.Errors)
}

func TestRegistryOrderedAndFreeze(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("cpu", &fakePlugin{id: "cpu"}))
	require.NoError(t, r.Register("memory", &fakePlugin{id: "memory"}))
	r.Freeze()

	assert.Equal(t, []string{"cpu", "memory"}, r.Ordered())
	assert.Error(t, r.Register("disk", &fakePlugin{id: "disk"}))

	_, ok := r.Get("cpu")
	assert.True(t, ok)
	_, ok = r.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistryDuplicateRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("cpu", &fakePlugin{id: "cpu"}))
	assert.Error(t, r.Register("cpu", &fakePlugin{id: "cpu"}))
}

func TestReadingImmutableWithStatus(t *testing.T) {
	r := NewReading("cpu", time.Now(), 50, true, map[string]Attribute{"a": NumberAttr(1)}, status.OK, "fine")
	r2 := r.WithStatus(status.WARNING, "high")
	assert.Equal(t, status.OK, r.Status())
	assert.Equal(t, status.WARNING, r2.Status())
}
