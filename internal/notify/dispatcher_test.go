// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azzuwayed/serversentry/internal/status"
)

type fakeChannel struct {
	name      string
	results   []Result
	call      int32
	sendDelay time.Duration
}

func (f *fakeChannel) Info() Info                          { return Info{Name: f.name, Enabled: true} }
func (f *fakeChannel) Configure(cfg map[string]any) error   { return nil }
func (f *fakeChannel) Send(ctx context.Context, e Event) (Result, error) {
	i := atomic.AddInt32(&f.call, 1) - 1
	if f.sendDelay > 0 {
		select {
		case <-time.After(f.sendDelay):
		case <-ctx.Done():
			return ResultTransientError, ctx.Err()
		}
	}
	if int(i) >= len(f.results) {
		return f.results[len(f.results)-1], assertErr(f.results[len(f.results)-1])
	}
	return f.results[i], assertErr(f.results[i])
}

func assertErr(r Result) error {
	if r == ResultOK {
		return nil
	}
	return assertErrSentinel
}

var assertErrSentinel = &sentinelErr{}

type sentinelErr struct{}

func (s *sentinelErr) Error() string { return "fake channel error" }

func TestDispatchSucceedsImmediately(t *testing.T) {
	d := NewDispatcher(0, zerolog.Nop())
	ch := &fakeChannel{name: "webhook", results: []Result{ResultOK}}
	d.Register("webhook", ch)

	outcomes, err := d.Dispatch(context.Background(), Event{Severity: status.CRITICAL, Source: SourcePlugin, SourceID: "cpu", Timestamp: time.Now()})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, ResultOK, outcomes[0].Result)
	assert.Equal(t, 0, outcomes[0].Retries)
}

func TestDispatchRetriesTransientThenSucceeds(t *testing.T) {
	origDelays := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	defer func() { retryDelays = origDelays }()

	d := NewDispatcher(0, zerolog.Nop())
	ch := &fakeChannel{name: "webhook", results: []Result{ResultTransientError, ResultTransientError, ResultOK}}
	d.Register("webhook", ch)

	outcomes, err := d.Dispatch(context.Background(), Event{Severity: status.WARNING, Source: SourcePlugin, SourceID: "cpu", Timestamp: time.Now()})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, ResultOK, outcomes[0].Result)
	assert.Equal(t, 2, outcomes[0].Retries)
}

func TestDispatchPermanentErrorDoesNotRetry(t *testing.T) {
	d := NewDispatcher(0, zerolog.Nop())
	ch := &fakeChannel{name: "webhook", results: []Result{ResultPermanentError, ResultOK}}
	d.Register("webhook", ch)

	outcomes, err := d.Dispatch(context.Background(), Event{Severity: status.WARNING, Source: SourcePlugin, SourceID: "cpu", Timestamp: time.Now()})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, ResultPermanentError, outcomes[0].Result)
	assert.Equal(t, int32(1), ch.call, "second queued result must never be consulted")
}

func TestDispatchOneChannelFailureDoesNotBlockAnother(t *testing.T) {
	d := NewDispatcher(0, zerolog.Nop())
	bad := &fakeChannel{name: "bad", results: []Result{ResultPermanentError}}
	good := &fakeChannel{name: "good", results: []Result{ResultOK}}
	d.Register("bad", bad)
	d.Register("good", good)

	outcomes, err := d.Dispatch(context.Background(), Event{
		Severity: status.WARNING, Source: SourcePlugin, SourceID: "cpu", Timestamp: time.Now(),
		Channels: []string{"bad", "good"},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	byName := map[string]Result{}
	for _, o := range outcomes {
		byName[o.Channel] = o.Result
	}
	assert.Equal(t, ResultPermanentError, byName["bad"])
	assert.Equal(t, ResultOK, byName["good"])
}

func TestGlobalCooldownDropsRepeatedEvent(t *testing.T) {
	d := NewDispatcher(time.Minute, zerolog.Nop())
	ch := &fakeChannel{name: "webhook", results: []Result{ResultOK}}
	d.Register("webhook", ch)

	now := time.Now()
	_, err := d.Dispatch(context.Background(), Event{Severity: status.WARNING, Source: SourcePlugin, SourceID: "cpu", Timestamp: now})
	require.NoError(t, err)

	outcomes, err := d.Dispatch(context.Background(), Event{Severity: status.WARNING, Source: SourcePlugin, SourceID: "cpu", Timestamp: now.Add(time.Second)})
	require.NoError(t, err)
	assert.Nil(t, outcomes, "second identical (source,severity) event within cooldown must be dropped")
}
