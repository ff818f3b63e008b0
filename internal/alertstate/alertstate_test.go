// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package alertstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azzuwayed/serversentry/internal/status"
)

func TestNormalToFiringRequiresMinConsecutive(t *testing.T) {
	rec := Record{Key: "cpu", State: NORMAL}
	now := time.Now()
	base := Params{IsNonOK: true, Severity: status.WARNING, MinConsecutive: 2, Cooldown: 300 * time.Second, Now: now}

	rec, emission := Evaluate(rec, base)
	assert.Nil(t, emission)
	assert.Equal(t, NORMAL, rec.State)

	base.Now = now.Add(time.Minute)
	rec, emission = Evaluate(rec, base)
	require.NotNil(t, emission)
	assert.Equal(t, EventAlert, emission.Kind)
	assert.Equal(t, FIRING, rec.State)
}

func TestFiringEscalationEmitsNewAlert(t *testing.T) {
	now := time.Now()
	rec := Record{Key: "cpu", State: FIRING, Severity: status.WARNING, LastEmittedAt: now}

	rec, emission := Evaluate(rec, Params{
		IsNonOK: true, Severity: status.CRITICAL, MinConsecutive: 1,
		Cooldown: 0, Now: now.Add(time.Minute),
	})
	require.NotNil(t, emission)
	assert.Equal(t, status.CRITICAL, emission.Severity)
	assert.Equal(t, FIRING, rec.State)
	assert.Equal(t, status.CRITICAL, rec.Severity)
}

func TestFiringToRecoveredRequiresMinConsecutiveOK(t *testing.T) {
	now := time.Now()
	rec := Record{Key: "cpu", State: FIRING, Severity: status.WARNING, LastEmittedAt: now}
	p := Params{IsNonOK: false, MinConsecutive: 2, Cooldown: 300 * time.Second, NotifyOnRecovery: true}

	p.Now = now.Add(time.Minute)
	rec, emission := Evaluate(rec, p)
	assert.Nil(t, emission, "first OK tick should not yet recover")
	assert.Equal(t, FIRING, rec.State)

	p.Now = now.Add(2 * time.Minute)
	rec, emission = Evaluate(rec, p)
	require.NotNil(t, emission)
	assert.Equal(t, EventRecovery, emission.Kind)
	assert.Equal(t, RECOVERED, rec.State)
}

func TestRecoveredTransitionsToNormalNextTick(t *testing.T) {
	now := time.Now()
	rec := Record{Key: "cpu", State: RECOVERED, LastRecoveryAt: now}
	rec, emission := Evaluate(rec, Params{IsNonOK: false, MinConsecutive: 1, Now: now.Add(time.Minute)})
	assert.Nil(t, emission)
	assert.Equal(t, NORMAL, rec.State)
}

func TestEscalationBypassesCooldown(t *testing.T) {
	now := time.Now()
	rec := Record{Key: "cpu", State: FIRING, Severity: status.WARNING, LastEmittedAt: now}
	rec, emission := Evaluate(rec, Params{
		IsNonOK: true, Severity: status.CRITICAL, MinConsecutive: 1,
		Cooldown: 300 * time.Second, Now: now.Add(10 * time.Second),
	})
	require.NotNil(t, emission)
	assert.Equal(t, status.CRITICAL, emission.Severity)
	assert.Equal(t, FIRING, rec.State)
	assert.Equal(t, status.CRITICAL, rec.Severity)
}

func TestSuppressedResumesFiringAfterCooldownExpires(t *testing.T) {
	now := time.Now()
	rec := Record{Key: "cpu", State: SUPPRESSED, Severity: status.WARNING, LastEmittedAt: now}
	rec, emission := Evaluate(rec, Params{
		IsNonOK: true, Severity: status.WARNING, MinConsecutive: 1,
		Cooldown: 300 * time.Second, Now: now.Add(301 * time.Second),
	})
	require.NotNil(t, emission)
	assert.Equal(t, FIRING, rec.State)
}

func TestSilenceWindowSuppressesInsteadOfFiring(t *testing.T) {
	now := time.Now()
	rec := Record{Key: "cpu", State: NORMAL}
	rec, emission := Evaluate(rec, Params{
		IsNonOK: true, Severity: status.WARNING, MinConsecutive: 1,
		Silenced: true, Now: now,
	})
	assert.Nil(t, emission)
	assert.Equal(t, SUPPRESSED, rec.State)
}
