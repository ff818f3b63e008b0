// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package threshold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azzuwayed/serversentry/internal/status"
)

func TestValidateOrdering(t *testing.T) {
	require.NoError(t, Config{Warning: 70, Critical: 85, Direction: GreaterIsBad, MinConsecutive: 1}.Validate())
	require.Error(t, Config{Warning: 85, Critical: 70, Direction: GreaterIsBad, MinConsecutive: 1}.Validate())
	require.NoError(t, Config{Warning: 30, Critical: 10, Direction: LessIsBad, MinConsecutive: 1}.Validate())
	require.Error(t, Config{Warning: 10, Critical: 30, Direction: LessIsBad, MinConsecutive: 1}.Validate())
}

func TestExactlyAtWarningIsInclusive(t *testing.T) {
	cfg := Config{Warning: 70, Critical: 85, Direction: GreaterIsBad, MinConsecutive: 1}
	_, level := Evaluate(State{}, 70, true, cfg, time.Now())
	assert.Equal(t, status.WARNING, level)
}

func TestUnknownWhenNoValue(t *testing.T) {
	cfg := Config{Warning: 70, Critical: 85, Direction: GreaterIsBad, MinConsecutive: 1}
	state, level := Evaluate(State{Level: status.WARNING}, 0, false, cfg, time.Now())
	assert.Equal(t, status.UNKNOWN, level)
	assert.Equal(t, status.WARNING, state.Level, "held level must survive an UNKNOWN tick")
}

func TestScenario1WarningThenCooldownHeldLevel(t *testing.T) {
	cfg := Config{Warning: 70, Critical: 85, Direction: GreaterIsBad, MinConsecutive: 1}
	readings := []float64{50, 65, 75, 78, 77}
	expected := []status.Level{status.OK, status.OK, status.WARNING, status.WARNING, status.WARNING}

	var state State
	now := time.Now()
	for i, v := range readings {
		var level status.Level
		state, level = Evaluate(state, v, true, cfg, now.Add(time.Duration(i)*time.Minute))
		assert.Equalf(t, expected[i], level, "tick %d", i+1)
	}
}

func TestScenario2Escalation(t *testing.T) {
	cfg := Config{Warning: 70, Critical: 85, Direction: GreaterIsBad, MinConsecutive: 1}
	readings := []float64{75, 80, 88, 90}
	expected := []status.Level{status.WARNING, status.WARNING, status.CRITICAL, status.CRITICAL}

	var state State
	now := time.Now()
	for i, v := range readings {
		var level status.Level
		state, level = Evaluate(state, v, true, cfg, now.Add(time.Duration(i)*time.Minute))
		assert.Equalf(t, expected[i], level, "tick %d", i+1)
	}
}

func TestScenario3HysteresisRecovery(t *testing.T) {
	cfg := Config{Warning: 70, Critical: 85, Direction: GreaterIsBad, HysteresisBand: 5, MinConsecutive: 1}
	now := time.Now()

	// Reach WARNING first (tick 3 of scenario 1).
	state, level := Evaluate(State{}, 50, true, cfg, now)
	state, level = Evaluate(state, 65, true, cfg, now.Add(time.Minute))
	state, level = Evaluate(state, 75, true, cfg, now.Add(2*time.Minute))
	require.Equal(t, status.WARNING, level)

	// tick6: 65 crosses the hysteresis boundary (70-5=65, inclusive) -> OK.
	state, level = Evaluate(state, 65, true, cfg, now.Add(3*time.Minute))
	assert.Equal(t, status.OK, level)

	// tick7: 64, still OK.
	state, level = Evaluate(state, 64, true, cfg, now.Add(4*time.Minute))
	assert.Equal(t, status.OK, level)
}

func TestDeEscalationHeldUntilHysteresisCrossed(t *testing.T) {
	cfg := Config{Warning: 70, Critical: 85, Direction: GreaterIsBad, HysteresisBand: 5, MinConsecutive: 1}
	now := time.Now()

	state := State{Level: status.WARNING}
	// 66 is above the 65 boundary, so WARNING must be held.
	state, level := Evaluate(state, 66, true, cfg, now)
	assert.Equal(t, status.WARNING, level)
	assert.Equal(t, status.WARNING, state.Level)
}

func TestMinConsecutiveGatesEscalationOnly(t *testing.T) {
	cfg := Config{Warning: 70, Critical: 85, Direction: GreaterIsBad, MinConsecutive: 3}
	now := time.Now()

	state, level := Evaluate(State{}, 75, true, cfg, now)
	assert.Equal(t, status.OK, level, "first warning-band sample held pending consecutive gate")

	state, level = Evaluate(state, 76, true, cfg, now.Add(time.Minute))
	assert.Equal(t, status.OK, level, "second sample still held")

	_, level = Evaluate(state, 77, true, cfg, now.Add(2*time.Minute))
	assert.Equal(t, status.WARNING, level, "third consecutive sample transitions")
}

func TestLessIsBadDirection(t *testing.T) {
	cfg := Config{Warning: 30, Critical: 10, Direction: LessIsBad, MinConsecutive: 1}
	_, level := Evaluate(State{}, 30, true, cfg, time.Now())
	assert.Equal(t, status.WARNING, level)
	_, level = Evaluate(State{}, 10, true, cfg, time.Now())
	assert.Equal(t, status.CRITICAL, level)
	_, level = Evaluate(State{}, 50, true, cfg, time.Now())
	assert.Equal(t, status.OK, level)
}
