// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInvariants(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.Error(t, Config{Window: 20, MinPoints: 1, Sensitivity: 2, ConsecutiveThreshold: 1}.Validate())
	require.Error(t, Config{Window: 5, MinPoints: 10, Sensitivity: 2, ConsecutiveThreshold: 1}.Validate())
	require.Error(t, Config{Window: 20, MinPoints: 10, Sensitivity: 0, ConsecutiveThreshold: 1}.Validate())
	require.Error(t, Config{Window: 20, MinPoints: 10, Sensitivity: 2, ConsecutiveThreshold: 0}.Validate())
}

func TestFewerThanMinPointsNeverAnomaly(t *testing.T) {
	cfg := DefaultConfig()
	prior := make([]float64, cfg.MinPoints-1)
	for i := range prior {
		prior[i] = 42
	}
	v := Detect(prior, 1000, cfg)
	assert.False(t, v.IsAnomaly)
}

func TestZeroStdDevNeverAnomaly(t *testing.T) {
	cfg := DefaultConfig()
	prior := make([]float64, cfg.Window)
	for i := range prior {
		prior[i] = 50
	}
	v := Detect(prior, 999, cfg)
	assert.False(t, v.IsAnomaly)
	assert.Equal(t, 0.0, v.ZScore)
}

func TestOutlierHighAboveSensitivity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DetectTrends = false
	cfg.DetectSpikes = false
	prior := []float64{40, 41, 42, 43, 44, 45, 41, 42, 43, 44, 45, 41, 42, 43, 44, 45, 41, 42, 43, 44}
	v := Detect(prior, 60, cfg)
	require.True(t, v.IsAnomaly)
	assert.True(t, v.HasType(OutlierHigh))
	assert.Greater(t, v.ZScore, cfg.Sensitivity)
}

func TestOutlierBoundaryNinePriorPoints(t *testing.T) {
	cfg := DefaultConfig() // MinPoints = 10
	prior := []float64{40, 41, 42, 43, 44, 45, 41, 42, 43}
	v := Detect(prior, 60, cfg)
	assert.False(t, v.IsAnomaly, "9 prior points is one short of the minimum")
}

func TestTrendDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DetectSpikes = false
	prior := make([]float64, cfg.Window)
	for i := range prior {
		prior[i] = float64(i) * 3 // strong upward slope
	}
	v := Detect(prior, prior[len(prior)-1]+3, cfg)
	assert.True(t, v.HasType(TrendUp))
}

func TestSpikeDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DetectTrends = false
	prior := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 11, 9, 10}
	v := Detect(prior, 80, cfg)
	assert.True(t, v.HasType(SpikeUp))
}
