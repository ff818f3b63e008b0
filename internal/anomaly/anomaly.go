// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package anomaly implements the Anomaly Detector (spec.md §4.4): outlier,
// trend and spike classification of a Reading against its series history.
package anomaly

import (
	"fmt"
	"math"
)

// Kind is one member of the anomaly type set a Verdict may carry.
type Kind string

const (
	OutlierHigh Kind = "outlier-high"
	OutlierLow  Kind = "outlier-low"
	TrendUp     Kind = "trend-up"
	TrendDown   Kind = "trend-down"
	SpikeUp     Kind = "spike-up"
	SpikeDown   Kind = "spike-down"
)

// Config is the per-series anomaly configuration from spec.md §3 "Anomaly
// configuration", with the documented defaults.
type Config struct {
	Enabled              bool
	Sensitivity          float64 // σ-multiplier, default 2.0
	Window               int     // W, default 20
	MinPoints            int     // P, default 10
	DetectTrends         bool
	DetectSpikes         bool
	ConsecutiveThreshold int // K, default 3
	CooldownSeconds      int // C, default 1800
}

// DefaultConfig returns the spec.md §3 defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		Sensitivity:          2.0,
		Window:               20,
		MinPoints:            10,
		DetectTrends:         true,
		DetectSpikes:         true,
		ConsecutiveThreshold: 3,
		CooldownSeconds:      1800,
	}
}

// Validate enforces W >= P >= 2, σ > 0, K >= 1 (spec.md §3 invariants).
func (c Config) Validate() error {
	if c.MinPoints < 2 {
		return fmt.Errorf("anomaly: min data points P must be >= 2, got %d", c.MinPoints)
	}
	if c.Window < c.MinPoints {
		return fmt.Errorf("anomaly: window W (%d) must be >= min data points P (%d)", c.Window, c.MinPoints)
	}
	if c.Sensitivity <= 0 {
		return fmt.Errorf("anomaly: sensitivity must be > 0, got %v", c.Sensitivity)
	}
	if c.ConsecutiveThreshold < 1 {
		return fmt.Errorf("anomaly: consecutive threshold K must be >= 1, got %d", c.ConsecutiveThreshold)
	}
	return nil
}

// Verdict is the result of classifying one Reading against its history,
// per spec.md §4.4 "Contract".
type Verdict struct {
	IsAnomaly bool
	Types     map[Kind]bool
	ZScore    float64
}

// HasType reports whether k is present in the verdict's type set.
func (v Verdict) HasType(k Kind) bool { return v.Types[k] }

// Detect classifies value against prior, the series' history strictly
// preceding value (spec.md §4.4). prior is expected in insertion (oldest
// first) order; only the trailing cfg.Window points of it are used as the
// statistical baseline.
//
// Preconditions: fewer than cfg.MinPoints prior points, or a baseline
// standard deviation of zero, always yields is_anomaly=false (spec.md §4.4
// "Preconditions" and §8 boundary behaviour).
func Detect(prior []float64, value float64, cfg Config) Verdict {
	if len(prior) < cfg.MinPoints {
		return Verdict{}
	}

	window := prior
	if len(window) > cfg.Window {
		window = window[len(window)-cfg.Window:]
	}

	mean, stddev := meanStdDev(window)
	if stddev == 0 {
		return Verdict{ZScore: 0}
	}

	z := (value - mean) / stddev
	types := make(map[Kind]bool)

	if math.Abs(z) > cfg.Sensitivity {
		if z > 0 {
			types[OutlierHigh] = true
		} else {
			types[OutlierLow] = true
		}
	}

	if cfg.DetectTrends {
		if slope := linregSlope(window); slope > 2 {
			types[TrendUp] = true
		} else if slope < -2 {
			types[TrendDown] = true
		}
	}

	if cfg.DetectSpikes {
		recent := window
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		mu5, _ := meanStdDev(recent)
		if diff := value - mu5; math.Abs(diff) > 3*stddev {
			if diff > 0 {
				types[SpikeUp] = true
			} else {
				types[SpikeDown] = true
			}
		}
	}

	return Verdict{IsAnomaly: len(types) > 0, Types: types, ZScore: z}
}

// meanStdDev returns the arithmetic mean and corrected sample standard
// deviation of values; stddev is 0 for fewer than 2 values, matching
// history.Stats' convention.
func meanStdDev(values []float64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(n-1))
}

// linregSlope computes the least-squares regression slope of values
// against their index (spec.md §4.4 "Trend test").
func linregSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
