package reco

import (
	"math"
	"time"
)

// decay returns 1 up to thresholdDays and exp(-lambda*(days-threshold)) beyond it.
func decay(days float64, lambda float64, thresholdDays int) float64 {
	over := days - float64(thresholdDays)
	if over <= 0 {
		return 1
	}
	return math.Exp(-lambda * over)
}

// RecencyBoost is 1 for listings at or below the threshold age and strictly
// decreasing past it when lambda is positive.
func (c Config) RecencyBoost(ageInDays int) float64 {
	if ageInDays < 0 {
		ageInDays = 0
	}
	return clamp01(decay(float64(ageInDays), c.RecencyLambda, c.RecencyThresholdDays))
}

func ageInDays(now, t time.Time) int {
	if t.IsZero() || !now.After(t) {
		return 0
	}
	return int(now.Sub(t).Hours() / 24)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
