// FilePath: internal/growth/growth.go

// Package growth computes delta/velocity/acceleration-class metrics for a
// scalar mold-growth index. Pure functions, no I/O.
package growth

import (
	"math"
	"time"
)

// The growth index is scored on a fixed 0-10 scale.
const scaleCeiling = 10.0

// Velocity thresholds, in index points per hour.
const (
	acceleratingAbove = 0.1
	decreasingBelow   = -0.01
	rapidAbove        = 0.2
	moderateAbove     = 0.1
)

// Sample is one scored growth reading.
type Sample struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// Metrics is the derived view of one new reading against its history.
type Metrics struct {
	Delta             float64 `json:"delta"`
	HoursElapsed      float64 `json:"hours_elapsed"`
	VelocityPerHour   float64 `json:"velocity_per_hour"`
	Classification    string  `json:"classification"`
	RateLabel         string  `json:"rate_label"`
	SinceSessionStart float64 `json:"since_session_start"`
	PercentOfMax      float64 `json:"percent_of_max"`
	HasPrevious       bool    `json:"has_previous"`
}

// ComputeMetrics derives growth metrics for the current reading. previous
// may be nil (first reading for the device); its value then defaults to 0
// and no elapsed time or velocity is computed. sessionStartValue is the
// first reading of the current monitoring session.
func ComputeMetrics(previous *Sample, sessionStartValue float64, current Sample) Metrics {
	m := Metrics{}

	previousValue := 0.0
	if previous != nil {
		previousValue = previous.Value
		m.HasPrevious = true
		m.HoursElapsed = current.At.Sub(previous.At).Hours()
	}

	m.Delta = current.Value - previousValue
	if m.HoursElapsed > 0 {
		m.VelocityPerHour = m.Delta / m.HoursElapsed
	}

	m.Classification = classify(m.VelocityPerHour)
	m.RateLabel = rateLabel(m.VelocityPerHour)
	m.SinceSessionStart = current.Value - sessionStartValue

	percent := current.Value / scaleCeiling * 100
	if percent > 100 {
		percent = 100
	}
	m.PercentOfMax = math.Round(percent*100) / 100

	return m
}

func classify(velocity float64) string {
	switch {
	case velocity > acceleratingAbove:
		return "accelerating"
	case velocity < decreasingBelow:
		return "decreasing"
	default:
		return "steady"
	}
}

func rateLabel(velocity float64) string {
	switch {
	case velocity > rapidAbove:
		return "rapid"
	case velocity > moderateAbove:
		return "moderate"
	case velocity > 0:
		return "slow"
	default:
		return "stable"
	}
}
