// FilePath: internal/growth/growth_test.go
package growth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeMetricsWithHistory(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	previous := &Sample{Value: 5, At: t0}
	current := Sample{Value: 8, At: t0.Add(2 * time.Hour)}

	m := ComputeMetrics(previous, 5, current)

	require.True(t, m.HasPrevious)
	require.InDelta(t, 3.0, m.Delta, 1e-9)
	require.InDelta(t, 2.0, m.HoursElapsed, 1e-9)
	require.InDelta(t, 1.5, m.VelocityPerHour, 1e-9)
	require.Equal(t, "accelerating", m.Classification)
	require.Equal(t, "rapid", m.RateLabel)
	require.InDelta(t, 3.0, m.SinceSessionStart, 1e-9)
	require.InDelta(t, 80.0, m.PercentOfMax, 1e-9)
}

func TestComputeMetricsFirstReading(t *testing.T) {
	t.Parallel()

	current := Sample{Value: 2.5, At: time.Now()}
	m := ComputeMetrics(nil, 2.5, current)

	require.False(t, m.HasPrevious)
	require.InDelta(t, 2.5, m.Delta, 1e-9)
	require.Zero(t, m.HoursElapsed)
	require.Zero(t, m.VelocityPerHour)
	require.Equal(t, "steady", m.Classification)
	require.Equal(t, "stable", m.RateLabel)
	require.Zero(t, m.SinceSessionStart)
	require.InDelta(t, 25.0, m.PercentOfMax, 1e-9)
}

func TestClassificationBoundaries(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		prevValue float64
		curValue  float64
		hours     float64
		wantClass string
		wantRate  string
	}{
		{name: "slow growth", prevValue: 5, curValue: 5.1, hours: 2, wantClass: "steady", wantRate: "slow"},
		{name: "moderate growth", prevValue: 5, curValue: 5.3, hours: 2, wantClass: "accelerating", wantRate: "moderate"},
		{name: "rapid growth", prevValue: 5, curValue: 6, hours: 2, wantClass: "accelerating", wantRate: "rapid"},
		{name: "flat is steady stable", prevValue: 5, curValue: 5, hours: 2, wantClass: "steady", wantRate: "stable"},
		{name: "shrinking is decreasing", prevValue: 5, curValue: 4, hours: 2, wantClass: "decreasing", wantRate: "stable"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			previous := &Sample{Value: tt.prevValue, At: t0}
			current := Sample{Value: tt.curValue, At: t0.Add(time.Duration(tt.hours * float64(time.Hour)))}

			m := ComputeMetrics(previous, tt.prevValue, current)
			require.Equal(t, tt.wantClass, m.Classification)
			require.Equal(t, tt.wantRate, m.RateLabel)
		})
	}
}

func TestPercentOfMaxCappedAndRounded(t *testing.T) {
	t.Parallel()

	m := ComputeMetrics(nil, 0, Sample{Value: 12, At: time.Now()})
	require.InDelta(t, 100.0, m.PercentOfMax, 1e-9)

	m = ComputeMetrics(nil, 0, Sample{Value: 1.0/3.0 * 10, At: time.Now()})
	require.InDelta(t, 33.33, m.PercentOfMax, 1e-9)
}
