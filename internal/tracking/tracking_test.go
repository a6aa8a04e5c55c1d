// FilePath: internal/tracking/tracking_test.go
package tracking

import (
	"testing"
	"time"

	"github.com/brainlytree/hub/internal/models"
	"github.com/stretchr/testify/require"
)

func det(x, y, w, h float64, trackID string) *models.Detection {
	return &models.Detection{
		X: x, Y: y, Width: w, Height: h,
		Area:    w * h,
		TrackID: trackID,
	}
}

func TestCentroid(t *testing.T) {
	t.Parallel()

	x, y := Centroid(det(100, 100, 20, 10, ""))
	require.InDelta(t, 110.0, x, 1e-9)
	require.InDelta(t, 105.0, y, 1e-9)
}

func TestGreedyMatch(t *testing.T) {
	t.Parallel()

	t.Run("nearby detection matches", func(t *testing.T) {
		t.Parallel()
		prior := []*models.Detection{det(100, 100, 20, 20, "trk_a")}
		next := []*models.Detection{det(105, 103, 20, 20, "")}

		assignments := GreedyMatch(next, prior, DefaultDistanceThreshold)
		require.Equal(t, []int{0}, assignments)
	})

	t.Run("distant detection stays unmatched", func(t *testing.T) {
		t.Parallel()
		prior := []*models.Detection{det(100, 100, 20, 20, "trk_a")}
		next := []*models.Detection{det(500, 500, 20, 20, "")}

		assignments := GreedyMatch(next, prior, DefaultDistanceThreshold)
		require.Equal(t, []int{-1}, assignments)
	})

	t.Run("first match wins a contested prior", func(t *testing.T) {
		t.Parallel()
		prior := []*models.Detection{det(100, 100, 20, 20, "trk_a")}
		next := []*models.Detection{
			det(102, 101, 20, 20, ""),
			det(104, 99, 20, 20, ""),
		}

		assignments := GreedyMatch(next, prior, DefaultDistanceThreshold)
		require.Equal(t, 0, assignments[0])
		require.Equal(t, -1, assignments[1])
	})

	t.Run("already assigned detections are skipped", func(t *testing.T) {
		t.Parallel()
		prior := []*models.Detection{det(100, 100, 20, 20, "trk_a")}
		next := []*models.Detection{det(101, 101, 20, 20, "trk_b")}

		assignments := GreedyMatch(next, prior, DefaultDistanceThreshold)
		require.Equal(t, []int{-1}, assignments)
	})

	t.Run("untracked prior detections cannot be claimed", func(t *testing.T) {
		t.Parallel()
		prior := []*models.Detection{det(100, 100, 20, 20, "")}
		next := []*models.Detection{det(101, 101, 20, 20, "")}

		assignments := GreedyMatch(next, prior, DefaultDistanceThreshold)
		require.Equal(t, []int{-1}, assignments)
	})
}

func TestNewTrack(t *testing.T) {
	t.Parallel()

	at := time.Now()
	d := det(100, 100, 20, 10, "")
	track := NewTrack("trk_1", "dev_1", "ten_1", "img_1", d, at)

	require.Equal(t, 1, track.DetectionCount)
	require.InDelta(t, 200.0, track.InitialArea, 1e-9)
	require.InDelta(t, 200.0, track.LatestArea, 1e-9)
	require.InDelta(t, 1.0, track.GrowthFactor, 1e-9)
	require.InDelta(t, 110.0, track.CentroidX, 1e-9)
	require.InDelta(t, 105.0, track.CentroidY, 1e-9)
	require.Equal(t, models.TrackActive, track.Status)
}

func TestExtendTrack(t *testing.T) {
	t.Parallel()

	at := time.Now()
	track := NewTrack("trk_1", "dev_1", "ten_1", "img_1", det(100, 100, 20, 10, ""), at)
	track.ConsecutiveMisses = 2

	ExtendTrack(track, det(110, 110, 20, 20, ""), at.Add(time.Hour))

	require.Equal(t, 2, track.DetectionCount)
	require.InDelta(t, 400.0, track.LatestArea, 1e-9)
	require.InDelta(t, 2.0, track.GrowthFactor, 1e-9)
	// Running centroid is the incremental mean over all detections.
	require.InDelta(t, 115.0, track.CentroidX, 1e-9)
	require.InDelta(t, 112.5, track.CentroidY, 1e-9)
	require.Zero(t, track.ConsecutiveMisses)
}

func TestExtendTrackZeroInitialArea(t *testing.T) {
	t.Parallel()

	track := NewTrack("trk_1", "dev_1", "ten_1", "img_1", det(100, 100, 0, 0, ""), time.Now())
	ExtendTrack(track, det(100, 100, 20, 20, ""), time.Now())

	require.InDelta(t, 1.0, track.GrowthFactor, 1e-9)
}

func TestAgeMiss(t *testing.T) {
	t.Parallel()

	track := NewTrack("trk_1", "dev_1", "ten_1", "img_1", det(100, 100, 20, 20, ""), time.Now())

	require.False(t, AgeMiss(track))
	require.False(t, AgeMiss(track))
	require.Equal(t, models.TrackActive, track.Status)

	require.True(t, AgeMiss(track))
	require.Equal(t, models.TrackLost, track.Status)

	// Lost is one-way and further misses do not re-fire the transition.
	require.False(t, AgeMiss(track))
	require.Equal(t, models.TrackLost, track.Status)
	require.Equal(t, 3, track.ConsecutiveMisses)
}
