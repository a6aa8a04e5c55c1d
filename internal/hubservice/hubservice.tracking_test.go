// FilePath: internal/hubservice/hubservice.tracking_test.go
package hubservice

import (
	"context"
	"testing"
	"time"

	"github.com/brainlytree/hub/internal/models"
	"github.com/stretchr/testify/require"
)

func detection(x, y, w, h float64) *models.Detection {
	return &models.Detection{X: x, Y: y, Width: w, Height: h, Area: w * h}
}

func TestMatchColonyTracksFirstImage(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	result, err := env.svc.MatchColonyTracks(context.Background(), "img_1", "dev_1", "ten_1",
		[]*models.Detection{detection(100, 100, 20, 20), detection(300, 300, 10, 10)}, testNow)
	require.NoError(t, err)

	require.Equal(t, 2, result.Summary.Total)
	require.Equal(t, 2, result.Summary.NewTracks)
	require.Zero(t, result.Summary.Matched)
	require.Zero(t, result.Summary.Lost)
	require.Len(t, env.tracks.byID, 2)
	for _, d := range result.Detections {
		require.NotEmpty(t, d.TrackID)
	}
}

func TestMatchColonyTracksExtendsNearbyTrack(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	first, err := env.svc.MatchColonyTracks(context.Background(), "img_1", "dev_1", "ten_1",
		[]*models.Detection{detection(100, 100, 20, 20)}, testNow)
	require.NoError(t, err)
	trackID := first.Detections[0].TrackID

	second, err := env.svc.MatchColonyTracks(context.Background(), "img_2", "dev_1", "ten_1",
		[]*models.Detection{
			detection(105, 103, 20, 20),
			detection(500, 500, 20, 20),
		}, testNow.Add(time.Hour))
	require.NoError(t, err)

	require.Equal(t, 1, second.Summary.Matched)
	require.Equal(t, 1, second.Summary.NewTracks)
	require.Equal(t, trackID, second.Detections[0].TrackID)
	require.NotEqual(t, trackID, second.Detections[1].TrackID)

	track, err := env.tracks.Get(context.Background(), trackID)
	require.NoError(t, err)
	require.Equal(t, 2, track.DetectionCount)
	require.Equal(t, testNow.Add(time.Hour), track.LastSeenAt)
}

func TestMatchColonyTracksMissAging(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	first, err := env.svc.MatchColonyTracks(context.Background(), "img_1", "dev_1", "ten_1",
		[]*models.Detection{detection(100, 100, 20, 20)}, testNow)
	require.NoError(t, err)
	trackID := first.Detections[0].TrackID

	// Two empty images leave the track active with accrued misses.
	for i, imageID := range []string{"img_2", "img_3"} {
		result, err := env.svc.MatchColonyTracks(context.Background(), imageID, "dev_1", "ten_1",
			nil, testNow.Add(time.Duration(i+1)*time.Hour))
		require.NoError(t, err)
		require.Zero(t, result.Summary.Lost)
	}
	track, err := env.tracks.Get(context.Background(), trackID)
	require.NoError(t, err)
	require.Equal(t, models.TrackActive, track.Status)
	require.Equal(t, 2, track.ConsecutiveMisses)

	// The third consecutive miss transitions it to lost.
	result, err := env.svc.MatchColonyTracks(context.Background(), "img_4", "dev_1", "ten_1",
		nil, testNow.Add(3*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, result.Summary.Lost)

	track, err = env.tracks.Get(context.Background(), trackID)
	require.NoError(t, err)
	require.Equal(t, models.TrackLost, track.Status)

	// A later detection at the same spot opens a new track; lost is
	// one-way.
	revived, err := env.svc.MatchColonyTracks(context.Background(), "img_5", "dev_1", "ten_1",
		[]*models.Detection{detection(100, 100, 20, 20)}, testNow.Add(4*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, revived.Summary.NewTracks)
	require.NotEqual(t, trackID, revived.Detections[0].TrackID)
}

func TestMatchColonyTracksIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	first, err := env.svc.MatchColonyTracks(context.Background(), "img_1", "dev_1", "ten_1",
		[]*models.Detection{detection(100, 100, 20, 20)}, testNow)
	require.NoError(t, err)

	// Re-submitting the already-assigned detections opens no duplicates.
	again, err := env.svc.MatchColonyTracks(context.Background(), "img_1", "dev_1", "ten_1",
		first.Detections, testNow)
	require.NoError(t, err)
	require.Zero(t, again.Summary.NewTracks)
	require.Zero(t, again.Summary.Matched)
	require.Len(t, env.tracks.byID, 1)
}

func TestMatchColonyTracksValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	_, err := env.svc.MatchColonyTracks(context.Background(), "", "dev_1", "ten_1", nil, testNow)
	require.Error(t, err)
}

func TestRecordGrowthScore(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	env.addSite("site_1", "UTC")
	env.addDevice("dev_1", "site_1", "0 8,16 * * *")

	morning := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	firstWake, err := env.svc.IngestWake(context.Background(), "dev_1", morning, "img_a.jpg", 0, 0, nil)
	require.NoError(t, err)
	_, err = env.svc.RecordGrowthScore(context.Background(), firstWake.Media.ID, 5, 2, morning.Add(10*time.Minute))
	require.NoError(t, err)

	secondWake, err := env.svc.IngestWake(context.Background(), "dev_1", morning.Add(2*time.Hour), "img_b.jpg", 0, 0, nil)
	require.NoError(t, err)
	result, err := env.svc.RecordGrowthScore(context.Background(), secondWake.Media.ID, 8, 3, morning.Add(2*time.Hour+10*time.Minute))
	require.NoError(t, err)

	require.True(t, result.Metrics.HasPrevious)
	require.InDelta(t, 3.0, result.Metrics.Delta, 1e-9)
	require.InDelta(t, 2.0, result.Metrics.HoursElapsed, 1e-9)
	require.InDelta(t, 1.5, result.Metrics.VelocityPerHour, 1e-9)
	require.Equal(t, "accelerating", result.Metrics.Classification)
	require.Equal(t, "rapid", result.Metrics.RateLabel)
	require.InDelta(t, 3.0, result.Metrics.SinceSessionStart, 1e-9)
	require.InDelta(t, 80.0, result.Metrics.PercentOfMax, 1e-9)

	require.InDelta(t, 8.0, result.Media.GrowthScore, 1e-9)
	require.InDelta(t, 1.5, result.Media.GrowthVelocity, 1e-9)
	require.Equal(t, 3, result.Media.ColonyCount)
	require.NotNil(t, result.Media.ScoredAt)
}

func TestRecordGrowthScoreFirstReading(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	env.addSite("site_1", "UTC")
	env.addDevice("dev_1", "site_1", "0 8 * * *")

	morning := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	wake, err := env.svc.IngestWake(context.Background(), "dev_1", morning, "img_a.jpg", 0, 0, nil)
	require.NoError(t, err)

	result, err := env.svc.RecordGrowthScore(context.Background(), wake.Media.ID, 4, 1, morning.Add(10*time.Minute))
	require.NoError(t, err)

	require.False(t, result.Metrics.HasPrevious)
	require.Zero(t, result.Metrics.VelocityPerHour)
	require.InDelta(t, 4.0, result.Metrics.Delta, 1e-9)
}

func TestRecordGrowthScoreRejectsNegative(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	_, err := env.svc.RecordGrowthScore(context.Background(), "med_1", -1, 0, testNow)
	require.Error(t, err)
}
