// FilePath: internal/hubservice/hubservice.tracking.go
package hubservice

import (
	"context"
	"time"

	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/growth"
	"github.com/brainlytree/hub/internal/models"
	"github.com/brainlytree/hub/internal/tracking"
	nuts "github.com/vaudience/go-nuts"
)

// MatchResult is the outcome of matching one image's detections against
// the device's colony tracks.
type MatchResult struct {
	Summary    models.MatchSummary   `json:"summary"`
	Detections []*models.Detection   `json:"detections"`
	Tracks     []*models.ColonyTrack `json:"tracks"`
}

// GrowthScoreResult carries the stored media record and the derived
// growth metrics for one scoring callback.
type GrowthScoreResult struct {
	Media   *models.MediaRecord `json:"media"`
	Metrics growth.Metrics      `json:"metrics"`
}

// MatchColonyTracks assigns the detections of one image to the device's
// colony tracks: greedy nearest-centroid matching against the most
// recent prior tracked image, track extension on match, a new track
// otherwise, and miss aging for active tracks that went unseen. Runs
// under the per-device lock; re-invocation for an already-matched image
// is a no-op because assigned detections are skipped.
func (s *HubService) MatchColonyTracks(ctx context.Context, imageID, deviceID, tenantID string, detections []*models.Detection, at time.Time) (*MatchResult, error) {
	if imageID == "" || deviceID == "" {
		return nil, errors.NewValidationError("image id and device id are required", nil)
	}

	release, err := s.Locks.Acquire(ctx, "device:"+deviceID)
	if err != nil {
		return nil, err
	}
	defer release()

	activeTracks, err := s.Tracks.ListActiveByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	trackByID := make(map[string]*models.ColonyTrack, len(activeTracks))
	for _, t := range activeTracks {
		trackByID[t.ID] = t
	}

	// Only the single most recent prior image matters; older history has
	// already been folded into the tracks.
	prior := []*models.Detection{}
	priorImageID, err := s.Tracks.LatestTrackedImage(ctx, deviceID, imageID)
	if err != nil {
		return nil, err
	}
	if priorImageID != "" {
		all, err := s.Tracks.ListDetectionsByImage(ctx, priorImageID)
		if err != nil {
			return nil, err
		}
		for _, p := range all {
			// Lost tracks never re-attach.
			if _, ok := trackByID[p.TrackID]; ok {
				prior = append(prior, p)
			}
		}
	}

	threshold := s.opts.DistanceThreshold
	if threshold <= 0 {
		threshold = tracking.DefaultDistanceThreshold
	}
	assignments := tracking.GreedyMatch(detections, prior, threshold)

	summary := models.MatchSummary{Total: len(detections)}
	seen := make(map[string]bool, len(detections))

	for i, d := range detections {
		if d.TrackID != "" {
			seen[d.TrackID] = true
			continue
		}
		d.DeviceID = deviceID
		if d.ID == "" {
			d.ID = nuts.NID("det", 12)
		}
		d.ImageID = imageID
		if d.Area == 0 {
			d.Area = d.Width * d.Height
		}

		if j := assignments[i]; j >= 0 {
			track := trackByID[prior[j].TrackID]
			tracking.ExtendTrack(track, d, at)
			if err := s.Tracks.Update(ctx, track); err != nil {
				return nil, err
			}
			d.TrackID = track.ID
			summary.Matched++
		} else {
			track := tracking.NewTrack(nuts.NID("trk", 12), deviceID, tenantID, imageID, d, at)
			if err := s.Tracks.Create(ctx, track); err != nil {
				return nil, err
			}
			trackByID[track.ID] = track
			d.TrackID = track.ID
			summary.NewTracks++
		}
		seen[d.TrackID] = true

		if err := s.Tracks.CreateDetection(ctx, d); err != nil {
			return nil, err
		}
	}

	for _, track := range activeTracks {
		if seen[track.ID] {
			continue
		}
		lost := tracking.AgeMiss(track)
		if err := s.Tracks.Update(ctx, track); err != nil {
			return nil, err
		}
		if lost {
			nuts.L.Infof("[TrackingService] Track %s on device %s lost after %d misses",
				track.ID, deviceID, track.ConsecutiveMisses)
			s.emit("track.lost", track.ID)
			summary.Lost++
		}
	}

	tracks := make([]*models.ColonyTrack, 0, len(trackByID))
	for _, t := range trackByID {
		tracks = append(tracks, t)
	}

	nuts.L.Infof("[TrackingService] Image %s on device %s: %d matched, %d new, %d lost",
		imageID, deviceID, summary.Matched, summary.NewTracks, summary.Lost)
	return &MatchResult{Summary: summary, Detections: detections, Tracks: tracks}, nil
}

// RecordGrowthScore stores a scored growth index for a media record and
// derives the device's growth metrics against its scored history.
func (s *HubService) RecordGrowthScore(ctx context.Context, mediaID string, score float64, colonyCount int, at time.Time) (*GrowthScoreResult, error) {
	if score < 0 {
		return nil, errors.NewValidationError("growth score must not be negative", nil)
	}

	media, err := s.Media.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	wake, err := s.Wakes.GetLatestByMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	session, err := s.Sessions.Get(ctx, wake.SessionID)
	if err != nil {
		return nil, err
	}

	var previous *growth.Sample
	prev, err := s.Media.GetPreviousScored(ctx, media.DeviceID, mediaID, at)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
	} else if prev.ScoredAt != nil {
		previous = &growth.Sample{Value: prev.GrowthScore, At: *prev.ScoredAt}
	}

	sessionStartValue := score
	first, err := s.Media.GetFirstScoredSince(ctx, media.DeviceID, session.StartedAt)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
	} else {
		sessionStartValue = first.GrowthScore
	}

	metrics := growth.ComputeMetrics(previous, sessionStartValue, growth.Sample{Value: score, At: at})

	if err := s.Media.SetGrowthAttributes(ctx, mediaID, score, metrics.VelocityPerHour, colonyCount, at); err != nil {
		return nil, err
	}
	media, err = s.Media.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	nuts.L.Infof("[TrackingService] Scored media %s: %.2f (%s, %s)",
		mediaID, score, metrics.Classification, metrics.RateLabel)
	return &GrowthScoreResult{Media: media, Metrics: metrics}, nil
}

// ListDeviceTracks returns the device's colony tracks, newest first.
func (s *HubService) ListDeviceTracks(ctx context.Context, deviceID string, offset, limit int) ([]*models.ColonyTrack, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Tracks.ListByDevice(ctx, deviceID, offset, limit)
}
