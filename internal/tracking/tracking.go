// FilePath: internal/tracking/tracking.go

// Package tracking holds the spatial-matching primitives of the colony
// tracker: centroid geometry, the greedy first-match-wins assignment, and
// the track extension / miss-aging math. Matching is greedy in
// detection-list order rather than globally optimal; growth-tracking
// history depends on this assignment order, so it must not be replaced
// with a bipartite matcher.
package tracking

import (
	"math"
	"time"

	"github.com/brainlytree/hub/internal/models"
)

// DefaultDistanceThreshold is the pixel distance within which a detection
// extends an existing track.
const DefaultDistanceThreshold = 40.0

// A track unseen for this many consecutive images transitions to lost.
const maxConsecutiveMisses = 3

// Centroid returns the center point of a detection's bounding box.
func Centroid(d *models.Detection) (float64, float64) {
	return d.X + d.Width/2, d.Y + d.Height/2
}

// CentroidDistance is the Euclidean distance between two detections'
// bounding-box centers.
func CentroidDistance(a, b *models.Detection) float64 {
	ax, ay := Centroid(a)
	bx, by := Centroid(b)
	return math.Hypot(ax-bx, ay-by)
}

// GreedyMatch assigns each new detection to the nearest not-yet-claimed
// tracked detection of the prior image. The result holds, per new
// detection, the index of the claimed prior detection or -1 for no match.
// Detections that already carry a track assignment are skipped, which
// keeps re-invocation for an already-matched image from opening duplicate
// tracks.
func GreedyMatch(newDetections, prior []*models.Detection, threshold float64) []int {
	assignments := make([]int, len(newDetections))
	claimed := make([]bool, len(prior))

	for i, d := range newDetections {
		assignments[i] = -1
		if d.TrackID != "" {
			continue
		}

		best := -1
		bestDist := math.MaxFloat64
		for j, p := range prior {
			if claimed[j] || p.TrackID == "" {
				continue
			}
			if dist := CentroidDistance(d, p); dist < bestDist {
				best = j
				bestDist = dist
			}
		}
		if best >= 0 && bestDist <= threshold {
			assignments[i] = best
			claimed[best] = true
		}
	}
	return assignments
}

// NewTrack opens a track for a detection that matched nothing.
func NewTrack(id, deviceID, tenantID, imageID string, d *models.Detection, at time.Time) *models.ColonyTrack {
	cx, cy := Centroid(d)
	return &models.ColonyTrack{
		ID:             id,
		DeviceID:       deviceID,
		TenantID:       tenantID,
		FirstSeenAt:    at,
		LastSeenAt:     at,
		FirstImageID:   imageID,
		DetectionCount: 1,
		InitialArea:    d.Area,
		LatestArea:     d.Area,
		GrowthFactor:   1.0,
		CentroidX:      cx,
		CentroidY:      cy,
		Status:         models.TrackActive,
	}
}

// ExtendTrack folds a matched detection into its track: detection count,
// latest area, growth factor (guarded against a zero initial area), the
// running centroid as an incremental mean, and a miss-counter reset.
func ExtendTrack(t *models.ColonyTrack, d *models.Detection, at time.Time) {
	cx, cy := Centroid(d)
	n := float64(t.DetectionCount)
	t.CentroidX = (t.CentroidX*n + cx) / (n + 1)
	t.CentroidY = (t.CentroidY*n + cy) / (n + 1)

	t.DetectionCount++
	t.LatestArea = d.Area
	if t.InitialArea > 0 {
		t.GrowthFactor = t.LatestArea / t.InitialArea
	} else {
		t.GrowthFactor = 1.0
	}
	t.LastSeenAt = at
	t.ConsecutiveMisses = 0
}

// AgeMiss increments the miss counter of an active track that went
// unmatched in the latest image. Returns true when the track crosses the
// miss limit and transitions to lost; the transition is one-way.
func AgeMiss(t *models.ColonyTrack) bool {
	if t.Status != models.TrackActive {
		return false
	}
	t.ConsecutiveMisses++
	if t.ConsecutiveMisses >= maxConsecutiveMisses {
		t.Status = models.TrackLost
		return true
	}
	return false
}
