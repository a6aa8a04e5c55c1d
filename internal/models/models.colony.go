// FilePath: internal/models/models.colony.go
package models

import "time"

type TrackStatus string

const (
	TrackActive TrackStatus = "active"
	TrackLost   TrackStatus = "lost"
)

// ColonyTrack is the persistent identity of one biologically-distinct
// detected object followed across a device's image series. Tracks are
// never physically deleted; a track that goes unseen for three
// consecutive images transitions to lost and never reverts.
type ColonyTrack struct {
	ID                string      `json:"id" db:"id"`
	DeviceID          string      `json:"device_id" db:"device_id"`
	TenantID          string      `json:"tenant_id" db:"tenant_id"`
	FirstSeenAt       time.Time   `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt        time.Time   `json:"last_seen_at" db:"last_seen_at"`
	FirstImageID      string      `json:"first_image_id" db:"first_image_id"`
	DetectionCount    int         `json:"detection_count" db:"detection_count"`
	InitialArea       float64     `json:"initial_area" db:"initial_area"`
	LatestArea        float64     `json:"latest_area" db:"latest_area"`
	GrowthFactor      float64     `json:"growth_factor" db:"growth_factor"`
	CentroidX         float64     `json:"centroid_x" db:"centroid_x"`
	CentroidY         float64     `json:"centroid_y" db:"centroid_y"`
	Status            TrackStatus `json:"status" db:"status"`
	ConsecutiveMisses int         `json:"consecutive_misses" db:"consecutive_misses"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// Detection is one object found in one image. It references exactly one
// track, set at ingestion time and immutable thereafter, or is unmatched
// pending assignment (empty TrackID).
type Detection struct {
	ID        string    `json:"id" db:"id"`
	ImageID   string    `json:"image_id" db:"image_id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	TrackID   string    `json:"track_id,omitempty" db:"track_id"`
	X         float64   `json:"x" db:"x"`
	Y         float64   `json:"y" db:"y"`
	Width     float64   `json:"width" db:"width"`
	Height    float64   `json:"height" db:"height"`
	Area      float64   `json:"area" db:"area"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MatchSummary is the outcome of matching one image's detections.
type MatchSummary struct {
	Matched   int `json:"matched"`
	NewTracks int `json:"new_tracks"`
	Lost      int `json:"lost"`
	Total     int `json:"total"`
}
