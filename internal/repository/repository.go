// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/brainlytree/hub/internal/database"
	"github.com/brainlytree/hub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// DirectoryRepository is the identity/config store collaborator: device ->
// site -> program -> tenant lineage, wake schedules, and pending schedule
// changes.
type DirectoryRepository interface {
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	GetSite(ctx context.Context, id string) (*models.Site, error)
	// GetLineage resolves the device's active primary site assignment.
	GetLineage(ctx context.Context, deviceID string) (*models.Lineage, error)
	// ListActiveSites returns sites whose program date range contains the
	// given instant and which have at least one active device assignment.
	ListActiveSites(ctx context.Context, on time.Time) ([]*models.Site, error)
	ListActiveDevices(ctx context.Context, siteID string) ([]*models.Device, error)
	// ListPendingScheduleChanges returns unapplied changes effective on the
	// given site-local day for devices assigned to the site.
	ListPendingScheduleChanges(ctx context.Context, siteID, effectiveDate string) ([]*models.ScheduleChange, error)
	MarkScheduleChangeApplied(ctx context.Context, changeID string, appliedAt time.Time) error
	UpdateDeviceSchedule(ctx context.Context, deviceID, expr string) error
	UpdateDeviceLiveness(ctx context.Context, deviceID string, seenAt time.Time) error
	UpdateDeviceBattery(ctx context.Context, deviceID string, level float64, at time.Time) error
}

// SessionRepository owns the one-per-site-per-day session rows. All
// counter mutation goes through AddCounters so the locking discipline
// lives in one place.
type SessionRepository interface {
	database.Repository
	// FindOrCreate atomically inserts the session keyed by (site, day) or
	// returns the existing row. The bool reports whether a row was created.
	FindOrCreate(ctx context.Context, session *models.Session) (*models.Session, bool, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	GetBySiteDay(ctx context.Context, siteID, day string) (*models.Session, error)
	// RefreshExpectations updates the expected wake count on an existing
	// session; config_changed only ever latches from false to true.
	RefreshExpectations(ctx context.Context, id string, expected int, configChanged bool) error
	// Lock transitions in_progress -> locked. Returns false when the
	// session was already locked (idempotent no-op).
	Lock(ctx context.Context, id string, at time.Time) (bool, error)
	// AddCounters atomically increments the completed/failed/extra wake
	// counters.
	AddCounters(ctx context.Context, id string, completed, failed, extra int) error
}

// WakeRepository stores the immutable per-wake audit records in the
// time-series database.
type WakeRepository interface {
	database.Repository
	Create(ctx context.Context, wake *models.WakeRecord) error
	Get(ctx context.Context, id string) (*models.WakeRecord, error)
	LinkMedia(ctx context.Context, wakeID, mediaID string) error
	// UpdateStatus moves the record status forward; records already in a
	// terminal state are left untouched.
	UpdateStatus(ctx context.Context, wakeID string, status models.WakeStatus, mediaStatus models.MediaStatus) error
	// GetLatestByMedia returns the most recent wake record linked to the
	// media id (re-delivered wakes may share one media row).
	GetLatestByMedia(ctx context.Context, mediaID string) (*models.WakeRecord, error)
	// CountBySessionPerDevice returns received-wake counts keyed by device.
	CountBySessionPerDevice(ctx context.Context, sessionID string) (map[string]int, error)
}

// MediaRepository stores chunked-asset records, deduplicated by the
// natural key (device, name).
type MediaRepository interface {
	database.Repository
	// Upsert inserts the record or returns the existing row for the same
	// (device, name) key, making retried ingestion idempotent.
	Upsert(ctx context.Context, media *models.MediaRecord) (*models.MediaRecord, error)
	Get(ctx context.Context, id string) (*models.MediaRecord, error)
	// RecordChunk advances the received-chunk high-water mark; totalChunks
	// is recorded when positive.
	RecordChunk(ctx context.Context, id string, chunkID, totalChunks int) (*models.MediaRecord, error)
	// Complete transitions receiving -> complete. The bool reports whether
	// this call performed the transition (false on duplicate delivery).
	Complete(ctx context.Context, id, url string, at time.Time) (*models.MediaRecord, bool, error)
	// Fail transitions receiving -> failed and increments the retry count.
	Fail(ctx context.Context, id, reason string, at time.Time) (*models.MediaRecord, bool, error)
	SetGrowthAttributes(ctx context.Context, id string, score, velocity float64, colonyCount int, at time.Time) error
	// GetPreviousScored returns the device's most recent scored media
	// before the given instant, excluding the given id.
	GetPreviousScored(ctx context.Context, deviceID, excludeID string, before time.Time) (*models.MediaRecord, error)
	// GetFirstScoredSince returns the device's earliest scored media at or
	// after the given instant.
	GetFirstScoredSince(ctx context.Context, deviceID string, since time.Time) (*models.MediaRecord, error)
}

// TrackRepository stores colony tracks and their per-image detections.
type TrackRepository interface {
	database.Repository
	Create(ctx context.Context, track *models.ColonyTrack) error
	Update(ctx context.Context, track *models.ColonyTrack) error
	Get(ctx context.Context, id string) (*models.ColonyTrack, error)
	ListActiveByDevice(ctx context.Context, deviceID string) ([]*models.ColonyTrack, error)
	ListByDevice(ctx context.Context, deviceID string, offset, limit int) ([]*models.ColonyTrack, error)
	// LatestTrackedImage returns the id of the device's most recent image
	// (excluding the given one) that has at least one track-assigned
	// detection, or "" when none exists.
	LatestTrackedImage(ctx context.Context, deviceID, excludeImageID string) (string, error)
	ListDetectionsByImage(ctx context.Context, imageID string) ([]*models.Detection, error)
	CreateDetection(ctx context.Context, detection *models.Detection) error
}

// AlertRepository stores anomaly alerts; alerts are immutable apart from
// the resolution timestamp.
type AlertRepository interface {
	database.Repository
	Create(ctx context.Context, alert *models.Alert) error
	Get(ctx context.Context, id string) (*models.Alert, error)
	ListBySession(ctx context.Context, sessionID string) ([]*models.Alert, error)
	List(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error)
	// Resolve stamps the resolution timestamp; already-resolved alerts are
	// left untouched.
	Resolve(ctx context.Context, id string, at time.Time) error
}
