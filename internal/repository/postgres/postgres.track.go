// FilePath: internal/repository/postgres/postgres.track.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/brainlytree/hub/internal/database"
	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/models"
)

type TrackRepo struct {
	PostgresBaseRepo
}

func NewTrackRepository(db database.DB) (*TrackRepo, error) {
	repo := &TrackRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initSchema(trackSchema); err != nil {
		return nil, err
	}
	return repo, nil
}

var trackSchema = []string{
	`CREATE TABLE IF NOT EXISTS colony_tracks (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		first_seen_at TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL,
		first_image_id TEXT NOT NULL,
		detection_count INTEGER NOT NULL DEFAULT 1,
		initial_area DOUBLE PRECISION NOT NULL DEFAULT 0,
		latest_area DOUBLE PRECISION NOT NULL DEFAULT 0,
		growth_factor DOUBLE PRECISION NOT NULL DEFAULT 1,
		centroid_x DOUBLE PRECISION NOT NULL DEFAULT 0,
		centroid_y DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		consecutive_misses INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_colony_tracks_device
		ON colony_tracks(device_id, status)`,
	`CREATE TABLE IF NOT EXISTS detections (
		id TEXT PRIMARY KEY,
		image_id TEXT NOT NULL,
		device_id TEXT NOT NULL,
		track_id TEXT NOT NULL DEFAULT '',
		x DOUBLE PRECISION NOT NULL,
		y DOUBLE PRECISION NOT NULL,
		width DOUBLE PRECISION NOT NULL,
		height DOUBLE PRECISION NOT NULL,
		area DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_detections_image ON detections(image_id)`,
	`CREATE INDEX IF NOT EXISTS idx_detections_device
		ON detections(device_id, created_at DESC)`,
}

func (r *TrackRepo) Create(ctx context.Context, track *models.ColonyTrack) error {
	query := `
		INSERT INTO colony_tracks (
			id, device_id, tenant_id, first_seen_at, last_seen_at, first_image_id,
			detection_count, initial_area, latest_area, growth_factor,
			centroid_x, centroid_y, status, consecutive_misses, created_at, updated_at
		) VALUES (
			:id, :device_id, :tenant_id, :first_seen_at, :last_seen_at, :first_image_id,
			:detection_count, :initial_area, :latest_area, :growth_factor,
			:centroid_x, :centroid_y, :status, :consecutive_misses, now(), now()
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, track)
	if err != nil {
		return errors.NewDatabaseError("failed to create colony track", err)
	}
	return nil
}

func (r *TrackRepo) Update(ctx context.Context, track *models.ColonyTrack) error {
	query := `
		UPDATE colony_tracks SET
			last_seen_at = :last_seen_at,
			detection_count = :detection_count,
			latest_area = :latest_area,
			growth_factor = :growth_factor,
			centroid_x = :centroid_x,
			centroid_y = :centroid_y,
			status = :status,
			consecutive_misses = :consecutive_misses,
			updated_at = now()
		WHERE id = :id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, track)
	if err != nil {
		return errors.NewDatabaseError("failed to update colony track", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("colony track not found", nil)
	}
	return nil
}

func (r *TrackRepo) Get(ctx context.Context, id string) (*models.ColonyTrack, error) {
	track := &models.ColonyTrack{}
	query := `SELECT * FROM colony_tracks WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, track, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("colony track not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get colony track", err)
	}
	return track, nil
}

func (r *TrackRepo) ListActiveByDevice(ctx context.Context, deviceID string) ([]*models.ColonyTrack, error) {
	tracks := []*models.ColonyTrack{}
	query := `
		SELECT * FROM colony_tracks
		WHERE device_id = $1 AND status = $2
		ORDER BY first_seen_at`

	err := r.db.GetDB().SelectContext(ctx, &tracks, query, deviceID, models.TrackActive)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list active colony tracks", err)
	}
	return tracks, nil
}

func (r *TrackRepo) ListByDevice(ctx context.Context, deviceID string, offset, limit int) ([]*models.ColonyTrack, error) {
	tracks := []*models.ColonyTrack{}
	query := `
		SELECT * FROM colony_tracks
		WHERE device_id = $1
		ORDER BY first_seen_at DESC
		OFFSET $2 LIMIT $3`

	err := r.db.GetDB().SelectContext(ctx, &tracks, query, deviceID, offset, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list colony tracks", err)
	}
	return tracks, nil
}

// LatestTrackedImage returns the device's most recent image carrying at
// least one track-assigned detection, excluding the given image. Returns
// "" when the device has no tracked history yet.
func (r *TrackRepo) LatestTrackedImage(ctx context.Context, deviceID, excludeImageID string) (string, error) {
	var imageID string
	query := `
		SELECT image_id FROM detections
		WHERE device_id = $1 AND track_id <> '' AND image_id <> $2
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, &imageID, query, deviceID, excludeImageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", errors.NewDatabaseError("failed to find latest tracked image", err)
	}
	return imageID, nil
}

func (r *TrackRepo) ListDetectionsByImage(ctx context.Context, imageID string) ([]*models.Detection, error) {
	detections := []*models.Detection{}
	query := `SELECT * FROM detections WHERE image_id = $1 ORDER BY created_at`

	err := r.db.GetDB().SelectContext(ctx, &detections, query, imageID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list detections", err)
	}
	return detections, nil
}

func (r *TrackRepo) CreateDetection(ctx context.Context, detection *models.Detection) error {
	query := `
		INSERT INTO detections (
			id, image_id, device_id, track_id, x, y, width, height, area, created_at
		) VALUES (
			:id, :image_id, :device_id, :track_id, :x, :y, :width, :height, :area, now()
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, detection)
	if err != nil {
		return errors.NewDatabaseError("failed to create detection", err)
	}
	return nil
}
