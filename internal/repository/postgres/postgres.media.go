// FilePath: internal/repository/postgres/postgres.media.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/brainlytree/hub/internal/database"
	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/models"
)

type MediaRepo struct {
	PostgresBaseRepo
}

func NewMediaRepository(db database.DB) (*MediaRepo, error) {
	repo := &MediaRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initSchema(mediaSchema); err != nil {
		return nil, err
	}
	return repo, nil
}

var mediaSchema = []string{
	`CREATE TABLE IF NOT EXISTS media_records (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		name TEXT NOT NULL,
		total_chunks INTEGER NOT NULL DEFAULT 0,
		received_chunks INTEGER NOT NULL DEFAULT 0,
		max_chunk_size INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'receiving',
		retry_count INTEGER NOT NULL DEFAULT 0,
		failure_reason TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		growth_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		growth_velocity DOUBLE PRECISION NOT NULL DEFAULT 0,
		colony_count INTEGER NOT NULL DEFAULT 0,
		scored_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (device_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_media_device_scored
		ON media_records(device_id, scored_at DESC) WHERE scored_at IS NOT NULL`,
}

// Upsert inserts by (device_id, name) or returns the existing row. The
// no-op DO UPDATE lets RETURNING yield the row in both cases.
func (r *MediaRepo) Upsert(ctx context.Context, media *models.MediaRecord) (*models.MediaRecord, error) {
	query := `
		INSERT INTO media_records (
			id, device_id, name, total_chunks, received_chunks, max_chunk_size,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (device_id, name) DO UPDATE SET updated_at = now()
		RETURNING *`

	stored := &models.MediaRecord{}
	err := r.db.GetDB().QueryRowxContext(ctx, query,
		media.ID, media.DeviceID, media.Name, media.TotalChunks,
		media.ReceivedChunks, media.MaxChunkSize, media.Status,
	).StructScan(stored)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to upsert media record", err)
	}
	return stored, nil
}

func (r *MediaRepo) Get(ctx context.Context, id string) (*models.MediaRecord, error) {
	media := &models.MediaRecord{}
	query := `SELECT * FROM media_records WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, media, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("media record not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get media record", err)
	}
	return media, nil
}

// RecordChunk advances the received-chunk high-water mark. Chunks may
// arrive out of order or twice, so the count only ever moves up.
func (r *MediaRepo) RecordChunk(ctx context.Context, id string, chunkID, totalChunks int) (*models.MediaRecord, error) {
	query := `
		UPDATE media_records SET
			received_chunks = GREATEST(received_chunks, $2),
			total_chunks = CASE WHEN $3 > 0 THEN $3 ELSE total_chunks END,
			updated_at = now()
		WHERE id = $1
		RETURNING *`

	media := &models.MediaRecord{}
	err := r.db.GetDB().QueryRowxContext(ctx, query, id, chunkID, totalChunks).StructScan(media)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("media record not found", err)
		}
		return nil, errors.NewDatabaseError("failed to record media chunk", err)
	}
	return media, nil
}

// Complete transitions receiving -> complete. Returns false when the
// record was already terminal so the caller can skip counter updates on
// duplicate delivery.
func (r *MediaRepo) Complete(ctx context.Context, id, url string, at time.Time) (*models.MediaRecord, bool, error) {
	query := `
		UPDATE media_records SET
			status = $2, url = $3, received_chunks = GREATEST(received_chunks, total_chunks),
			updated_at = $4
		WHERE id = $1 AND status = $5`

	result, err := r.db.GetDB().ExecContext(ctx, query, id, models.MediaComplete, url, at, models.MediaReceiving)
	if err != nil {
		return nil, false, errors.NewDatabaseError("failed to complete media record", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, errors.NewDatabaseError("failed to get rows affected", err)
	}

	media, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return media, rows > 0, nil
}

// Fail transitions receiving -> failed and increments the retry count.
func (r *MediaRepo) Fail(ctx context.Context, id, reason string, at time.Time) (*models.MediaRecord, bool, error) {
	query := `
		UPDATE media_records SET
			status = $2, failure_reason = $3, retry_count = retry_count + 1,
			updated_at = $4
		WHERE id = $1 AND status = $5`

	result, err := r.db.GetDB().ExecContext(ctx, query, id, models.MediaFailed, reason, at, models.MediaReceiving)
	if err != nil {
		return nil, false, errors.NewDatabaseError("failed to mark media record failed", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, errors.NewDatabaseError("failed to get rows affected", err)
	}

	media, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return media, rows > 0, nil
}

func (r *MediaRepo) SetGrowthAttributes(ctx context.Context, id string, score, velocity float64, colonyCount int, at time.Time) error {
	query := `
		UPDATE media_records SET
			growth_score = $2, growth_velocity = $3, colony_count = $4,
			scored_at = $5, updated_at = now()
		WHERE id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, id, score, velocity, colonyCount, at)
	if err != nil {
		return errors.NewDatabaseError("failed to set media growth attributes", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("media record not found", nil)
	}
	return nil
}

func (r *MediaRepo) GetPreviousScored(ctx context.Context, deviceID, excludeID string, before time.Time) (*models.MediaRecord, error) {
	media := &models.MediaRecord{}
	query := `
		SELECT * FROM media_records
		WHERE device_id = $1 AND id <> $2 AND scored_at IS NOT NULL AND scored_at < $3
		ORDER BY scored_at DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, media, query, deviceID, excludeID, before)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no previously scored media for device", err)
		}
		return nil, errors.NewDatabaseError("failed to get previous scored media", err)
	}
	return media, nil
}

func (r *MediaRepo) GetFirstScoredSince(ctx context.Context, deviceID string, since time.Time) (*models.MediaRecord, error) {
	media := &models.MediaRecord{}
	query := `
		SELECT * FROM media_records
		WHERE device_id = $1 AND scored_at IS NOT NULL AND scored_at >= $2
		ORDER BY scored_at ASC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, media, query, deviceID, since)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no scored media for device in range", err)
		}
		return nil, errors.NewDatabaseError("failed to get first scored media", err)
	}
	return media, nil
}
