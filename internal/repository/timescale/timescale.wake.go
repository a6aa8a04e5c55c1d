// FilePath: internal/repository/timescale/timescale.wake.go
package timescale

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/brainlytree/hub/internal/database"
	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type WakeRepo struct {
	TimeScaleBaseRepo
}

func NewWakeRepository(db database.DB) (*WakeRepo, error) {
	repo := &WakeRepo{TimeScaleBaseRepo: TimeScaleBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *WakeRepo) initializeSchema() error {
	// Hypertable keyed on captured_at; wake records are append-mostly and
	// queried by device and session over time windows.
	queries := []string{
		`CREATE TABLE IF NOT EXISTS wake_records (
			id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL,
			slot_index INTEGER NOT NULL DEFAULT -1,
			overage BOOLEAN NOT NULL DEFAULT FALSE,
			telemetry JSONB,
			raw_payload BYTEA,
			media_id TEXT NOT NULL DEFAULT '',
			media_status TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (id, captured_at)
		)`,
		`SELECT create_hypertable('wake_records', 'captured_at',
			chunk_time_interval => INTERVAL '1 day',
			if_not_exists => TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wake_records_device_captured
			ON wake_records(device_id, captured_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_wake_records_session
			ON wake_records(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_wake_records_media
			ON wake_records(media_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize schema", err)
		}
	}

	r.setupRetentionPolicy()
	return nil
}

func (r *WakeRepo) setupRetentionPolicy() {
	query := fmt.Sprintf(`
		SELECT add_retention_policy('wake_records',
			INTERVAL '%s',
			if_not_exists => TRUE
		)`, "25 months")

	if _, err := r.db.GetDB().Exec(query); err != nil {
		nuts.L.Errorf("[TimescaleDB] Failed to set up wake record retention policy: %v", err)
	}
}

func (r *WakeRepo) Create(ctx context.Context, wake *models.WakeRecord) error {
	query := `
		INSERT INTO wake_records (
			id, device_id, session_id, tenant_id, captured_at, slot_index,
			overage, telemetry, raw_payload, media_id, media_status, status, created_at
		) VALUES (
			:id, :device_id, :session_id, :tenant_id, :captured_at, :slot_index,
			:overage, :telemetry, :raw_payload, :media_id, :media_status, :status, now()
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, wake)
	if err != nil {
		return errors.NewDatabaseError("failed to create wake record", err)
	}
	return nil
}

func (r *WakeRepo) Get(ctx context.Context, id string) (*models.WakeRecord, error) {
	wake := &models.WakeRecord{}
	query := `SELECT * FROM wake_records WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, wake, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("wake record not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get wake record", err)
	}
	return wake, nil
}

func (r *WakeRepo) LinkMedia(ctx context.Context, wakeID, mediaID string) error {
	query := `UPDATE wake_records SET media_id = $1 WHERE id = $2`

	result, err := r.db.GetDB().ExecContext(ctx, query, mediaID, wakeID)
	if err != nil {
		return errors.NewDatabaseError("failed to link media to wake record", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("wake record not found", nil)
	}
	return nil
}

// UpdateStatus moves the wake status forward. Records already terminal
// are left untouched so duplicate delivery cannot rewind them.
func (r *WakeRepo) UpdateStatus(ctx context.Context, wakeID string, status models.WakeStatus, mediaStatus models.MediaStatus) error {
	query := `
		UPDATE wake_records SET status = $2, media_status = $3
		WHERE id = $1 AND status NOT IN ($4, $5)`

	_, err := r.db.GetDB().ExecContext(ctx, query, wakeID, status, mediaStatus,
		models.WakeComplete, models.WakeFailed)
	if err != nil {
		return errors.NewDatabaseError("failed to update wake record status", err)
	}
	return nil
}

func (r *WakeRepo) GetLatestByMedia(ctx context.Context, mediaID string) (*models.WakeRecord, error) {
	wake := &models.WakeRecord{}
	query := `
		SELECT * FROM wake_records
		WHERE media_id = $1
		ORDER BY captured_at DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, wake, query, mediaID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no wake record for media", err)
		}
		return nil, errors.NewDatabaseError("failed to get wake record by media", err)
	}
	return wake, nil
}

func (r *WakeRepo) CountBySessionPerDevice(ctx context.Context, sessionID string) (map[string]int, error) {
	rows := []struct {
		DeviceID string `db:"device_id"`
		Count    int    `db:"count"`
	}{}
	query := `
		SELECT device_id, COUNT(*) as count
		FROM wake_records
		WHERE session_id = $1
		GROUP BY device_id`

	err := r.db.GetDB().SelectContext(ctx, &rows, query, sessionID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to count wake records", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.DeviceID] = row.Count
	}
	return counts, nil
}
