// FilePath: internal/repository/postgres/postgres.directory.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/brainlytree/hub/internal/database"
	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/models"
)

type DirectoryRepo struct {
	PostgresBaseRepo
}

func NewDirectoryRepository(db database.DB) (*DirectoryRepo, error) {
	repo := &DirectoryRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initSchema(directorySchema); err != nil {
		return nil, err
	}
	return repo, nil
}

var directorySchema = []string{
	`CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		program_id TEXT NOT NULL DEFAULT '',
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		program_start TIMESTAMPTZ NOT NULL,
		program_end TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		mac TEXT NOT NULL DEFAULT '',
		schedule_expr TEXT NOT NULL DEFAULT '',
		battery_level DOUBLE PRECISION NOT NULL DEFAULT 0,
		battery_updated_at TIMESTAMPTZ,
		last_seen TIMESTAMPTZ,
		last_wake_received TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS site_assignments (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL REFERENCES devices(id),
		site_id TEXT NOT NULL REFERENCES sites(id),
		primary_assignment BOOLEAN NOT NULL DEFAULT TRUE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_site_assignments_device
		ON site_assignments(device_id) WHERE active`,
	`CREATE TABLE IF NOT EXISTS schedule_changes (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL REFERENCES devices(id),
		new_expr TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		applied_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func (r *DirectoryRepo) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	device := &models.Device{}
	query := `SELECT * FROM devices WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, device, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}
	return device, nil
}

func (r *DirectoryRepo) GetSite(ctx context.Context, id string) (*models.Site, error) {
	site := &models.Site{}
	query := `SELECT * FROM sites WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, site, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("site not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get site", err)
	}
	return site, nil
}

func (r *DirectoryRepo) GetLineage(ctx context.Context, deviceID string) (*models.Lineage, error) {
	lineage := &models.Lineage{}
	query := `
		SELECT d.id AS device_id, sa.site_id, s.program_id, s.tenant_id, s.timezone
		FROM devices d
		JOIN site_assignments sa ON sa.device_id = d.id
			AND sa.active AND sa.primary_assignment
		JOIN sites s ON s.id = sa.site_id
		WHERE d.id = $1
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, lineage, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device has no active primary site assignment", err)
		}
		return nil, errors.NewDatabaseError("failed to resolve device lineage", err)
	}
	return lineage, nil
}

func (r *DirectoryRepo) ListActiveSites(ctx context.Context, on time.Time) ([]*models.Site, error) {
	sites := []*models.Site{}
	query := `
		SELECT s.* FROM sites s
		WHERE s.program_start <= $1 AND s.program_end >= $1
		AND EXISTS (
			SELECT 1 FROM site_assignments sa
			WHERE sa.site_id = s.id AND sa.active
		)
		ORDER BY s.created_at`

	err := r.db.GetDB().SelectContext(ctx, &sites, query, on)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list active sites", err)
	}
	return sites, nil
}

func (r *DirectoryRepo) ListActiveDevices(ctx context.Context, siteID string) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `
		SELECT d.* FROM devices d
		JOIN site_assignments sa ON sa.device_id = d.id AND sa.active
		WHERE sa.site_id = $1 AND d.status = 'active'
		ORDER BY d.created_at`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, siteID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list active devices", err)
	}
	return devices, nil
}

func (r *DirectoryRepo) ListPendingScheduleChanges(ctx context.Context, siteID, effectiveDate string) ([]*models.ScheduleChange, error) {
	changes := []*models.ScheduleChange{}
	query := `
		SELECT sc.* FROM schedule_changes sc
		JOIN site_assignments sa ON sa.device_id = sc.device_id AND sa.active
		WHERE sa.site_id = $1 AND sc.effective_date = $2 AND sc.applied_at IS NULL
		ORDER BY sc.created_at`

	err := r.db.GetDB().SelectContext(ctx, &changes, query, siteID, effectiveDate)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list pending schedule changes", err)
	}
	return changes, nil
}

func (r *DirectoryRepo) MarkScheduleChangeApplied(ctx context.Context, changeID string, appliedAt time.Time) error {
	query := `UPDATE schedule_changes SET applied_at = $1 WHERE id = $2 AND applied_at IS NULL`
	result, err := r.db.GetDB().ExecContext(ctx, query, appliedAt, changeID)
	if err != nil {
		return errors.NewDatabaseError("failed to mark schedule change applied", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("schedule change not found or already applied", nil)
	}
	return nil
}

func (r *DirectoryRepo) UpdateDeviceSchedule(ctx context.Context, deviceID, expr string) error {
	query := `UPDATE devices SET schedule_expr = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.GetDB().ExecContext(ctx, query, expr, deviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to update device schedule", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}

func (r *DirectoryRepo) UpdateDeviceLiveness(ctx context.Context, deviceID string, seenAt time.Time) error {
	query := `UPDATE devices SET last_seen = $1, last_wake_received = $1, updated_at = now() WHERE id = $2`
	_, err := r.db.GetDB().ExecContext(ctx, query, seenAt, deviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to update device liveness", err)
	}
	return nil
}

func (r *DirectoryRepo) UpdateDeviceBattery(ctx context.Context, deviceID string, level float64, at time.Time) error {
	query := `UPDATE devices SET battery_level = $1, battery_updated_at = $2, updated_at = now() WHERE id = $3`
	_, err := r.db.GetDB().ExecContext(ctx, query, level, at, deviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to update device battery", err)
	}
	return nil
}
