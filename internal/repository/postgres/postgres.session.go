// FilePath: internal/repository/postgres/postgres.session.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/brainlytree/hub/internal/database"
	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/models"
)

type SessionRepo struct {
	PostgresBaseRepo
}

func NewSessionRepository(db database.DB) (*SessionRepo, error) {
	repo := &SessionRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initSchema(sessionSchema); err != nil {
		return nil, err
	}
	return repo, nil
}

var sessionSchema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		program_id TEXT NOT NULL DEFAULT '',
		tenant_id TEXT NOT NULL,
		day TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ends_at TIMESTAMPTZ NOT NULL,
		expected_wake_count INTEGER NOT NULL DEFAULT 0,
		completed_wake_count INTEGER NOT NULL DEFAULT 0,
		failed_wake_count INTEGER NOT NULL DEFAULT 0,
		extra_wake_count INTEGER NOT NULL DEFAULT 0,
		config_changed BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'in_progress',
		locked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (site_id, day)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_site_day ON sessions(site_id, day)`,
}

// FindOrCreate relies on the (site_id, day) unique constraint so that
// concurrent creation attempts from the batch opener and the ingestion
// pipeline converge on one row.
func (r *SessionRepo) FindOrCreate(ctx context.Context, session *models.Session) (*models.Session, bool, error) {
	query := `
		INSERT INTO sessions (
			id, site_id, program_id, tenant_id, day, started_at, ends_at,
			expected_wake_count, config_changed, status, created_at, updated_at
		) VALUES (
			:id, :site_id, :program_id, :tenant_id, :day, :started_at, :ends_at,
			:expected_wake_count, :config_changed, :status, now(), now()
		)
		ON CONFLICT (site_id, day) DO NOTHING`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, session)
	if err != nil {
		return nil, false, errors.NewDatabaseError("failed to create session", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, errors.NewDatabaseError("failed to get rows affected", err)
	}

	stored, err := r.GetBySiteDay(ctx, session.SiteID, session.Day)
	if err != nil {
		return nil, false, err
	}
	return stored, rows > 0, nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	query := `SELECT * FROM sessions WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, session, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("session not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get session", err)
	}
	return session, nil
}

func (r *SessionRepo) GetBySiteDay(ctx context.Context, siteID, day string) (*models.Session, error) {
	session := &models.Session{}
	query := `SELECT * FROM sessions WHERE site_id = $1 AND day = $2`

	err := r.db.GetDB().GetContext(ctx, session, query, siteID, day)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("session not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get session", err)
	}
	return session, nil
}

func (r *SessionRepo) RefreshExpectations(ctx context.Context, id string, expected int, configChanged bool) error {
	query := `
		UPDATE sessions SET
			expected_wake_count = $2,
			config_changed = config_changed OR $3,
			updated_at = now()
		WHERE id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, id, expected, configChanged)
	if err != nil {
		return errors.NewDatabaseError("failed to refresh session expectations", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("session not found", nil)
	}
	return nil
}

func (r *SessionRepo) Lock(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE sessions SET status = $2, locked_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4`

	result, err := r.db.GetDB().ExecContext(ctx, query, id, models.SessionLocked, at, models.SessionInProgress)
	if err != nil {
		return false, errors.NewDatabaseError("failed to lock session", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows > 0, nil
}

func (r *SessionRepo) AddCounters(ctx context.Context, id string, completed, failed, extra int) error {
	query := `
		UPDATE sessions SET
			completed_wake_count = completed_wake_count + $2,
			failed_wake_count = failed_wake_count + $3,
			extra_wake_count = extra_wake_count + $4,
			updated_at = now()
		WHERE id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, id, completed, failed, extra)
	if err != nil {
		return errors.NewDatabaseError("failed to increment session counters", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("session not found", nil)
	}
	return nil
}
