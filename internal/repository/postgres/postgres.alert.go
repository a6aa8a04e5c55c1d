// FilePath: internal/repository/postgres/postgres.alert.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/brainlytree/hub/internal/database"
	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/models"
)

type AlertRepo struct {
	PostgresBaseRepo
}

func NewAlertRepository(db database.DB) (*AlertRepo, error) {
	repo := &AlertRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initSchema(alertSchema); err != nil {
		return nil, err
	}
	return repo, nil
}

var alertSchema = []string{
	`CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		site_id TEXT NOT NULL,
		device_id TEXT NOT NULL DEFAULT '',
		tenant_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		deficit INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_session ON alerts(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_site_created
		ON alerts(site_id, created_at DESC)`,
}

func (r *AlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (
			id, session_id, site_id, device_id, tenant_id, kind, severity,
			message, deficit, created_at
		) VALUES (
			:id, :session_id, :site_id, :device_id, :tenant_id, :kind, :severity,
			:message, :deficit, now()
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, alert)
	if err != nil {
		return errors.NewDatabaseError("failed to create alert", err)
	}
	return nil
}

func (r *AlertRepo) Get(ctx context.Context, id string) (*models.Alert, error) {
	alert := &models.Alert{}
	query := `SELECT * FROM alerts WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, alert, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("alert not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get alert", err)
	}
	return alert, nil
}

func (r *AlertRepo) ListBySession(ctx context.Context, sessionID string) ([]*models.Alert, error) {
	alerts := []*models.Alert{}
	query := `SELECT * FROM alerts WHERE session_id = $1 ORDER BY created_at`

	err := r.db.GetDB().SelectContext(ctx, &alerts, query, sessionID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list alerts for session", err)
	}
	return alerts, nil
}

func (r *AlertRepo) List(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error) {
	conditions := []string{}
	args := []interface{}{}

	add := func(column, value string) {
		if value != "" {
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("site_id", filters.SiteID)
	add("session_id", filters.SessionID)
	add("device_id", filters.DeviceID)
	add("kind", filters.Kind)
	add("severity", filters.Severity)
	if filters.Unresolved {
		conditions = append(conditions, "resolved_at IS NULL")
	}

	query := `SELECT * FROM alerts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC OFFSET $%d", len(args))
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	alerts := []*models.Alert{}
	err := r.db.GetDB().SelectContext(ctx, &alerts, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list alerts", err)
	}
	return alerts, nil
}

func (r *AlertRepo) Resolve(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE alerts SET resolved_at = $1 WHERE id = $2 AND resolved_at IS NULL`

	result, err := r.db.GetDB().ExecContext(ctx, query, at, id)
	if err != nil {
		return errors.NewDatabaseError("failed to resolve alert", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("alert not found or already resolved", nil)
	}
	return nil
}
