// FilePath: internal/models/models.session.go
package models

import "time"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionLocked     SessionStatus = "locked"
)

// Session is the one-per-site-per-day container tracking expected vs
// received wakes. At most one session exists per (site, day); creation is
// idempotent. Once locked it is append-only for historical reads.
type Session struct {
	ID                 string        `json:"id" db:"id"`
	SiteID             string        `json:"site_id" db:"site_id"`
	ProgramID          string        `json:"program_id" db:"program_id"`
	TenantID           string        `json:"tenant_id" db:"tenant_id"`
	Day                string        `json:"day" db:"day"`
	StartedAt          time.Time     `json:"started_at" db:"started_at"`
	EndsAt             time.Time     `json:"ends_at" db:"ends_at"`
	ExpectedWakeCount  int           `json:"expected_wake_count" db:"expected_wake_count"`
	CompletedWakeCount int           `json:"completed_wake_count" db:"completed_wake_count"`
	FailedWakeCount    int           `json:"failed_wake_count" db:"failed_wake_count"`
	ExtraWakeCount     int           `json:"extra_wake_count" db:"extra_wake_count"`
	ConfigChanged      bool          `json:"config_changed" db:"config_changed"`
	Status             SessionStatus `json:"status" db:"status"`
	LockedAt           *time.Time    `json:"locked_at,omitempty" db:"locked_at"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// Counters returns the session's wake counters as a compact value for lock
// results and monitoring.
func (s *Session) Counters() SessionCounters {
	return SessionCounters{
		Expected:  s.ExpectedWakeCount,
		Completed: s.CompletedWakeCount,
		Failed:    s.FailedWakeCount,
		Extra:     s.ExtraWakeCount,
	}
}

type SessionCounters struct {
	Expected  int `json:"expected"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Extra     int `json:"extra"`
}

type AlertKind string

const (
	AlertMissedWake      AlertKind = "missed_wake"
	AlertHighFailureRate AlertKind = "high_failure_rate"
	AlertLowBattery      AlertKind = "low_battery"
)

type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityError    AlertSeverity = "error"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is one detected anomaly condition, immutable once created. An
// external actor may later stamp a resolution timestamp.
type Alert struct {
	ID         string        `json:"id" db:"id"`
	SessionID  string        `json:"session_id" db:"session_id"`
	SiteID     string        `json:"site_id" db:"site_id"`
	DeviceID   string        `json:"device_id,omitempty" db:"device_id"`
	TenantID   string        `json:"tenant_id" db:"tenant_id"`
	Kind       AlertKind     `json:"kind" db:"kind"`
	Severity   AlertSeverity `json:"severity" db:"severity"`
	Message    string        `json:"message" db:"message"`
	Deficit    int           `json:"deficit,omitempty" db:"deficit"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}

// AlertFilters defines the available filter options for alert listings.
// Decoded from query strings via gorilla/schema.
type AlertFilters struct {
	SiteID     string `schema:"site_id"`
	SessionID  string `schema:"session_id"`
	DeviceID   string `schema:"device_id"`
	Kind       string `schema:"kind"`
	Severity   string `schema:"severity"`
	Unresolved bool   `schema:"unresolved"`
}
