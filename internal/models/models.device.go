// FilePath: internal/models/models.device.go
package models

import "time"

// DayFormat is the canonical representation of a site-local calendar day.
const DayFormat = "2006-01-02"

type DeviceStatus string

const (
	DeviceActive   DeviceStatus = "active"
	DeviceInactive DeviceStatus = "inactive"
	DeviceRetired  DeviceStatus = "retired"
)

// Device is one battery-powered field unit (ESP32-CAM class hardware).
// ScheduleExpr holds the compact wake-schedule expression; it is stored as
// text and re-parsed on each use.
type Device struct {
	ID               string       `json:"id" db:"id"`
	TenantID         string       `json:"tenant_id" db:"tenant_id"`
	Name             string       `json:"name" db:"name"`
	MAC              string       `json:"mac" db:"mac"`
	ScheduleExpr     string       `json:"schedule_expr" db:"schedule_expr"`
	BatteryLevel     float64      `json:"battery_level" db:"battery_level"`
	BatteryUpdatedAt *time.Time   `json:"battery_updated_at,omitempty" db:"battery_updated_at"`
	LastSeen         *time.Time   `json:"last_seen,omitempty" db:"last_seen"`
	LastWakeReceived *time.Time   `json:"last_wake_received,omitempty" db:"last_wake_received"`
	Status           DeviceStatus `json:"status" db:"status"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// Site is a physical monitoring location. A site belongs to exactly one
// program and tenant; the program's date range bounds the daily batch
// drivers.
type Site struct {
	ID           string    `json:"id" db:"id"`
	ProgramID    string    `json:"program_id" db:"program_id"`
	TenantID     string    `json:"tenant_id" db:"tenant_id"`
	Name         string    `json:"name" db:"name"`
	Timezone     string    `json:"timezone" db:"timezone"`
	ProgramStart time.Time `json:"program_start" db:"program_start"`
	ProgramEnd   time.Time `json:"program_end" db:"program_end"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Location resolves the site's IANA timezone, falling back to UTC.
func (s *Site) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type SiteAssignment struct {
	ID        string    `json:"id" db:"id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	SiteID    string    `json:"site_id" db:"site_id"`
	Primary   bool      `json:"primary" db:"primary_assignment"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Lineage is the resolved device -> site -> program -> tenant chain for a
// device's active primary assignment.
type Lineage struct {
	DeviceID  string `json:"device_id" db:"device_id"`
	SiteID    string `json:"site_id" db:"site_id"`
	ProgramID string `json:"program_id" db:"program_id"`
	TenantID  string `json:"tenant_id" db:"tenant_id"`
	Timezone  string `json:"timezone" db:"timezone"`
}

// Location resolves the lineage's site timezone, falling back to UTC.
func (l *Lineage) Location() *time.Location {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ScheduleChange is a pending request to swap a device's wake schedule.
// Changes are applied by the session opener on their effective day and
// stamped so they apply exactly once.
type ScheduleChange struct {
	ID            string     `json:"id" db:"id"`
	DeviceID      string     `json:"device_id" db:"device_id"`
	NewExpr       string     `json:"new_expr" db:"new_expr"`
	EffectiveDate string     `json:"effective_date" db:"effective_date"`
	AppliedAt     *time.Time `json:"applied_at,omitempty" db:"applied_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
