// FilePath: internal/models/models.wake.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Telemetry is the flat map of named numeric scalar readings a device
// reports on each wake (temperature, humidity, pressure, gas_resistance,
// battery, ...).
type Telemetry map[string]float64

// Value implements the driver.Valuer interface
func (t Telemetry) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements the sql.Scanner interface
func (t *Telemetry) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &t)
}

type WakeStatus string

const (
	WakePending   WakeStatus = "pending"
	WakeReceiving WakeStatus = "receiving"
	WakeComplete  WakeStatus = "complete"
	WakeFailed    WakeStatus = "failed"
)

type MediaStatus string

const (
	MediaReceiving MediaStatus = "receiving"
	MediaComplete  MediaStatus = "complete"
	MediaFailed    MediaStatus = "failed"
)

// WakeRecord is one device wake attempt. Immutable once captured_at and
// lineage are set; status moves forward only (pending -> receiving/failed
// -> complete). Never deleted, retained for audit.
type WakeRecord struct {
	ID          string      `json:"id" db:"id"`
	DeviceID    string      `json:"device_id" db:"device_id"`
	SessionID   string      `json:"session_id" db:"session_id"`
	TenantID    string      `json:"tenant_id" db:"tenant_id"`
	CapturedAt  time.Time   `json:"captured_at" db:"captured_at"`
	SlotIndex   int         `json:"slot_index" db:"slot_index"`
	Overage     bool        `json:"overage" db:"overage"`
	Telemetry   Telemetry   `json:"telemetry" db:"telemetry"`
	RawPayload  []byte      `json:"raw_payload,omitempty" db:"raw_payload"`
	MediaID     string      `json:"media_id,omitempty" db:"media_id"`
	MediaStatus MediaStatus `json:"media_status,omitempty" db:"media_status"`
	Status      WakeStatus  `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// MediaRecord represents one large asset (image) transmitted in chunks.
// Looked up by the natural key (device_id, name) so repeated ingestion of
// the same wake upserts instead of duplicating.
type MediaRecord struct {
	ID             string      `json:"id" db:"id"`
	DeviceID       string      `json:"device_id" db:"device_id"`
	Name           string      `json:"name" db:"name"`
	TotalChunks    int         `json:"total_chunks" db:"total_chunks"`
	ReceivedChunks int         `json:"received_chunks" db:"received_chunks"`
	MaxChunkSize   int         `json:"max_chunk_size" db:"max_chunk_size"`
	Status         MediaStatus `json:"status" db:"status"`
	RetryCount     int         `json:"retry_count" db:"retry_count"`
	FailureReason  string      `json:"failure_reason,omitempty" db:"failure_reason"`
	URL            string      `json:"url,omitempty" db:"url"`
	GrowthScore    float64     `json:"growth_score" db:"growth_score"`
	GrowthVelocity float64     `json:"growth_velocity" db:"growth_velocity"`
	ColonyCount    int         `json:"colony_count" db:"colony_count"`
	ScoredAt       *time.Time  `json:"scored_at,omitempty" db:"scored_at"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// MissingChunkCount reports how many chunks the hub has not yet seen. The
// transport collaborator uses this to drive its missing-chunk retry
// protocol.
func (m *MediaRecord) MissingChunkCount() int {
	if m.TotalChunks <= m.ReceivedChunks {
		return 0
	}
	return m.TotalChunks - m.ReceivedChunks
}

// Retryable reports whether a failed transmission is still eligible for
// the external retry queue.
func (m *MediaRecord) Retryable(maxRetries int) bool {
	return m.Status == MediaFailed && m.RetryCount < maxRetries
}
