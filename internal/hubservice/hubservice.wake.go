// FilePath: internal/hubservice/hubservice.wake.go
package hubservice

import (
	"context"
	"time"

	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/models"
	"github.com/brainlytree/hub/internal/schedule"
	nuts "github.com/vaudience/go-nuts"
)

// IngestResult is the outcome of one wake ingestion.
type IngestResult struct {
	Wake    *models.WakeRecord  `json:"wake"`
	Media   *models.MediaRecord `json:"media"`
	Session *models.Session     `json:"session"`
}

// IngestWake processes one wake report: resolve the device's lineage,
// find or lazily open the site-day session, infer the schedule slot,
// write the immutable wake record, and upsert the media record the
// device is about to transmit. The whole path runs under the per-device
// lock so two reports from the same device cannot interleave.
func (s *HubService) IngestWake(ctx context.Context, deviceID string, capturedAt time.Time, mediaName string, totalChunks, maxChunkSize int, telemetry models.Telemetry) (*IngestResult, error) {
	if deviceID == "" {
		return nil, errors.NewValidationError("device id is required", nil)
	}
	if mediaName == "" {
		return nil, errors.NewValidationError("media name is required", nil)
	}

	release, err := s.Locks.Acquire(ctx, "device:"+deviceID)
	if err != nil {
		return nil, err
	}
	defer release()

	lineage, err := s.Directory.GetLineage(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	device, err := s.Directory.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	localAt := capturedAt.In(lineage.Location())
	day := localAt.Format(models.DayFormat)

	session, err := s.Sessions.GetBySiteDay(ctx, lineage.SiteID, day)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
		// A wake arriving before the daily opener ran still needs a home;
		// the opener later refreshes the expected count.
		dayStart := time.Date(localAt.Year(), localAt.Month(), localAt.Day(), 0, 0, 0, 0, lineage.Location())
		session, _, err = s.Sessions.FindOrCreate(ctx, &models.Session{
			ID:        nuts.NID("ses", 12),
			SiteID:    lineage.SiteID,
			ProgramID: lineage.ProgramID,
			TenantID:  lineage.TenantID,
			Day:       day,
			StartedAt: dayStart,
			EndsAt:    dayStart.Add(24 * time.Hour),
			Status:    models.SessionInProgress,
		})
		if err != nil {
			return nil, err
		}
	}

	slotIndex, overage := schedule.InferSlotIndex(localAt.Hour(), device.ScheduleExpr)

	wake := &models.WakeRecord{
		ID:         nuts.NID("wk", 12),
		DeviceID:   deviceID,
		SessionID:  session.ID,
		TenantID:   lineage.TenantID,
		CapturedAt: capturedAt,
		SlotIndex:  slotIndex,
		Overage:    overage,
		Telemetry:  telemetry,
		Status:     models.WakePending,
	}
	if err := s.Wakes.Create(ctx, wake); err != nil {
		return nil, err
	}

	media, err := s.Media.Upsert(ctx, &models.MediaRecord{
		ID:           nuts.NID("med", 12),
		DeviceID:     deviceID,
		Name:         mediaName,
		TotalChunks:  totalChunks,
		MaxChunkSize: maxChunkSize,
		Status:       models.MediaReceiving,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Wakes.LinkMedia(ctx, wake.ID, media.ID); err != nil {
		return nil, err
	}
	if err := s.Wakes.UpdateStatus(ctx, wake.ID, models.WakeReceiving, models.MediaReceiving); err != nil {
		return nil, err
	}
	wake.MediaID = media.ID
	wake.MediaStatus = models.MediaReceiving
	wake.Status = models.WakeReceiving

	if overage {
		if err := s.Sessions.AddCounters(ctx, session.ID, 0, 0, 1); err != nil {
			return nil, err
		}
	}

	// Liveness and battery are best effort; a stamp failure must not
	// reject field data.
	if err := s.Directory.UpdateDeviceLiveness(ctx, deviceID, capturedAt); err != nil {
		nuts.L.Warnf("[WakeService] Failed to stamp liveness for device %s: %v", deviceID, err)
	}
	if battery, ok := telemetry["battery"]; ok {
		if err := s.Directory.UpdateDeviceBattery(ctx, deviceID, battery, capturedAt); err != nil {
			nuts.L.Warnf("[WakeService] Failed to stamp battery for device %s: %v", deviceID, err)
		}
	}

	session, err = s.Sessions.Get(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	nuts.L.Infof("[WakeService] Ingested wake %s for device %s (slot %d, overage %v)",
		wake.ID, deviceID, slotIndex, overage)
	return &IngestResult{Wake: wake, Media: media, Session: session}, nil
}

// RecordMediaChunk advances the received-chunk progress for a media
// record in transit.
func (s *HubService) RecordMediaChunk(ctx context.Context, mediaID string, chunkID, totalChunks int) (*models.MediaRecord, error) {
	if chunkID <= 0 {
		return nil, errors.NewValidationError("chunk id must be positive", nil)
	}
	return s.Media.RecordChunk(ctx, mediaID, chunkID, totalChunks)
}

// CompleteMedia marks a media transmission complete and moves the
// session's completed counter. Duplicate completion is absorbed: the
// counter moves only on the receiving -> complete transition.
func (s *HubService) CompleteMedia(ctx context.Context, mediaID, url string) (*models.MediaRecord, error) {
	media, transitioned, err := s.Media.Complete(ctx, mediaID, url, time.Now())
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return media, nil
	}

	wake, err := s.Wakes.GetLatestByMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if err := s.Wakes.UpdateStatus(ctx, wake.ID, models.WakeComplete, models.MediaComplete); err != nil {
		return nil, err
	}
	if err := s.Sessions.AddCounters(ctx, wake.SessionID, 1, 0, 0); err != nil {
		return nil, err
	}

	nuts.L.Infof("[WakeService] Media %s complete for wake %s", mediaID, wake.ID)
	s.emit("media.completed", mediaID)
	return media, nil
}

// FailMedia marks a media transmission failed and moves the session's
// failed counter, with the same duplicate absorption as CompleteMedia.
func (s *HubService) FailMedia(ctx context.Context, mediaID, reason string) (*models.MediaRecord, error) {
	media, transitioned, err := s.Media.Fail(ctx, mediaID, reason, time.Now())
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return media, nil
	}

	wake, err := s.Wakes.GetLatestByMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if err := s.Wakes.UpdateStatus(ctx, wake.ID, models.WakeFailed, models.MediaFailed); err != nil {
		return nil, err
	}
	if err := s.Sessions.AddCounters(ctx, wake.SessionID, 0, 1, 0); err != nil {
		return nil, err
	}

	nuts.L.Warnf("[WakeService] Media %s failed for wake %s: %s (retryable: %v)",
		mediaID, wake.ID, reason, media.Retryable(s.opts.MediaMaxRetries))
	s.emit("media.failed", mediaID)
	return media, nil
}

// GetWake returns one wake record.
func (s *HubService) GetWake(ctx context.Context, id string) (*models.WakeRecord, error) {
	return s.Wakes.Get(ctx, id)
}

// GetMedia returns one media record.
func (s *HubService) GetMedia(ctx context.Context, id string) (*models.MediaRecord, error) {
	return s.Media.Get(ctx, id)
}

// GetSession returns one session.
func (s *HubService) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return s.Sessions.Get(ctx, id)
}

// ListSessionAlerts returns the alerts raised against one session.
func (s *HubService) ListSessionAlerts(ctx context.Context, sessionID string) ([]*models.Alert, error) {
	if _, err := s.Sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.Alerts.ListBySession(ctx, sessionID)
}
