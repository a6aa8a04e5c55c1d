// FilePath: internal/hubservice/hubservice.alerts.go
package hubservice

import (
	"context"
	"fmt"
	"time"

	"github.com/brainlytree/hub/internal/models"
	"github.com/brainlytree/hub/internal/schedule"
	nuts "github.com/vaudience/go-nuts"
)

// rollupSession runs the three anomaly checks against a freshly locked
// session. The checks are independent; an alert that fails to persist is
// logged and skipped so one bad device cannot suppress the others.
func (s *HubService) rollupSession(ctx context.Context, session *models.Session) []*models.Alert {
	alerts := []*models.Alert{}

	devices, err := s.Directory.ListActiveDevices(ctx, session.SiteID)
	if err != nil {
		nuts.L.Warnf("[AlertService] Rollup for session %s could not list devices: %v", session.ID, err)
		devices = nil
	}

	counts, err := s.Wakes.CountBySessionPerDevice(ctx, session.ID)
	if err != nil {
		nuts.L.Warnf("[AlertService] Rollup for session %s could not count wakes: %v", session.ID, err)
		counts = map[string]int{}
	}

	for _, device := range devices {
		deficit := schedule.ExpectedWakesPerDay(device.ScheduleExpr) - counts[device.ID]
		if deficit > s.opts.MissedWakeDeficit {
			alert := &models.Alert{
				ID:        nuts.NID("alr", 12),
				SessionID: session.ID,
				SiteID:    session.SiteID,
				DeviceID:  device.ID,
				TenantID:  session.TenantID,
				Kind:      models.AlertMissedWake,
				Severity:  models.SeverityWarning,
				Message:   fmt.Sprintf("device %s missed %d expected wakes", device.ID, deficit),
				Deficit:   deficit,
			}
			alerts = append(alerts, s.persistAlert(ctx, alert)...)
		}

		if device.BatteryUpdatedAt != nil && device.BatteryLevel < s.opts.BatteryCritical {
			alert := &models.Alert{
				ID:        nuts.NID("alr", 12),
				SessionID: session.ID,
				SiteID:    session.SiteID,
				DeviceID:  device.ID,
				TenantID:  session.TenantID,
				Kind:      models.AlertLowBattery,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("device %s battery at %.1f%%", device.ID, device.BatteryLevel),
			}
			alerts = append(alerts, s.persistAlert(ctx, alert)...)
		}
	}

	if session.ExpectedWakeCount > 0 {
		rate := float64(session.FailedWakeCount) / float64(session.ExpectedWakeCount)
		if rate > s.opts.FailureRateLimit {
			alert := &models.Alert{
				ID:        nuts.NID("alr", 12),
				SessionID: session.ID,
				SiteID:    session.SiteID,
				TenantID:  session.TenantID,
				Kind:      models.AlertHighFailureRate,
				Severity:  models.SeverityError,
				Message:   fmt.Sprintf("session failure rate %.0f%% exceeds limit", rate*100),
			}
			alerts = append(alerts, s.persistAlert(ctx, alert)...)
		}
	}

	return alerts
}

func (s *HubService) persistAlert(ctx context.Context, alert *models.Alert) []*models.Alert {
	if err := s.Alerts.Create(ctx, alert); err != nil {
		nuts.L.Warnf("[AlertService] Failed to persist %s alert for session %s: %v",
			alert.Kind, alert.SessionID, err)
		return nil
	}
	s.emit("alert.created", alert.ID)
	return []*models.Alert{alert}
}

// ResolveAlert stamps the resolution timestamp on an open alert.
func (s *HubService) ResolveAlert(ctx context.Context, alertID string, at time.Time) (*models.Alert, error) {
	if err := s.Alerts.Resolve(ctx, alertID, at); err != nil {
		return nil, err
	}
	return s.Alerts.Get(ctx, alertID)
}

// ListAlerts returns filtered alerts, newest first.
func (s *HubService) ListAlerts(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Alerts.List(ctx, filters, offset, limit)
}
