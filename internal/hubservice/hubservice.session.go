// FilePath: internal/hubservice/hubservice.session.go
package hubservice

import (
	"context"
	"time"

	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/models"
	"github.com/brainlytree/hub/internal/schedule"
	nuts "github.com/vaudience/go-nuts"
)

// OpenSessionResult reports one open-session attempt.
type OpenSessionResult struct {
	Session        *models.Session `json:"session"`
	Created        bool            `json:"created"`
	ChangesApplied int             `json:"changes_applied"`
}

// LockSessionResult reports one lock-session attempt. NoOp is true when
// there was no open session to lock (never opened, or already locked).
type LockSessionResult struct {
	Session  *models.Session        `json:"session,omitempty"`
	NoOp     bool                   `json:"no_op"`
	Counters models.SessionCounters `json:"counters"`
	Alerts   []*models.Alert        `json:"alerts"`
}

// SiteOutcome is one site's result within a batch run.
type SiteOutcome struct {
	SiteID string `json:"site_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates a daily open/lock run over all active sites.
type BatchResult struct {
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Outcomes  []SiteOutcome `json:"outcomes"`
}

// OpenDailySession opens (or refreshes) the site's session for the
// site-local day containing now. Pending schedule changes effective that
// day are applied first and flag the session as config-changed; the
// expected wake count is the sum over the site's active devices.
func (s *HubService) OpenDailySession(ctx context.Context, siteID string, now time.Time) (*OpenSessionResult, error) {
	site, err := s.Directory.GetSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site.ProgramID == "" {
		return nil, errors.NewNotFoundError("site is not part of a monitoring program", nil)
	}

	loc := site.Location()
	localNow := now.In(loc)
	day := localNow.Format(models.DayFormat)
	dayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)

	configChanged := false
	applied := 0
	changes, err := s.Directory.ListPendingScheduleChanges(ctx, siteID, day)
	if err != nil {
		return nil, err
	}
	for _, change := range changes {
		if err := s.Directory.UpdateDeviceSchedule(ctx, change.DeviceID, change.NewExpr); err != nil {
			nuts.L.Warnf("[SessionService] Failed to apply schedule change %s for device %s: %v",
				change.ID, change.DeviceID, err)
			continue
		}
		if err := s.Directory.MarkScheduleChangeApplied(ctx, change.ID, now); err != nil {
			nuts.L.Warnf("[SessionService] Failed to stamp schedule change %s: %v", change.ID, err)
			continue
		}
		configChanged = true
		applied++
	}

	devices, err := s.Directory.ListActiveDevices(ctx, siteID)
	if err != nil {
		return nil, err
	}
	expected := 0
	for _, device := range devices {
		expected += schedule.ExpectedWakesPerDay(device.ScheduleExpr)
	}

	session := &models.Session{
		ID:                nuts.NID("ses", 12),
		SiteID:            siteID,
		ProgramID:         site.ProgramID,
		TenantID:          site.TenantID,
		Day:               day,
		StartedAt:         dayStart,
		EndsAt:            dayStart.Add(24 * time.Hour),
		ExpectedWakeCount: expected,
		ConfigChanged:     configChanged,
		Status:            models.SessionInProgress,
	}

	stored, created, err := s.Sessions.FindOrCreate(ctx, session)
	if err != nil {
		return nil, err
	}
	if !created {
		// Re-opening an existing day refreshes expectations; the
		// config-changed flag only ever latches upward.
		if err := s.Sessions.RefreshExpectations(ctx, stored.ID, expected, configChanged); err != nil {
			return nil, err
		}
		stored, err = s.Sessions.Get(ctx, stored.ID)
		if err != nil {
			return nil, err
		}
	}

	if created {
		nuts.L.Infof("[SessionService] Opened session %s for site %s day %s (expected %d wakes)",
			stored.ID, siteID, day, expected)
		s.emit("session.opened", stored.ID)
	}
	return &OpenSessionResult{Session: stored, Created: created, ChangesApplied: applied}, nil
}

// LockDailySession locks the site's session for the site-local day
// containing now and runs the rollup checks. A day with no open session,
// or one already locked, is a no-op rather than an error.
func (s *HubService) LockDailySession(ctx context.Context, siteID string, now time.Time) (*LockSessionResult, error) {
	site, err := s.Directory.GetSite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	day := now.In(site.Location()).Format(models.DayFormat)
	session, err := s.Sessions.GetBySiteDay(ctx, siteID, day)
	if err != nil {
		if errors.IsNotFound(err) {
			return &LockSessionResult{NoOp: true}, nil
		}
		return nil, err
	}
	if session.Status == models.SessionLocked {
		return &LockSessionResult{NoOp: true, Session: session, Counters: session.Counters()}, nil
	}

	locked, err := s.Sessions.Lock(ctx, session.ID, now)
	if err != nil {
		return nil, err
	}
	if !locked {
		// Lost the race against a concurrent lock.
		session, err = s.Sessions.Get(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		return &LockSessionResult{NoOp: true, Session: session, Counters: session.Counters()}, nil
	}

	session, err = s.Sessions.Get(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	alerts := s.rollupSession(ctx, session)
	nuts.L.Infof("[SessionService] Locked session %s for site %s day %s (%d alerts)",
		session.ID, siteID, day, len(alerts))
	s.emit("session.locked", session.ID)

	return &LockSessionResult{Session: session, Counters: session.Counters(), Alerts: alerts}, nil
}

// RunDailyOpen opens sessions for every active site. Per-site failures
// are recorded in the outcome list and never abort the run.
func (s *HubService) RunDailyOpen(ctx context.Context, now time.Time) (*BatchResult, error) {
	return s.runBatch(ctx, now, "open", func(ctx context.Context, siteID string) error {
		_, err := s.OpenDailySession(ctx, siteID, now)
		return err
	})
}

// RunDailyLock locks sessions for every active site with the same
// isolation guarantees as RunDailyOpen.
func (s *HubService) RunDailyLock(ctx context.Context, now time.Time) (*BatchResult, error) {
	return s.runBatch(ctx, now, "lock", func(ctx context.Context, siteID string) error {
		_, err := s.LockDailySession(ctx, siteID, now)
		return err
	})
}

func (s *HubService) runBatch(ctx context.Context, now time.Time, name string, op func(context.Context, string) error) (*BatchResult, error) {
	sites, err := s.Directory.ListActiveSites(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Attempted: len(sites)}
	for _, site := range sites {
		outcome := SiteOutcome{SiteID: site.ID, OK: true}
		if err := op(ctx, site.ID); err != nil {
			outcome.OK = false
			outcome.Error = err.Error()
			nuts.L.Warnf("[SessionService] Daily %s failed for site %s: %v", name, site.ID, err)
		} else {
			result.Succeeded++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	nuts.L.Infof("[SessionService] Daily %s run: %d/%d sites succeeded",
		name, result.Succeeded, result.Attempted)
	return result, nil
}
