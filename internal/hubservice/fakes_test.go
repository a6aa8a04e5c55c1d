// FilePath: internal/hubservice/fakes_test.go
package hubservice

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/brainlytree/hub/internal/database"
	"github.com/brainlytree/hub/internal/devicelock"
	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/models"
)

// In-memory fakes backing the service tests. They mirror the guarded
// transitions of the real repositories (forward-only status moves,
// latching flags, monotonic chunk counts) so the idempotency tests mean
// something.

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }
func (fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

type fakeBase struct{}

func (fakeBase) BeginTx(ctx context.Context) (database.Transaction, error) { return fakeTx{}, nil }

type fakeDirectory struct {
	devices     map[string]*models.Device
	sites       map[string]*models.Site
	assignments map[string]string // deviceID -> siteID (active primary)
	changes     map[string]*models.ScheduleChange
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		devices:     map[string]*models.Device{},
		sites:       map[string]*models.Site{},
		assignments: map[string]string{},
		changes:     map[string]*models.ScheduleChange{},
	}
}

func (f *fakeDirectory) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return nil, errors.NewNotFoundError("device not found", nil)
	}
	return d, nil
}

func (f *fakeDirectory) GetSite(ctx context.Context, id string) (*models.Site, error) {
	s, ok := f.sites[id]
	if !ok {
		return nil, errors.NewNotFoundError("site not found", nil)
	}
	return s, nil
}

func (f *fakeDirectory) GetLineage(ctx context.Context, deviceID string) (*models.Lineage, error) {
	siteID, ok := f.assignments[deviceID]
	if !ok {
		return nil, errors.NewNotFoundError("device has no active primary site assignment", nil)
	}
	site := f.sites[siteID]
	return &models.Lineage{
		DeviceID:  deviceID,
		SiteID:    siteID,
		ProgramID: site.ProgramID,
		TenantID:  site.TenantID,
		Timezone:  site.Timezone,
	}, nil
}

func (f *fakeDirectory) ListActiveSites(ctx context.Context, on time.Time) ([]*models.Site, error) {
	ids := make([]string, 0, len(f.sites))
	for id := range f.sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sites := []*models.Site{}
	for _, id := range ids {
		s := f.sites[id]
		if s.ProgramStart.After(on) || s.ProgramEnd.Before(on) {
			continue
		}
		sites = append(sites, s)
	}
	return sites, nil
}

func (f *fakeDirectory) ListActiveDevices(ctx context.Context, siteID string) ([]*models.Device, error) {
	ids := []string{}
	for deviceID, assigned := range f.assignments {
		if assigned == siteID && f.devices[deviceID].Status == models.DeviceActive {
			ids = append(ids, deviceID)
		}
	}
	sort.Strings(ids)

	devices := make([]*models.Device, 0, len(ids))
	for _, id := range ids {
		devices = append(devices, f.devices[id])
	}
	return devices, nil
}

func (f *fakeDirectory) ListPendingScheduleChanges(ctx context.Context, siteID, effectiveDate string) ([]*models.ScheduleChange, error) {
	changes := []*models.ScheduleChange{}
	for _, c := range f.changes {
		if f.assignments[c.DeviceID] == siteID && c.EffectiveDate == effectiveDate && c.AppliedAt == nil {
			changes = append(changes, c)
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].ID < changes[j].ID })
	return changes, nil
}

func (f *fakeDirectory) MarkScheduleChangeApplied(ctx context.Context, changeID string, appliedAt time.Time) error {
	c, ok := f.changes[changeID]
	if !ok || c.AppliedAt != nil {
		return errors.NewNotFoundError("schedule change not found or already applied", nil)
	}
	c.AppliedAt = &appliedAt
	return nil
}

func (f *fakeDirectory) UpdateDeviceSchedule(ctx context.Context, deviceID, expr string) error {
	d, ok := f.devices[deviceID]
	if !ok {
		return errors.NewNotFoundError("device not found", nil)
	}
	d.ScheduleExpr = expr
	return nil
}

func (f *fakeDirectory) UpdateDeviceLiveness(ctx context.Context, deviceID string, seenAt time.Time) error {
	if d, ok := f.devices[deviceID]; ok {
		at := seenAt
		d.LastSeen = &at
		d.LastWakeReceived = &at
	}
	return nil
}

func (f *fakeDirectory) UpdateDeviceBattery(ctx context.Context, deviceID string, level float64, at time.Time) error {
	if d, ok := f.devices[deviceID]; ok {
		stamp := at
		d.BatteryLevel = level
		d.BatteryUpdatedAt = &stamp
	}
	return nil
}

type fakeSessions struct {
	fakeBase
	byID      map[string]*models.Session
	bySiteDay map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[string]*models.Session{}, bySiteDay: map[string]string{}}
}

func siteDayKey(siteID, day string) string { return siteID + "|" + day }

func (f *fakeSessions) FindOrCreate(ctx context.Context, session *models.Session) (*models.Session, bool, error) {
	key := siteDayKey(session.SiteID, session.Day)
	if id, ok := f.bySiteDay[key]; ok {
		return f.byID[id], false, nil
	}
	stored := *session
	f.byID[stored.ID] = &stored
	f.bySiteDay[key] = stored.ID
	return &stored, true, nil
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*models.Session, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("session not found", nil)
	}
	return s, nil
}

func (f *fakeSessions) GetBySiteDay(ctx context.Context, siteID, day string) (*models.Session, error) {
	id, ok := f.bySiteDay[siteDayKey(siteID, day)]
	if !ok {
		return nil, errors.NewNotFoundError("session not found", nil)
	}
	return f.byID[id], nil
}

func (f *fakeSessions) RefreshExpectations(ctx context.Context, id string, expected int, configChanged bool) error {
	s, ok := f.byID[id]
	if !ok {
		return errors.NewNotFoundError("session not found", nil)
	}
	s.ExpectedWakeCount = expected
	s.ConfigChanged = s.ConfigChanged || configChanged
	return nil
}

func (f *fakeSessions) Lock(ctx context.Context, id string, at time.Time) (bool, error) {
	s, ok := f.byID[id]
	if !ok {
		return false, errors.NewNotFoundError("session not found", nil)
	}
	if s.Status != models.SessionInProgress {
		return false, nil
	}
	stamp := at
	s.Status = models.SessionLocked
	s.LockedAt = &stamp
	return true, nil
}

func (f *fakeSessions) AddCounters(ctx context.Context, id string, completed, failed, extra int) error {
	s, ok := f.byID[id]
	if !ok {
		return errors.NewNotFoundError("session not found", nil)
	}
	s.CompletedWakeCount += completed
	s.FailedWakeCount += failed
	s.ExtraWakeCount += extra
	return nil
}

type fakeWakes struct {
	fakeBase
	byID  map[string]*models.WakeRecord
	order []string
}

func newFakeWakes() *fakeWakes {
	return &fakeWakes{byID: map[string]*models.WakeRecord{}}
}

func (f *fakeWakes) Create(ctx context.Context, wake *models.WakeRecord) error {
	stored := *wake
	f.byID[stored.ID] = &stored
	f.order = append(f.order, stored.ID)
	return nil
}

func (f *fakeWakes) Get(ctx context.Context, id string) (*models.WakeRecord, error) {
	w, ok := f.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("wake record not found", nil)
	}
	return w, nil
}

func (f *fakeWakes) LinkMedia(ctx context.Context, wakeID, mediaID string) error {
	w, ok := f.byID[wakeID]
	if !ok {
		return errors.NewNotFoundError("wake record not found", nil)
	}
	w.MediaID = mediaID
	return nil
}

func (f *fakeWakes) UpdateStatus(ctx context.Context, wakeID string, status models.WakeStatus, mediaStatus models.MediaStatus) error {
	w, ok := f.byID[wakeID]
	if !ok {
		return errors.NewNotFoundError("wake record not found", nil)
	}
	if w.Status == models.WakeComplete || w.Status == models.WakeFailed {
		return nil
	}
	w.Status = status
	w.MediaStatus = mediaStatus
	return nil
}

func (f *fakeWakes) GetLatestByMedia(ctx context.Context, mediaID string) (*models.WakeRecord, error) {
	for i := len(f.order) - 1; i >= 0; i-- {
		if w := f.byID[f.order[i]]; w.MediaID == mediaID {
			return w, nil
		}
	}
	return nil, errors.NewNotFoundError("no wake record for media", nil)
}

func (f *fakeWakes) CountBySessionPerDevice(ctx context.Context, sessionID string) (map[string]int, error) {
	counts := map[string]int{}
	for _, w := range f.byID {
		if w.SessionID == sessionID {
			counts[w.DeviceID]++
		}
	}
	return counts, nil
}

type fakeMedia struct {
	fakeBase
	byID  map[string]*models.MediaRecord
	byKey map[string]string // deviceID|name -> id
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{byID: map[string]*models.MediaRecord{}, byKey: map[string]string{}}
}

func (f *fakeMedia) Upsert(ctx context.Context, media *models.MediaRecord) (*models.MediaRecord, error) {
	key := media.DeviceID + "|" + media.Name
	if id, ok := f.byKey[key]; ok {
		return f.byID[id], nil
	}
	stored := *media
	f.byID[stored.ID] = &stored
	f.byKey[key] = stored.ID
	return &stored, nil
}

func (f *fakeMedia) Get(ctx context.Context, id string) (*models.MediaRecord, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("media record not found", nil)
	}
	return m, nil
}

func (f *fakeMedia) RecordChunk(ctx context.Context, id string, chunkID, totalChunks int) (*models.MediaRecord, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("media record not found", nil)
	}
	if chunkID > m.ReceivedChunks {
		m.ReceivedChunks = chunkID
	}
	if totalChunks > 0 {
		m.TotalChunks = totalChunks
	}
	return m, nil
}

func (f *fakeMedia) Complete(ctx context.Context, id, url string, at time.Time) (*models.MediaRecord, bool, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, false, errors.NewNotFoundError("media record not found", nil)
	}
	if m.Status != models.MediaReceiving {
		return m, false, nil
	}
	m.Status = models.MediaComplete
	m.URL = url
	if m.TotalChunks > m.ReceivedChunks {
		m.ReceivedChunks = m.TotalChunks
	}
	return m, true, nil
}

func (f *fakeMedia) Fail(ctx context.Context, id, reason string, at time.Time) (*models.MediaRecord, bool, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, false, errors.NewNotFoundError("media record not found", nil)
	}
	if m.Status != models.MediaReceiving {
		return m, false, nil
	}
	m.Status = models.MediaFailed
	m.FailureReason = reason
	m.RetryCount++
	return m, true, nil
}

func (f *fakeMedia) SetGrowthAttributes(ctx context.Context, id string, score, velocity float64, colonyCount int, at time.Time) error {
	m, ok := f.byID[id]
	if !ok {
		return errors.NewNotFoundError("media record not found", nil)
	}
	stamp := at
	m.GrowthScore = score
	m.GrowthVelocity = velocity
	m.ColonyCount = colonyCount
	m.ScoredAt = &stamp
	return nil
}

func (f *fakeMedia) GetPreviousScored(ctx context.Context, deviceID, excludeID string, before time.Time) (*models.MediaRecord, error) {
	var best *models.MediaRecord
	for _, m := range f.byID {
		if m.DeviceID != deviceID || m.ID == excludeID || m.ScoredAt == nil || !m.ScoredAt.Before(before) {
			continue
		}
		if best == nil || m.ScoredAt.After(*best.ScoredAt) {
			best = m
		}
	}
	if best == nil {
		return nil, errors.NewNotFoundError("no previously scored media for device", nil)
	}
	return best, nil
}

func (f *fakeMedia) GetFirstScoredSince(ctx context.Context, deviceID string, since time.Time) (*models.MediaRecord, error) {
	var best *models.MediaRecord
	for _, m := range f.byID {
		if m.DeviceID != deviceID || m.ScoredAt == nil || m.ScoredAt.Before(since) {
			continue
		}
		if best == nil || m.ScoredAt.Before(*best.ScoredAt) {
			best = m
		}
	}
	if best == nil {
		return nil, errors.NewNotFoundError("no scored media for device in range", nil)
	}
	return best, nil
}

type fakeTracks struct {
	fakeBase
	byID       map[string]*models.ColonyTrack
	detections []*models.Detection
}

func newFakeTracks() *fakeTracks {
	return &fakeTracks{byID: map[string]*models.ColonyTrack{}}
}

func (f *fakeTracks) Create(ctx context.Context, track *models.ColonyTrack) error {
	stored := *track
	f.byID[stored.ID] = &stored
	return nil
}

func (f *fakeTracks) Update(ctx context.Context, track *models.ColonyTrack) error {
	if _, ok := f.byID[track.ID]; !ok {
		return errors.NewNotFoundError("colony track not found", nil)
	}
	stored := *track
	f.byID[stored.ID] = &stored
	return nil
}

func (f *fakeTracks) Get(ctx context.Context, id string) (*models.ColonyTrack, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("colony track not found", nil)
	}
	return t, nil
}

func (f *fakeTracks) ListActiveByDevice(ctx context.Context, deviceID string) ([]*models.ColonyTrack, error) {
	tracks := []*models.ColonyTrack{}
	for _, t := range f.byID {
		if t.DeviceID == deviceID && t.Status == models.TrackActive {
			tracks = append(tracks, t)
		}
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ID < tracks[j].ID })
	return tracks, nil
}

func (f *fakeTracks) ListByDevice(ctx context.Context, deviceID string, offset, limit int) ([]*models.ColonyTrack, error) {
	tracks := []*models.ColonyTrack{}
	for _, t := range f.byID {
		if t.DeviceID == deviceID {
			tracks = append(tracks, t)
		}
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ID < tracks[j].ID })
	return tracks, nil
}

func (f *fakeTracks) LatestTrackedImage(ctx context.Context, deviceID, excludeImageID string) (string, error) {
	for i := len(f.detections) - 1; i >= 0; i-- {
		d := f.detections[i]
		if d.DeviceID == deviceID && d.TrackID != "" && d.ImageID != excludeImageID {
			return d.ImageID, nil
		}
	}
	return "", nil
}

func (f *fakeTracks) ListDetectionsByImage(ctx context.Context, imageID string) ([]*models.Detection, error) {
	detections := []*models.Detection{}
	for _, d := range f.detections {
		if d.ImageID == imageID {
			detections = append(detections, d)
		}
	}
	return detections, nil
}

func (f *fakeTracks) CreateDetection(ctx context.Context, detection *models.Detection) error {
	stored := *detection
	f.detections = append(f.detections, &stored)
	return nil
}

type fakeAlerts struct {
	fakeBase
	byID  map[string]*models.Alert
	order []string
	fail  bool // force Create failures for isolation tests
}

func newFakeAlerts() *fakeAlerts {
	return &fakeAlerts{byID: map[string]*models.Alert{}}
}

func (f *fakeAlerts) Create(ctx context.Context, alert *models.Alert) error {
	if f.fail {
		return errors.NewDatabaseError("failed to create alert", nil)
	}
	stored := *alert
	f.byID[stored.ID] = &stored
	f.order = append(f.order, stored.ID)
	return nil
}

func (f *fakeAlerts) Get(ctx context.Context, id string) (*models.Alert, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("alert not found", nil)
	}
	return a, nil
}

func (f *fakeAlerts) ListBySession(ctx context.Context, sessionID string) ([]*models.Alert, error) {
	alerts := []*models.Alert{}
	for _, id := range f.order {
		if a := f.byID[id]; a.SessionID == sessionID {
			alerts = append(alerts, a)
		}
	}
	return alerts, nil
}

func (f *fakeAlerts) List(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error) {
	alerts := []*models.Alert{}
	for _, id := range f.order {
		a := f.byID[id]
		if filters.SiteID != "" && a.SiteID != filters.SiteID {
			continue
		}
		if filters.SessionID != "" && a.SessionID != filters.SessionID {
			continue
		}
		if filters.DeviceID != "" && a.DeviceID != filters.DeviceID {
			continue
		}
		if filters.Kind != "" && string(a.Kind) != filters.Kind {
			continue
		}
		if filters.Severity != "" && string(a.Severity) != filters.Severity {
			continue
		}
		if filters.Unresolved && a.ResolvedAt != nil {
			continue
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

func (f *fakeAlerts) Resolve(ctx context.Context, id string, at time.Time) error {
	a, ok := f.byID[id]
	if !ok || a.ResolvedAt != nil {
		return errors.NewNotFoundError("alert not found or already resolved", nil)
	}
	stamp := at
	a.ResolvedAt = &stamp
	return nil
}

// testEnv bundles a service wired to fakes plus the fakes themselves for
// fixture setup and assertions.
type testEnv struct {
	svc       *HubService
	directory *fakeDirectory
	sessions  *fakeSessions
	wakes     *fakeWakes
	media     *fakeMedia
	tracks    *fakeTracks
	alerts    *fakeAlerts
}

func newTestEnv() *testEnv {
	env := &testEnv{
		directory: newFakeDirectory(),
		sessions:  newFakeSessions(),
		wakes:     newFakeWakes(),
		media:     newFakeMedia(),
		tracks:    newFakeTracks(),
		alerts:    newFakeAlerts(),
	}
	env.svc = New(env.directory, env.sessions, env.wakes, env.media, env.tracks, env.alerts,
		devicelock.NewLocalLocker(), DefaultOptions())
	return env
}

func (e *testEnv) addSite(id, tz string) *models.Site {
	site := &models.Site{
		ID:           id,
		ProgramID:    "prg_1",
		TenantID:     "ten_1",
		Name:         id,
		Timezone:     tz,
		ProgramStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ProgramEnd:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	e.directory.sites[id] = site
	return site
}

func (e *testEnv) addDevice(id, siteID, expr string) *models.Device {
	device := &models.Device{
		ID:           id,
		TenantID:     "ten_1",
		Name:         id,
		ScheduleExpr: expr,
		Status:       models.DeviceActive,
	}
	e.directory.devices[id] = device
	e.directory.assignments[id] = siteID
	return device
}
