// FilePath: internal/hubservice/hubservice.go
package hubservice

import (
	"github.com/brainlytree/hub/internal/devicelock"
	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/repository"
	"github.com/brainlytree/hub/internal/tracking"
	nuts "github.com/vaudience/go-nuts"
)

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Directory repository.DirectoryRepository
	Sessions  repository.SessionRepository
	Wakes     repository.WakeRepository
	Media     repository.MediaRepository
	Tracks    repository.TrackRepository
	Alerts    repository.AlertRepository
	Locks     devicelock.Locker

	opts   Options
	events *nuts.EventEmitter
}

// Options carries the tunable thresholds of the session rollup, the
// spatial tracker and the media retry bookkeeping.
type Options struct {
	MissedWakeDeficit int
	FailureRateLimit  float64
	BatteryCritical   float64
	DistanceThreshold float64
	MediaMaxRetries   int
}

func DefaultOptions() Options {
	return Options{
		MissedWakeDeficit: 2,
		FailureRateLimit:  0.30,
		BatteryCritical:   15.0,
		DistanceThreshold: tracking.DefaultDistanceThreshold,
		MediaMaxRetries:   3,
	}
}

// New creates a new HubService instance
func New(
	directory repository.DirectoryRepository,
	sessions repository.SessionRepository,
	wakes repository.WakeRepository,
	media repository.MediaRepository,
	tracks repository.TrackRepository,
	alerts repository.AlertRepository,
	locks devicelock.Locker,
	opts Options,
) *HubService {
	return &HubService{
		Directory: directory,
		Sessions:  sessions,
		Wakes:     wakes,
		Media:     media,
		Tracks:    tracks,
		Alerts:    alerts,
		Locks:     locks,
		opts:      opts,
		events:    nuts.NewEventEmitter(),
	}
}

// Validate checks if all required dependencies are initialized
func (s *HubService) Validate() error {
	if s.Directory == nil {
		return ErrMissingDependency("directory")
	}
	if s.Sessions == nil {
		return ErrMissingDependency("sessions")
	}
	if s.Wakes == nil {
		return ErrMissingDependency("wakes")
	}
	if s.Media == nil {
		return ErrMissingDependency("media")
	}
	if s.Tracks == nil {
		return ErrMissingDependency("tracks")
	}
	if s.Alerts == nil {
		return ErrMissingDependency("alerts")
	}
	if s.Locks == nil {
		return ErrMissingDependency("locks")
	}
	return nil
}

func ErrMissingDependency(name string) error {
	return errors.NewInternalError("missing dependency: "+name, nil)
}

// OnEvent registers a callback for service events (session.opened,
// session.locked, alert.created, media.completed, media.failed,
// track.lost).
func (s *HubService) OnEvent(event string, handler func(id string)) {
	s.events.On(event, "hub_handler", func(args ...interface{}) {
		if len(args) > 0 {
			if id, ok := args[0].(string); ok {
				handler(id)
			}
		}
	})
}

func (s *HubService) emit(event, id string) {
	s.events.Emit(event, id)
}
