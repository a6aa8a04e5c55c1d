// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brainlytree/hub/api"
	"github.com/brainlytree/hub/internal/config"
	"github.com/brainlytree/hub/internal/database"
	"github.com/brainlytree/hub/internal/devicelock"
	"github.com/brainlytree/hub/internal/hubservice"
	"github.com/brainlytree/hub/internal/monitoring"
	"github.com/brainlytree/hub/internal/repository/postgres"
	"github.com/brainlytree/hub/internal/repository/timescale"
	"github.com/gorilla/handlers"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	hubservice *hubservice.HubService
	monitoring *monitoring.Service
	locker     *devicelock.RedisLocker
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{
		config: cfg,
	}
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Initialize services
	s.hubservice = s.initializeHubService()
	if err := s.hubservice.Validate(); err != nil {
		return err
	}
	s.monitoring = monitoring.NewService(monitoring.Config{
		PrometheusEndpoint: s.config.Monitoring.PrometheusEndpoint,
		LokiEndpoint:       s.config.Monitoring.LokiEndpoint,
	})

	// Forward service events to monitoring
	s.setupEventHandlers()

	// Setup routes
	router := api.NewRouter(s.hubservice)
	router.SetHealthCheck(s.handleHealth())

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      handlers.RecoveryHandler()(handlers.CompressHandler(router)),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	// Start server
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if s.locker != nil {
		if err := s.locker.Close(); err != nil {
			nuts.L.Warnf("[Server] Error closing lock provider: %v", err)
		}
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth returns a simple health check handler
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
	}
}

func (s *Server) setupEventHandlers() {
	forward := func(event, metric, label string) {
		s.hubservice.OnEvent(event, func(id string) {
			s.monitoring.RecordEvent(metric, map[string]string{label: id})
		})
	}

	forward("session.opened", "session_opened", "session_id")
	forward("session.locked", "session_locked", "session_id")
	forward("alert.created", "alert_created", "alert_id")
	forward("media.completed", "media_completed", "media_id")
	forward("media.failed", "media_failed", "media_id")
	forward("track.lost", "track_lost", "track_id")
}

// initializeHubService creates and configures the hub service
func (s *Server) initializeHubService() *hubservice.HubService {
	cfg := s.config

	// Initialize database connections
	tsdb := initTimescaleDB(cfg.Database.TimescaleDB)
	appDB := initAppDB(cfg.Database.AppDB)

	// Initialize repositories
	directory, err := postgres.NewDirectoryRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize directory repository: %v", err)
	}
	sessions, err := postgres.NewSessionRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize session repository: %v", err)
	}
	media, err := postgres.NewMediaRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize media repository: %v", err)
	}
	tracks, err := postgres.NewTrackRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize track repository: %v", err)
	}
	alerts, err := postgres.NewAlertRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize alert repository: %v", err)
	}
	wakes, err := timescale.NewWakeRepository(tsdb)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize wake repository: %v", err)
	}

	locker, err := devicelock.NewRedisLocker(cfg.Redis)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize device lock provider: %v", err)
	}
	s.locker = locker

	opts := hubservice.Options{
		MissedWakeDeficit: cfg.Alerting.MissedWakeDeficit,
		FailureRateLimit:  cfg.Alerting.FailureRateLimit,
		BatteryCritical:   cfg.Alerting.BatteryCritical,
		DistanceThreshold: cfg.Tracking.DistanceThreshold,
		MediaMaxRetries:   cfg.Media.MaxRetries,
	}

	return hubservice.New(directory, sessions, wakes, media, tracks, alerts, locker, opts)
}

func initTimescaleDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewTimescaleDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to TimescaleDB: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.GetDB().PingContext(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping TimescaleDB: %v", err)
	}
	return wrappedDB
}

func initAppDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to AppDB: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.GetDB().PingContext(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping AppDB: %v", err)
	}
	return wrappedDB
}
