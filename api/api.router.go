package api

import (
	"net/http"

	"github.com/brainlytree/hub/api/middleware"
	"github.com/brainlytree/hub/api/resources"
	"github.com/brainlytree/hub/internal/hubservice"
	"github.com/gorilla/mux"
)

type Router struct {
	router    *mux.Router
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		resources: resources.NewResources(svc),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RequestID)

	api.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		r.resources.HealthCheck(w, req)
	}).Methods(http.MethodGet)

	// Wakes
	wakes := api.PathPrefix("/wakes").Subrouter()
	wakes.HandleFunc("", r.resources.Wakes.IngestWake).Methods(http.MethodPost)
	wakes.HandleFunc("/{id}", r.resources.Wakes.GetWake).Methods(http.MethodGet)

	// Media
	media := api.PathPrefix("/media").Subrouter()
	media.HandleFunc("/{id}", r.resources.Media.GetMedia).Methods(http.MethodGet)
	media.HandleFunc("/{id}/chunks", r.resources.Media.RecordChunk).Methods(http.MethodPost)
	media.HandleFunc("/{id}/complete", r.resources.Media.CompleteMedia).Methods(http.MethodPost)
	media.HandleFunc("/{id}/fail", r.resources.Media.FailMedia).Methods(http.MethodPost)
	media.HandleFunc("/{id}/score", r.resources.Media.RecordGrowthScore).Methods(http.MethodPost)

	// Sessions
	api.HandleFunc("/sites/{id}/sessions/open", r.resources.Sessions.OpenSession).Methods(http.MethodPost)
	api.HandleFunc("/sites/{id}/sessions/lock", r.resources.Sessions.LockSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/open-all", r.resources.Sessions.OpenAllSessions).Methods(http.MethodPost)
	api.HandleFunc("/sessions/lock-all", r.resources.Sessions.LockAllSessions).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", r.resources.Sessions.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/alerts", r.resources.Sessions.ListSessionAlerts).Methods(http.MethodGet)

	// Tracking
	api.HandleFunc("/tracking/match", r.resources.Tracking.MatchTracks).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/tracks", r.resources.Tracking.ListDeviceTracks).Methods(http.MethodGet)

	// Alerts
	api.HandleFunc("/alerts", r.resources.Alerts.ListAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/resolve", r.resources.Alerts.ResolveAlert).Methods(http.MethodPost)
}

// SetHealthCheck wires the health endpoint handler.
func (r *Router) SetHealthCheck(h func(w http.ResponseWriter, req *http.Request)) {
	r.resources.SetHealthCheck(h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
