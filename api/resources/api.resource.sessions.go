// FilePath: api/resources/api.resource.sessions.go
package resources

import (
	"net/http"
	"time"

	"github.com/brainlytree/hub/internal/hubservice"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// SessionHandlers encapsulates the session-lifecycle HTTP handlers
type SessionHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Open the site's session for today
// @Description Idempotent open of the site-local daily session, applying pending schedule changes
// @Tags sessions
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} hubservice.OpenSessionResult
// @Failure 404 {object} errors.APIError
// @Router /sites/{id}/sessions/open [post]
func (h *SessionHandlers) OpenSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	siteID := vars["id"]
	requestID := nuts.NID("req", 12)

	result, err := h.hubservice.OpenDailySession(r.Context(), siteID, time.Now())
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	respondWithJSON(w, code, result)
}

// @Summary Lock the site's session for today
// @Description Forward-only lock with rollup and alerting; no-op when nothing is open
// @Tags sessions
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} hubservice.LockSessionResult
// @Failure 404 {object} errors.APIError
// @Router /sites/{id}/sessions/lock [post]
func (h *SessionHandlers) LockSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	siteID := vars["id"]
	requestID := nuts.NID("req", 12)

	result, err := h.hubservice.LockDailySession(r.Context(), siteID, time.Now())
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// @Summary Open sessions for all active sites
// @Tags sessions
// @Produce json
// @Success 200 {object} hubservice.BatchResult
// @Router /sessions/open-all [post]
func (h *SessionHandlers) OpenAllSessions(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	result, err := h.hubservice.RunDailyOpen(r.Context(), time.Now())
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// @Summary Lock sessions for all active sites
// @Tags sessions
// @Produce json
// @Success 200 {object} hubservice.BatchResult
// @Router /sessions/lock-all [post]
func (h *SessionHandlers) LockAllSessions(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	result, err := h.hubservice.RunDailyLock(r.Context(), time.Now())
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// @Summary Get a session by ID
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.Session
// @Failure 404 {object} errors.APIError
// @Router /sessions/{id} [get]
func (h *SessionHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	session, err := h.hubservice.GetSession(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// @Summary List the alerts raised against a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} models.Alert
// @Failure 404 {object} errors.APIError
// @Router /sessions/{id}/alerts [get]
func (h *SessionHandlers) ListSessionAlerts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	alerts, err := h.hubservice.ListSessionAlerts(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, alerts)
}
