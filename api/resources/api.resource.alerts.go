// FilePath: api/resources/api.resource.alerts.go
package resources

import (
	"net/http"
	"time"

	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/hubservice"
	"github.com/brainlytree/hub/internal/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"
)

// AlertHandlers encapsulates the alert HTTP handlers
type AlertHandlers struct {
	hubservice *hubservice.HubService
}

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// @Summary List alerts
// @Description Filterable by site_id, session_id, device_id, kind, severity and unresolved
// @Tags alerts
// @Produce json
// @Param site_id query string false "Site ID"
// @Param session_id query string false "Session ID"
// @Param device_id query string false "Device ID"
// @Param kind query string false "Alert kind"
// @Param severity query string false "Alert severity"
// @Param unresolved query bool false "Only unresolved alerts"
// @Success 200 {array} models.Alert
// @Failure 400 {object} errors.APIError
// @Router /alerts [get]
func (h *AlertHandlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var filters models.AlertFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid filter parameters", err).WithRequestID(requestID))
		return
	}
	offset, limit := getPaginationParams(r)

	alerts, err := h.hubservice.ListAlerts(r.Context(), filters, offset, limit)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, alerts)
}

// @Summary Resolve an alert
// @Tags alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} models.Alert
// @Failure 404 {object} errors.APIError
// @Router /alerts/{id}/resolve [post]
func (h *AlertHandlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	alert, err := h.hubservice.ResolveAlert(r.Context(), id, time.Now())
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, alert)
}
