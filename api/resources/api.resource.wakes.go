// FilePath: api/resources/api.resource.wakes.go
package resources

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/hubservice"
	"github.com/brainlytree/hub/internal/models"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// WakeHandlers encapsulates the wake-ingestion HTTP handlers
type WakeHandlers struct {
	hubservice *hubservice.HubService
}

// IngestWakeRequest is the wake report a device (or its transport
// gateway) posts on wake-up.
type IngestWakeRequest struct {
	DeviceID     string           `json:"device_id"`
	CapturedAt   time.Time        `json:"captured_at"`
	MediaName    string           `json:"media_name"`
	TotalChunks  int              `json:"total_chunks"`
	MaxChunkSize int              `json:"max_chunk_size"`
	Telemetry    models.Telemetry `json:"telemetry"`
}

// @Summary Ingest a device wake report
// @Description Record one wake: session attribution, slot inference and media registration
// @Tags wakes
// @Accept json
// @Produce json
// @Param wake body IngestWakeRequest true "Wake report"
// @Success 201 {object} hubservice.IngestResult
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /wakes [post]
func (h *WakeHandlers) IngestWake(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req IngestWakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.CapturedAt.IsZero() {
		req.CapturedAt = time.Now()
	}

	result, err := h.hubservice.IngestWake(r.Context(), req.DeviceID, req.CapturedAt,
		req.MediaName, req.TotalChunks, req.MaxChunkSize, req.Telemetry)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// @Summary Get a wake record by ID
// @Tags wakes
// @Produce json
// @Param id path string true "Wake record ID"
// @Success 200 {object} models.WakeRecord
// @Failure 404 {object} errors.APIError
// @Router /wakes/{id} [get]
func (h *WakeHandlers) GetWake(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	wake, err := h.hubservice.GetWake(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, wake)
}
