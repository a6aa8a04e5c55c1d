// FilePath: api/resources/api.resource.tracking.go
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

// TrackingHandlers encapsulates the colony-tracking HTTP handlers
type TrackingHandlers struct {
	hubservice *hubservice.HubService
}

// MatchRequest carries the detections of one analyzed image.
type MatchRequest struct {
	ImageID    string           `json:"image_id"`
	DeviceID   string           `json:"device_id"`
	TenantID   string           `json:"tenant_id"`
	CapturedAt time.Time        `json:"captured_at"`
	Detections []DetectionInput `json:"detections"`
}

type DetectionInput struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Area   float64 `json:"area"`
}

// @Summary Match an image's detections against colony tracks
// @Description Greedy centroid matching, track extension/creation and miss aging
// @Tags tracking
// @Accept json
// @Produce json
// @Param match body MatchRequest true "Image detections"
// @Success 200 {object} hubservice.MatchResult
// @Failure 400 {object} errors.APIError
// @Router /tracking/match [post]
func (h *TrackingHandlers) MatchTracks(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.CapturedAt.IsZero() {
		req.CapturedAt = time.Now()
	}

	detections := make([]*models.Detection, 0, len(req.Detections))
	for _, d := range req.Detections {
		detections = append(detections, &models.Detection{
			X:      d.X,
			Y:      d.Y,
			Width:  d.Width,
			Height: d.Height,
			Area:   d.Area,
		})
	}

	result, err := h.hubservice.MatchColonyTracks(r.Context(), req.ImageID, req.DeviceID,
		req.TenantID, detections, req.CapturedAt)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// @Summary List a device's colony tracks
// @Tags tracking
// @Produce json
// @Param id path string true "Device ID"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {array} models.ColonyTrack
// @Router /devices/{id}/tracks [get]
func (h *TrackingHandlers) ListDeviceTracks(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deviceID := vars["id"]
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	tracks, err := h.hubservice.ListDeviceTracks(r.Context(), deviceID, offset, limit)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tracks)
}
