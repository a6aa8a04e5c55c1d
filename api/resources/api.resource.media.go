// FilePath: api/resources/api.resource.media.go
package resources

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brainlytree/hub/internal/errors"
	"github.com/brainlytree/hub/internal/hubservice"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// MediaHandlers encapsulates the media-lifecycle HTTP handlers
type MediaHandlers struct {
	hubservice *hubservice.HubService
}

type RecordChunkRequest struct {
	ChunkID     int `json:"chunk_id"`
	TotalChunks int `json:"total_chunks"`
}

type CompleteMediaRequest struct {
	URL string `json:"url"`
}

type FailMediaRequest struct {
	Reason string `json:"reason"`
}

type GrowthScoreRequest struct {
	Score       float64   `json:"score"`
	ColonyCount int       `json:"colony_count"`
	ScoredAt    time.Time `json:"scored_at"`
}

// @Summary Record a received media chunk
// @Tags media
// @Accept json
// @Produce json
// @Param id path string true "Media ID"
// @Param chunk body RecordChunkRequest true "Chunk progress"
// @Success 200 {object} models.MediaRecord
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /media/{id}/chunks [post]
func (h *MediaHandlers) RecordChunk(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var req RecordChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	media, err := h.hubservice.RecordMediaChunk(r.Context(), id, req.ChunkID, req.TotalChunks)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, media)
}

// @Summary Mark a media transmission complete
// @Tags media
// @Accept json
// @Produce json
// @Param id path string true "Media ID"
// @Param body body CompleteMediaRequest true "Completion details"
// @Success 200 {object} models.MediaRecord
// @Failure 404 {object} errors.APIError
// @Router /media/{id}/complete [post]
func (h *MediaHandlers) CompleteMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var req CompleteMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	media, err := h.hubservice.CompleteMedia(r.Context(), id, req.URL)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, media)
}

// @Summary Mark a media transmission failed
// @Tags media
// @Accept json
// @Produce json
// @Param id path string true "Media ID"
// @Param body body FailMediaRequest true "Failure details"
// @Success 200 {object} models.MediaRecord
// @Failure 404 {object} errors.APIError
// @Router /media/{id}/fail [post]
func (h *MediaHandlers) FailMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var req FailMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	media, err := h.hubservice.FailMedia(r.Context(), id, req.Reason)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, media)
}

// @Summary Record a growth score for a media image
// @Description Store the scored growth index and derive growth metrics
// @Tags media
// @Accept json
// @Produce json
// @Param id path string true "Media ID"
// @Param score body GrowthScoreRequest true "Growth score"
// @Success 200 {object} hubservice.GrowthScoreResult
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /media/{id}/score [post]
func (h *MediaHandlers) RecordGrowthScore(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var req GrowthScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.ScoredAt.IsZero() {
		req.ScoredAt = time.Now()
	}

	result, err := h.hubservice.RecordGrowthScore(r.Context(), id, req.Score, req.ColonyCount, req.ScoredAt)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// @Summary Get a media record by ID
// @Tags media
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} models.MediaRecord
// @Failure 404 {object} errors.APIError
// @Router /media/{id} [get]
func (h *MediaHandlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	media, err := h.hubservice.GetMedia(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"media":          media,
		"missing_chunks": media.MissingChunkCount(),
	})
}
