package api

import (
	"context"
	"net/http"

	model "github.com/okian/armpredict/internal/domain/model"
)

// PredictionsDependencies defines the interface for expert prediction lookups.
type PredictionsDependencies interface {
	MatchPredictions(ctx context.Context, req model.MatchPredictionsRequest) (*model.MatchPredictionsResponse, error)
}

// PredictionsHandler handles expert prediction requests.
type PredictionsHandler struct {
	deps PredictionsDependencies
}

// NewPredictionsHandler creates a new predictions handler.
func NewPredictionsHandler(deps PredictionsDependencies) *PredictionsHandler {
	return &PredictionsHandler{deps: deps}
}

// HandlePostMatchPredictions handles POST /match-predictions requests.
func (h *PredictionsHandler) HandlePostMatchPredictions(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_predictions"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req model.MatchPredictionsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	resp, err := h.deps.MatchPredictions(r.Context(), req)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
