package api

import (
	"context"
	"net/http"

	"github.com/okian/armpredict/internal/domain/types"
)

// AnalysisDependencies defines the interface for opening a matchup session.
type AnalysisDependencies interface {
	Analyze(ctx context.Context, req types.AnalyzeRequest) (*types.SessionView, error)
}

// AnalysisHandler handles analysis requests.
type AnalysisHandler struct {
	deps AnalysisDependencies
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(deps AnalysisDependencies) *AnalysisHandler {
	return &AnalysisHandler{deps: deps}
}

// HandlePostAnalysis handles POST /analysis requests.
func (h *AnalysisHandler) HandlePostAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analysis"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.AnalyzeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.Analyze(r.Context(), req)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
