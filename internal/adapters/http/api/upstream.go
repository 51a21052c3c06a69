package api

import (
	"context"
	"net/http"
)

// UpstreamDependencies reports on the remote analysis service.
type UpstreamDependencies interface {
	UpstreamHealth(ctx context.Context) (map[string]any, error)
}

// UpstreamHandler serves upstream status checks.
type UpstreamHandler struct {
	deps UpstreamDependencies
}

// NewUpstreamHandler creates a new upstream handler.
func NewUpstreamHandler(deps UpstreamDependencies) *UpstreamHandler {
	return &UpstreamHandler{deps: deps}
}

// HandleUpstreamHealth handles GET /upstream/health requests.
func (h *UpstreamHandler) HandleUpstreamHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	status, err := h.deps.UpstreamHealth(r.Context())
	if err != nil {
		writeDomainError(w, "api.upstream_health", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"upstream": status})
}
