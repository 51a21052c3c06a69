package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/types"
)

// SessionDependencies defines the interface for session and review operations.
type SessionDependencies interface {
	Session(ctx context.Context, id string, since uint64) (*types.SessionView, error)
	StartReview(ctx context.Context, id string, req *model.ReviewRequest) (*types.ReviewStarted, error)
	DeleteSession(ctx context.Context, id string) error
}

// SessionsHandler handles /sessions/{id} and /sessions/{id}/review.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleSession routes requests under /sessions/.
func (h *SessionsHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind("api.session", ErrBadRequest))
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case rest == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case rest == "review" && r.Method == http.MethodPost:
		h.handleStartReview(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// handleGet serves GET /sessions/{id}?since=N.
func (h *SessionsHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_session"
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		since = n
	}
	view, err := h.deps.Session(r.Context(), id, since)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleStartReview serves POST /sessions/{id}/review. An empty body reviews
// the session's own matchup.
func (h *SessionsHandler) handleStartReview(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.start_review"
	var body *model.ReviewRequest
	var req model.ReviewRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req, true); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if req != (model.ReviewRequest{}) {
			body = &req
		}
	}
	started, err := h.deps.StartReview(r.Context(), id, body)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, started)
}

// handleDelete serves DELETE /sessions/{id}.
func (h *SessionsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.delete_session"
	if err := h.deps.DeleteSession(r.Context(), id); err != nil {
		writeDomainError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
