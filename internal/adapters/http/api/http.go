// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/armpredict/internal/adapters/mq/queue"
	"github.com/okian/armpredict/internal/adapters/repository"
	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/review"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AnalysisDependencies
	SessionDependencies
	PredictionsDependencies
	UpstreamDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	analysisHandler    *AnalysisHandler
	sessionsHandler    *SessionsHandler
	predictionsHandler *PredictionsHandler
	upstreamHandler    *UpstreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		analysisHandler:    NewAnalysisHandler(deps),
		sessionsHandler:    NewSessionsHandler(deps),
		predictionsHandler: NewPredictionsHandler(deps),
		upstreamHandler:    NewUpstreamHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/analysis", MetricsMiddleware(s.analysisHandler.HandlePostAnalysis, "analysis"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleSession, "sessions"))
	mux.HandleFunc("/match-predictions", MetricsMiddleware(s.predictionsHandler.HandlePostMatchPredictions, "match_predictions"))
	mux.HandleFunc("/upstream/health", MetricsMiddleware(s.upstreamHandler.HandleUpstreamHealth, "upstream_health"))
}

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a service error onto a status code and error code.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	var te *model.TransportError
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, review.ErrInFlight):
		writeError(w, http.StatusConflict, "review_in_flight", WrapKind(op, ErrConflict, err))
	case errors.Is(err, review.ErrDispatch), errors.Is(err, queue.ErrFull), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "review_busy", WrapKind(op, ErrUnavailable, err))
	case errors.As(err, &te):
		if te.StatusCode == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "upstream_not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusBadGateway, "upstream_error", WrapKind(op, ErrUpstream, err))
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout", WrapKind(op, ErrUpstream, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
