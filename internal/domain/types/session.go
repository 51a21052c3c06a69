package types

import (
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/events"
	"github.com/okian/armpredict/internal/domain/review"
)

// AnalyzeRequest is a predict request plus an optional event name used to
// look up expert picks.
type AnalyzeRequest struct {
	model.PredictRequest
	EventName string `json:"event_name,omitempty"`
}

// SessionView is what the browser polls: the workflow state and an
// aggregate re-derived from the latest validated review.
type SessionView struct {
	SessionID        string                          `json:"session_id"`
	CreatedAt        time.Time                       `json:"created_at"`
	State            review.State                    `json:"state"`
	Label            string                          `json:"label"`
	Attempt          uint64                          `json:"attempt"`
	Stale            bool                            `json:"stale"`
	Error            string                          `json:"error,omitempty"`
	History          []review.Transition             `json:"history"`
	Request          model.PredictRequest            `json:"request"`
	Analysis         Analysis                        `json:"analysis"`
	Event            *events.Info                    `json:"event,omitempty"`
	MatchPredictions *model.MatchPredictionsResponse `json:"match_predictions,omitempty"`
}

// ReviewStarted reports the outcome of a review start.
type ReviewStarted struct {
	SessionID string       `json:"session_id"`
	State     review.State `json:"state"`
	Label     string       `json:"label"`
	Attempt   uint64       `json:"attempt"`
}
