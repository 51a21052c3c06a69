// Package repository holds matchup sessions in memory.
package repository

import (
	"context"
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/review"
)

// Session is one matchup view: the base prediction and its review workflow.
// Fields other than the workflow are immutable after creation.
type Session struct {
	ID               string
	CreatedAt        time.Time
	EventName        string
	Request          model.PredictRequest
	Predict          model.PredictResponse
	MatchPredictions *model.MatchPredictionsResponse
	Workflow         *review.Workflow
}

// Store provides access to live sessions.
type Store interface {
	// Create stores s and assigns its ID when empty. It may evict the
	// least recently used session to stay under capacity.
	Create(ctx context.Context, s *Session) (*Session, error)

	// Get returns the session and refreshes its idle timer.
	// Returns ErrNotFound if the session is unknown or expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete abandons the session's workflow and removes it.
	Delete(ctx context.Context, id string) error

	// Count returns the number of live sessions.
	Count(ctx context.Context) int
}
