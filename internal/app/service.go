// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/armpredict/internal/adapters/mq/queue"
	"github.com/okian/armpredict/internal/adapters/mq/worker"
	"github.com/okian/armpredict/internal/adapters/repository"
	"github.com/okian/armpredict/internal/adapters/upstream"
	"github.com/okian/armpredict/internal/domain/analysis"
	"github.com/okian/armpredict/internal/domain/events"
	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/reconcile"
	"github.com/okian/armpredict/internal/domain/review"
	"github.com/okian/armpredict/internal/domain/types"
	"github.com/okian/armpredict/pkg/logger"
	"github.com/okian/armpredict/pkg/metrics"
)

// Upstream is the remote analysis service.
type Upstream interface {
	Predict(ctx context.Context, req model.PredictRequest) (*model.PredictResponse, error)
	Review(ctx context.Context, req model.ReviewRequest) ([]byte, error)
	MatchPredictions(ctx context.Context, req model.MatchPredictionsRequest) (*model.MatchPredictionsResponse, error)
	Health(ctx context.Context) (map[string]any, error)
}

// Service implements the API dependencies for the matchup analysis BFF.
type Service struct {
	mu sync.RWMutex

	// Core components
	upstream Upstream
	sessions *repository.MemoryStore
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	// Configuration
	upstreamURL     string
	upstreamTimeout time.Duration
	reviewTimeout   time.Duration
	workerCount     int
	queueSize       int
	maxSessions     int
	sessionTTL      time.Duration
	topFactors      int
	defaults        model.RequestDefaults

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		upstreamURL:     "http://localhost:8000",
		upstreamTimeout: 30 * time.Second,
		reviewTimeout:   90 * time.Second,
		workerCount:     runtime.NumCPU(),
		queueSize:       256,
		maxSessions:     1024,
		sessionTTL:      30 * time.Minute,
		topFactors:      3,
		defaults:        model.DefaultRequestDefaults,
		logger:          nil, // replaced when the service starts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting analysis service...")

	if s.upstream == nil {
		client, err := upstream.NewClient(upstream.Config{
			BaseURL: s.upstreamURL,
			Timeout: s.upstreamTimeout,
			Logger:  s.logger.Named("upstream"),
		})
		if err != nil {
			return fmt.Errorf("start service: %w", err)
		}
		s.upstream = client
	}

	s.sessions = repository.NewMemoryStore(
		repository.WithMaxSessions(s.maxSessions),
		repository.WithTTL(s.sessionTTL),
		repository.WithLogger(s.logger.Named("session-store")),
	)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	// Workers outlive the request that started the service.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = worker.NewPool(s.workerCount, s.queue, s.upstream, worker.ResolverFunc(s.resolve),
		worker.WithPoolLogger(s.logger.Named("worker")))
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "analysis service started",
		logger.String("upstream", s.upstreamURL),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxSessions", s.maxSessions),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping analysis service...")

	// Abandon sessions first so in-flight responses are dropped as stale.
	if err := s.sessions.Close(); err != nil {
		s.logger.Error(ctx, "error closing session store", logger.Error(err))
	}
	s.cancel()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not stop", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "analysis service stopped")
}

// Analyze fetches the base prediction, opens a session with an idle review
// workflow and returns the assembled view. Expert picks are fetched
// concurrently when an event name is given; their failure is not fatal.
func (s *Service) Analyze(ctx context.Context, req types.AnalyzeRequest) (*types.SessionView, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	req.PredictRequest = req.PredictRequest.Normalize(s.defaults)
	if err := req.PredictRequest.Validate(); err != nil {
		return nil, err
	}

	var (
		predicted *model.PredictResponse
		experts   *model.MatchPredictionsResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := s.upstream.Predict(gctx, req.PredictRequest)
		if err != nil {
			return err
		}
		predicted = resp
		return nil
	})
	if req.EventName != "" {
		g.Go(func() error {
			mp := model.MatchPredictionsRequest{
				Athlete1:  req.Athlete1,
				Athlete2:  req.Athlete2,
				EventName: req.EventName,
			}.Normalize()
			resp, err := s.upstream.MatchPredictions(gctx, mp)
			if err != nil {
				s.logger.Warn(ctx, "expert predictions unavailable",
					logger.String("event", req.EventName), logger.Error(err))
				return nil
			}
			experts = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecordErrorByComponent("service", "predict")
		return nil, err
	}

	id := uuid.NewString()
	wf := review.New(s.queue,
		review.WithSessionID(id),
		review.WithTimeout(s.reviewTimeout),
		review.WithDefaults(s.defaults),
		review.WithLogger(s.logger.Named("review")),
	)
	sess := &repository.Session{
		ID:               id,
		EventName:        req.EventName,
		Request:          req.PredictRequest,
		Predict:          *predicted,
		MatchPredictions: experts,
		Workflow:         wf,
	}
	wf.Observe(s.observer(sess))
	if _, err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "matchup analysed",
		logger.String("session_id", id),
		logger.String("athlete1", req.Athlete1),
		logger.String("athlete2", req.Athlete2),
		logger.Bool("experts", experts != nil),
	)
	view := s.view(sess, 0)
	return &view, nil
}

// Session returns the current view of a session. History is limited to
// transitions with a sequence number above since.
func (s *Service) Session(ctx context.Context, id string, since uint64) (*types.SessionView, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.view(sess, since)
	return &view, nil
}

// StartReview begins an AI review for a session. A nil req derives the
// review request from the session's predict request.
func (s *Service) StartReview(ctx context.Context, id string, req *model.ReviewRequest) (*types.ReviewStarted, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r := sess.Request.ReviewRequest()
	if req != nil {
		r = *req
	}

	state, err := sess.Workflow.Start(ctx, r)
	out := &types.ReviewStarted{
		SessionID: id,
		State:     state,
		Label:     state.Label(),
		Attempt:   sess.Workflow.Attempt(),
	}
	if err == nil || errors.Is(err, review.ErrDispatch) {
		metrics.RecordReviewAttempt()
	}
	return out, err
}

// DeleteSession abandons a session's review and removes it.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	return s.sessions.Delete(ctx, id)
}

// MatchPredictions proxies the expert predictions lookup.
func (s *Service) MatchPredictions(ctx context.Context, req model.MatchPredictionsRequest) (*model.MatchPredictionsResponse, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.upstream.MatchPredictions(ctx, req)
}

// UpstreamHealth asks the analysis service for its status.
func (s *Service) UpstreamHealth(ctx context.Context) (map[string]any, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.upstream.Health(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueCapacity": s.queueSize,
		"maxSessions":   s.maxSessions,
		"sessionTTL":    s.sessionTTL.String(),
		"reviewTimeout": s.reviewTimeout.String(),
		"topFactors":    s.topFactors,
	}

	if s.started {
		queueLen := s.queue.Len()
		live := s.sessions.Count(context.Background())
		stats["queueLength"] = queueLen
		stats["liveSessions"] = live
		stats["uptime"] = time.Since(s.startedAt).Round(time.Second).String()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateSessionsLive(live)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// resolve finds the workflow of a queued review job.
func (s *Service) resolve(id string) (worker.Attempt, bool) {
	sess, err := s.sessions.Get(context.Background(), id)
	if err != nil {
		return nil, false
	}
	return sess.Workflow, true
}

func (s *Service) view(sess *repository.Session, since uint64) types.SessionView {
	snap := sess.Workflow.SnapshotSince(since)
	v := types.SessionView{
		SessionID:        sess.ID,
		CreatedAt:        sess.CreatedAt,
		State:            snap.State,
		Label:            snap.Label,
		Attempt:          snap.Attempt,
		Stale:            snap.Stale,
		Error:            snap.Error,
		History:          snap.History,
		Request:          sess.Request,
		Analysis:         analysis.Assemble(analysis.FromResponse(sess.Predict, snap.Review, s.topFactors)),
		MatchPredictions: sess.MatchPredictions,
	}
	title := sess.EventName
	if title == "" {
		title = sess.Request.EventTitle
	}
	if title != "" && title != s.defaults.EventTitle {
		info := events.Describe(title)
		v.Event = &info
	}
	return v
}

// observer turns workflow transitions into metrics and logs.
func (s *Service) observer(sess *repository.Session) review.Observer {
	var started time.Time
	log := s.logger.Named("review")
	return func(t review.Transition) {
		metrics.RecordReviewTransition(string(t.To))
		if t.To == review.Submitting {
			started = t.At
		}
		if t.Event == review.EventTimeout {
			metrics.RecordReviewTimeout()
		}
		if t.To.Terminal() {
			metrics.RecordReviewDuration(string(t.To), float64(t.At.Sub(started).Milliseconds()))
		}
		if t.To == review.Done {
			go s.checkDegraded(sess, t.Attempt)
		}
		log.Info(context.Background(), "review transition",
			logger.String("session_id", sess.ID),
			logger.Uint64("attempt", t.Attempt),
			logger.String("from", string(t.From)),
			logger.String("to", string(t.To)),
			logger.String("event", string(t.Event)),
			logger.String("message", t.Message),
		)
	}
}

// checkDegraded counts reviews whose probabilities did not name both athletes.
func (s *Service) checkDegraded(sess *repository.Session, attempt uint64) {
	snap := sess.Workflow.Snapshot()
	if snap.Attempt != attempt || snap.Review == nil {
		return
	}
	rec := reconcile.Reconcile(sess.Predict.Prediction, snap.Review.AdjustedProbabilities)
	if rec.Degraded {
		metrics.RecordDegradedResult()
		s.logger.Warn(context.Background(), "review probabilities degraded to base",
			logger.String("session_id", sess.ID), logger.String("reason", rec.Reason))
	}
}
