// Package worker runs dispatched AI review jobs against the analysis service.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/armpredict/internal/adapters/mq/queue"
	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/pkg/logger"
	"github.com/okian/armpredict/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	defaultJobTimeout   = 90 * time.Second
	poolShutdownTimeout = 30 * time.Second
	maxCallGrace        = 2 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// Reviewer performs the AI review network call.
type Reviewer interface {
	Review(ctx context.Context, req model.ReviewRequest) ([]byte, error)
}

// Attempt is the workflow side of one review job.
type Attempt interface {
	// Sent reports the request leaving; false means the attempt is stale.
	Sent(attempt uint64) bool
	// Complete delivers the outcome; false means it was discarded as stale.
	Complete(attempt uint64, raw []byte, err error) bool
}

// Resolver finds the workflow a job belongs to.
type Resolver interface {
	Resolve(sessionID string) (Attempt, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(sessionID string) (Attempt, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(sessionID string) (Attempt, bool) { return f(sessionID) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes review jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	reviewer Reviewer
	resolver Resolver
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, reviewer Reviewer, resolver Resolver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		reviewer: reviewer,
		resolver: resolver,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, j); err != nil {
				w.logger.Warn(ctx, "review job failed", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob performs one review call and hands the outcome to its workflow.
func (w *InMemoryWorker) processJob(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	fields := []logger.Field{logger.String("session_id", j.SessionID), logger.Uint64("attempt", j.Attempt)}

	wf, ok := w.resolver.Resolve(j.SessionID)
	if !ok {
		metrics.RecordReviewStale()
		w.logger.Debug(ctx, "session gone before review ran", fields...)
		return nil
	}
	if !wf.Sent(j.Attempt) {
		metrics.RecordReviewStale()
		w.logger.Debug(ctx, "review attempt superseded before send", fields...)
		return nil
	}

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	// The call outlives the workflow timer slightly so the timer decides.
	callCtx, cancel := context.WithTimeout(ctx, timeout+callGrace(timeout))
	raw, err := w.reviewer.Review(callCtx, j.Request)
	cancel()

	if !wf.Complete(j.Attempt, raw, err) {
		metrics.RecordReviewStale()
		w.logger.Debug(ctx, "review response discarded", fields...)
	}
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "review_call")
		return fmt.Errorf("review %s/%d: %w", j.SessionID, j.Attempt, err)
	}
	w.logger.Debug(ctx, "review response delivered", append(fields, logger.Duration("elapsed", time.Since(start)))...)
	return nil
}

func callGrace(timeout time.Duration) time.Duration {
	g := timeout / 10
	if g > maxCallGrace {
		g = maxCallGrace
	}
	return g
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, q Queue, reviewer Reviewer, resolver Resolver, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := range workerCount {
		p.workers[i] = NewInMemoryWorker(q, reviewer, resolver,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, then waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
