package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/armpredict/internal/adapters/mq/queue"
	worker "github.com/okian/armpredict/internal/adapters/mq/worker"
	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/review"
	"github.com/smartystreets/goconvey/convey"
)

const reviewBody = `{"ai_review":{"adjusted_probabilities":{"before":{"A":0.6,"B":0.4},"after":{"A":0.55,"B":0.45}}}}`

type mockReviewer struct {
	mu    sync.Mutex
	calls int
	body  []byte
	err   error
	delay time.Duration
}

func (m *mockReviewer) Review(ctx context.Context, _ model.ReviewRequest) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	body, err, delay := m.body, m.err, m.delay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return body, err
}

func (m *mockReviewer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type registry struct {
	mu        sync.Mutex
	workflows map[string]*review.Workflow
}

func (r *registry) add(id string, w *review.Workflow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workflows == nil {
		r.workflows = map[string]*review.Workflow{}
	}
	r.workflows[id] = w
}

func (r *registry) Resolve(id string) (worker.Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return nil, false
	}
	return w, true
}

func waitFor(st func() review.State, want review.State) review.State {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := st(); s == want {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	return st()
}

func startReview(q *queue.InMemoryQueue, reg *registry, id string) *review.Workflow {
	w := review.New(q, review.WithSessionID(id))
	reg.add(id, w)
	_, err := w.Start(context.Background(), model.ReviewRequest{Athlete1Name: "A", Athlete2Name: "B"})
	convey.So(err, convey.ShouldBeNil)
	return w
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker with a queue, reviewer and workflow registry", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		rv := &mockReviewer{body: []byte(reviewBody)}
		reg := &registry{}
		w := worker.NewInMemoryWorker(q, rv, reg, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a review job is dispatched", func() {
			wf := startReview(q, reg, "s1")

			convey.Convey("Then the workflow reaches Done with the review", func() {
				convey.So(waitFor(wf.State, review.Done), convey.ShouldEqual, review.Done)
				convey.So(wf.Snapshot().Review, convey.ShouldNotBeNil)
				convey.So(rv.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the reviewer fails", func() {
			rv.mu.Lock()
			rv.body, rv.err = nil, &model.TransportError{Op: "review", StatusCode: 500, Body: "boom"}
			rv.mu.Unlock()
			wf := startReview(q, reg, "s2")

			convey.Convey("Then the workflow fails with the error", func() {
				convey.So(waitFor(wf.State, review.Failed), convey.ShouldEqual, review.Failed)
				convey.So(wf.Snapshot().Error, convey.ShouldContainSubstring, "500")
			})
		})

		convey.Convey("When the workflow was abandoned before the job ran", func() {
			wf := review.New(queue.NewInMemoryQueue(), review.WithSessionID("s3"))
			reg.add("s3", wf)
			job := model.ReviewJob{SessionID: "s3", Attempt: 7, Timeout: time.Second}
			convey.So(q.Enqueue(context.Background(), job), convey.ShouldBeNil)

			convey.Convey("Then the reviewer is never called", func() {
				time.Sleep(50 * time.Millisecond)
				convey.So(rv.count(), convey.ShouldEqual, 0)
				convey.So(wf.State(), convey.ShouldEqual, review.Idle)
			})
		})

		convey.Convey("When the session is gone", func() {
			convey.So(q.Enqueue(context.Background(), model.ReviewJob{SessionID: "missing", Attempt: 1}), convey.ShouldBeNil)

			convey.Convey("Then the job is skipped", func() {
				time.Sleep(50 * time.Millisecond)
				convey.So(rv.count(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestWorkerAbandonDuringCall(t *testing.T) {
	convey.Convey("Given a slow reviewer", t, func() {
		q := queue.NewInMemoryQueue()
		rv := &mockReviewer{body: []byte(reviewBody), delay: 100 * time.Millisecond}
		reg := &registry{}
		w := worker.NewInMemoryWorker(q, rv, reg)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		wf := startReview(q, reg, "slow")
		convey.So(waitFor(wf.State, review.Waiting), convey.ShouldEqual, review.Waiting)

		convey.Convey("When the workflow is abandoned mid-call", func() {
			wf.Abandon()
			time.Sleep(200 * time.Millisecond)

			convey.Convey("Then the late response is discarded", func() {
				convey.So(wf.State(), convey.ShouldEqual, review.Idle)
				convey.So(wf.Snapshot().Review, convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerCallOutlivesTimer(t *testing.T) {
	convey.Convey("Given a reviewer slower than the review timeout", t, func() {
		q := queue.NewInMemoryQueue()
		rv := &mockReviewer{body: []byte(reviewBody), delay: time.Second}
		reg := &registry{}
		w := worker.NewInMemoryWorker(q, rv, reg)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		wf := review.New(q, review.WithSessionID("late"), review.WithTimeout(40*time.Millisecond))
		reg.add("late", wf)
		_, err := wf.Start(context.Background(), model.ReviewRequest{Athlete1Name: "A", Athlete2Name: "B"})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the attempt fails as a timeout", func() {
			convey.So(waitFor(wf.State, review.Failed), convey.ShouldEqual, review.Failed)
			snap := wf.Snapshot()
			convey.So(snap.Error, convey.ShouldContainSubstring, "no response within")
			last := snap.History[len(snap.History)-1]
			convey.So(last.Event, convey.ShouldEqual, review.EventTimeout)
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		w := worker.NewInMemoryWorker(queue.NewInMemoryQueue(), &mockReviewer{}, &registry{})
		go w.Run(context.Background())

		convey.Convey("Then shutdown returns promptly", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		rv := &mockReviewer{body: []byte(reviewBody)}
		reg := &registry{}
		p := worker.NewPool(3, q, rv, reg)
		convey.So(p.Size(), convey.ShouldEqual, 3)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		convey.Convey("When several sessions request reviews", func() {
			ids := []string{"a", "b", "c", "d", "e"}
			flows := make([]*review.Workflow, 0, len(ids))
			for _, id := range ids {
				flows = append(flows, startReview(q, reg, id))
			}

			convey.Convey("Then every workflow completes and shutdown is clean", func() {
				for _, wf := range flows {
					convey.So(waitFor(wf.State, review.Done), convey.ShouldEqual, review.Done)
				}
				convey.So(rv.count(), convey.ShouldEqual, len(ids))
				convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a zero worker count is given", func() {
			convey.So(worker.NewPool(0, q, rv, reg).Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}

func TestResolverFunc(t *testing.T) {
	convey.Convey("Given a resolver func", t, func() {
		called := ""
		r := worker.ResolverFunc(func(id string) (worker.Attempt, bool) {
			called = id
			return nil, false
		})
		_, ok := r.Resolve("x")
		convey.So(ok, convey.ShouldBeFalse)
		convey.So(called, convey.ShouldEqual, "x")
	})
}
