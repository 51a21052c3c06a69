package review

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const validBody = `{"ai_review":{"schema_version":"1.3","summary":["fresh injury report"],
"adjusted_probabilities":{"before":{"A":0.62,"B":0.38},"deltas":{"A":0.04,"B":-0.04},
"after":{"A":0.66,"B":0.34},"cap_applied":false,"confidence_tier":"medium"},
"findings":[{"id":"f1","title":"Injury","impact":{"athlete_name":"B","direction":"decrease","magnitude_pct":4}}],
"reproducibility":{"prompt_version":"ai_review:v1.3"}}}`

type recorder struct {
	mu   sync.Mutex
	jobs []model.ReviewJob
	err  error
}

func (r *recorder) Enqueue(_ context.Context, job model.ReviewJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func request() model.ReviewRequest {
	return model.ReviewRequest{Athlete1Name: "A", Athlete2Name: "B"}
}

func states(ts []Transition) []State {
	out := make([]State, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.To)
	}
	return out
}

func TestTransitionTable(t *testing.T) {
	Convey("Given the transition table", t, func() {
		Convey("Then listed edges are allowed", func() {
			to, ok := Next(Idle, EventStart)
			So(ok, ShouldBeTrue)
			So(to, ShouldEqual, Submitting)
			to, _ = Next(Waiting, EventTimeout)
			So(to, ShouldEqual, Failed)
			to, _ = Next(Failed, EventStart)
			So(to, ShouldEqual, Submitting)
			to, _ = Next(Done, EventStart)
			So(to, ShouldEqual, Submitting)
		})
		Convey("Then other edges are refused", func() {
			_, ok := Next(Waiting, EventStart)
			So(ok, ShouldBeFalse)
			_, ok = Next(Idle, EventSchemaValid)
			So(ok, ShouldBeFalse)
			_, ok = Next(Idle, EventAbandon)
			So(ok, ShouldBeFalse)
		})
		Convey("Then abandon returns to Idle from anywhere else", func() {
			for _, s := range []State{Submitting, Waiting, Validating, Done, Failed} {
				to, ok := Next(s, EventAbandon)
				So(ok, ShouldBeTrue)
				So(to, ShouldEqual, Idle)
			}
		})
		Convey("Then labels follow the stage", func() {
			So(Idle.Label(), ShouldEqual, "Ready")
			So(Waiting.Label(), ShouldEqual, "Waiting for AI review")
			So(Validating.InFlight(), ShouldBeTrue)
			So(Done.Terminal(), ShouldBeTrue)
		})
	})
}

func TestWorkflowHappyPath(t *testing.T) {
	Convey("Given a fresh workflow", t, func() {
		rec := &recorder{}
		var seen []Transition
		w := New(rec, WithSessionID("s1"), WithObserver(func(t Transition) { seen = append(seen, t) }))

		So(w.State(), ShouldEqual, Idle)

		Convey("When a review runs to completion", func() {
			st, err := w.Start(context.Background(), request())
			So(err, ShouldBeNil)
			So(st, ShouldEqual, Submitting)
			So(rec.count(), ShouldEqual, 1)
			job := rec.jobs[0]
			So(job.SessionID, ShouldEqual, "s1")
			So(job.Request.MatchArm, ShouldEqual, "Right")

			So(w.Sent(job.Attempt), ShouldBeTrue)
			So(w.State(), ShouldEqual, Waiting)
			So(w.Complete(job.Attempt, []byte(validBody), nil), ShouldBeTrue)

			Convey("Then observers saw Submitting, Waiting, Validating, Done with consecutive sequence numbers", func() {
				So(states(seen), ShouldResemble, []State{Submitting, Waiting, Validating, Done})
				for i := 1; i < len(seen); i++ {
					So(seen[i].Seq, ShouldEqual, seen[i-1].Seq+1)
				}
			})

			Convey("Then the snapshot holds the review", func() {
				snap := w.Snapshot()
				So(snap.State, ShouldEqual, Done)
				So(snap.Stale, ShouldBeFalse)
				So(snap.Review, ShouldNotBeNil)
				So(snap.Review.AdjustedProbabilities.After["A"], ShouldEqual, 0.66)
				So(snap.Request.Athlete1Name, ShouldEqual, "A")
				So(snap.History, ShouldHaveLength, 4)
			})

			Convey("Then history can be read incrementally", func() {
				So(states(w.SnapshotSince(2).History), ShouldResemble, []State{Validating, Done})
			})
		})
	})
}

func TestWorkflowSingleFlight(t *testing.T) {
	Convey("Given a workflow waiting for a response", t, func() {
		rec := &recorder{}
		w := New(rec)
		_, err := w.Start(context.Background(), request())
		So(err, ShouldBeNil)
		So(w.Sent(rec.jobs[0].Attempt), ShouldBeTrue)

		Convey("When start is called again", func() {
			st, err := w.Start(context.Background(), request())

			Convey("Then it is refused and nothing is dispatched", func() {
				So(errors.Is(err, ErrInFlight), ShouldBeTrue)
				So(st, ShouldEqual, Waiting)
				So(rec.count(), ShouldEqual, 1)
				So(w.State(), ShouldEqual, Waiting)
			})
		})
	})

	Convey("Given many concurrent starts on an idle workflow", t, func() {
		rec := &recorder{}
		w := New(rec)
		var wg sync.WaitGroup
		var refused atomic.Int32
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := w.Start(context.Background(), request()); errors.Is(err, ErrInFlight) {
					refused.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one dispatch happens", func() {
			So(rec.count(), ShouldEqual, 1)
			So(refused.Load(), ShouldEqual, 31)
		})
	})
}

func TestWorkflowValidation(t *testing.T) {
	Convey("Given a request with a blank name", t, func() {
		rec := &recorder{}
		w := New(rec)
		st, err := w.Start(context.Background(), model.ReviewRequest{Athlete1Name: "A"})

		Convey("Then the state is unchanged and a validation error returned", func() {
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			So(st, ShouldEqual, Idle)
			So(w.Snapshot().History, ShouldBeEmpty)
			So(rec.count(), ShouldEqual, 0)
		})
	})
}

func TestWorkflowFailures(t *testing.T) {
	Convey("Given a completed review", t, func() {
		rec := &recorder{}
		w := New(rec)
		_, _ = w.Start(context.Background(), request())
		w.Sent(rec.jobs[0].Attempt)
		w.Complete(rec.jobs[0].Attempt, []byte(validBody), nil)
		So(w.State(), ShouldEqual, Done)

		Convey("When the next attempt fails with a transport error", func() {
			_, err := w.Start(context.Background(), request())
			So(err, ShouldBeNil)
			second := rec.jobs[1].Attempt
			So(second, ShouldBeGreaterThan, rec.jobs[0].Attempt)
			w.Sent(second)
			w.Complete(second, nil, &model.TransportError{Op: "review", StatusCode: 502, Body: "bad gateway"})

			Convey("Then it fails but keeps the previous review as stale", func() {
				snap := w.Snapshot()
				So(snap.State, ShouldEqual, Failed)
				So(snap.Error, ShouldContainSubstring, "502")
				So(snap.Review, ShouldNotBeNil)
				So(snap.Stale, ShouldBeTrue)
			})

			Convey("Then a retry is allowed", func() {
				st, err := w.Start(context.Background(), request())
				So(err, ShouldBeNil)
				So(st, ShouldEqual, Submitting)
				So(w.Snapshot().Error, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a response without adjusted probabilities", t, func() {
		rec := &recorder{}
		w := New(rec)
		_, _ = w.Start(context.Background(), request())
		w.Sent(1)
		w.Complete(1, []byte(`{"ai_review":{"adjusted_probabilities":null}}`), nil)

		Convey("Then it passes through Validating to Failed with no review", func() {
			snap := w.Snapshot()
			So(states(snap.History), ShouldResemble, []State{Submitting, Waiting, Validating, Failed})
			So(snap.Review, ShouldBeNil)
			So(snap.Error, ShouldContainSubstring, "adjusted_probabilities")
		})
	})

	Convey("Given a dispatcher that refuses work", t, func() {
		w := New(&recorder{err: errors.New("queue full")})
		st, err := w.Start(context.Background(), request())

		Convey("Then the attempt fails immediately", func() {
			So(errors.Is(err, ErrDispatch), ShouldBeTrue)
			So(st, ShouldEqual, Failed)
			So(w.Snapshot().Error, ShouldContainSubstring, "queue full")
		})
	})
}

func TestWorkflowStaleAndAbandon(t *testing.T) {
	Convey("Given an in-flight attempt that is abandoned", t, func() {
		rec := &recorder{}
		w := New(rec)
		_, _ = w.Start(context.Background(), request())
		first := rec.jobs[0].Attempt
		So(w.Sent(first), ShouldBeTrue)
		w.Abandon()

		Convey("Then the workflow is Idle and the late response is ignored", func() {
			So(w.State(), ShouldEqual, Idle)
			So(w.Complete(first, []byte(validBody), nil), ShouldBeFalse)
			So(w.State(), ShouldEqual, Idle)
			So(w.Snapshot().Review, ShouldBeNil)
		})

		Convey("Then a new attempt ignores responses for the old one", func() {
			_, err := w.Start(context.Background(), request())
			So(err, ShouldBeNil)
			second := rec.jobs[1].Attempt
			So(w.Sent(first), ShouldBeFalse)
			So(w.Sent(second), ShouldBeTrue)
			So(w.Complete(first, []byte(validBody), nil), ShouldBeFalse)
			So(w.State(), ShouldEqual, Waiting)
		})
	})

	Convey("Given an idle workflow", t, func() {
		var n int
		w := New(&recorder{}, WithObserver(func(Transition) { n++ }))
		w.Abandon()
		So(n, ShouldEqual, 0)
	})
}

func TestWorkflowTimeout(t *testing.T) {
	Convey("Given a short timeout", t, func() {
		rec := &recorder{}
		done := make(chan Transition, 8)
		w := New(rec, WithTimeout(20*time.Millisecond))
		w.Observe(func(t Transition) { done <- t })
		_, _ = w.Start(context.Background(), request())
		attempt := rec.jobs[0].Attempt
		w.Sent(attempt)

		Convey("When no response arrives", func() {
			var last Transition
			deadline := time.After(2 * time.Second)
		loop:
			for {
				select {
				case tr := <-done:
					last = tr
					if tr.To == Failed {
						break loop
					}
				case <-deadline:
					break loop
				}
			}

			Convey("Then the attempt fails with a timeout and a late response is discarded", func() {
				So(last.Event, ShouldEqual, EventTimeout)
				So(w.State(), ShouldEqual, Failed)
				So(w.Complete(attempt, []byte(validBody), nil), ShouldBeFalse)
				So(w.Snapshot().Error, ShouldContainSubstring, "no response within")
			})
		})
	})
}

func TestWorkflowCallDeadline(t *testing.T) {
	Convey("Given a waiting workflow with a long timer", t, func() {
		rec := &recorder{}
		var events []Event
		w := New(rec, WithTimeout(time.Minute), WithObserver(func(t Transition) { events = append(events, t.Event) }))
		_, _ = w.Start(context.Background(), request())
		attempt := rec.jobs[0].Attempt
		w.Sent(attempt)

		Convey("When the call reports its context deadline", func() {
			cause := &model.TransportError{Op: "review", Cause: context.DeadlineExceeded}
			So(w.Complete(attempt, nil, cause), ShouldBeTrue)

			Convey("Then it is recorded as a timeout", func() {
				snap := w.Snapshot()
				So(snap.State, ShouldEqual, Failed)
				So(snap.Error, ShouldEqual, "no response within 1m0s")
				So(events[len(events)-1], ShouldEqual, EventTimeout)
			})
		})

		Convey("When the call is cancelled", func() {
			So(w.Complete(attempt, nil, context.Canceled), ShouldBeTrue)

			Convey("Then it is a response error", func() {
				So(w.Snapshot().Error, ShouldContainSubstring, "context canceled")
				So(events[len(events)-1], ShouldEqual, EventResponseError)
			})
		})
	})
}

func TestHistoryLimit(t *testing.T) {
	Convey("Given a small history limit", t, func() {
		rec := &recorder{}
		w := New(rec, WithHistoryLimit(3))
		_, _ = w.Start(context.Background(), request())
		w.Sent(1)
		w.Complete(1, []byte(validBody), nil)

		Convey("Then only the latest transitions are kept", func() {
			h := w.Snapshot().History
			So(h, ShouldHaveLength, 3)
			So(h[0].Seq, ShouldEqual, 2)
			So(h[2].To, ShouldEqual, Done)
		})
	})
}
