package probe_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/review"
	"github.com/okian/armpredict/internal/domain/types"
	"github.com/okian/armpredict/internal/probe"
	"github.com/smartystreets/goconvey/convey"
)

// fakeServer plays a scripted review: each poll advances the workflow by
// one transition until the final state.
type fakeServer struct {
	mu       sync.Mutex
	script   []review.State
	step     int
	polls    []string
	deleted  bool
	reviewed bool
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("armpredict_bff_up 1\n"))
	})
	mux.HandleFunc("/analysis", func(w http.ResponseWriter, r *http.Request) {
		var req types.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Athlete1 == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "bad_request", "message": "athlete1 is required", "field": "athlete1"})
			return
		}
		view := types.SessionView{SessionID: "s-1", State: review.Idle}
		view.Analysis.OverallFavorite = req.Athlete1
		view.Analysis.ConfidenceLevel = "medium"
		_ = json.NewEncoder(w).Encode(view)
	})
	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case r.Method == http.MethodDelete:
			f.deleted = true
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/review"):
			f.reviewed = true
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(types.ReviewStarted{SessionID: "s-1", State: review.Submitting, Label: "Submitting request", Attempt: 1})
		case r.Method == http.MethodGet:
			f.polls = append(f.polls, r.URL.Query().Get("since"))
			from := review.Idle
			if f.step > 0 {
				from = f.script[f.step-1]
			}
			to := f.script[f.step]
			view := types.SessionView{
				SessionID: "s-1",
				State:     to,
				Attempt:   1,
				History: []review.Transition{{
					Seq: uint64(f.step + 1), Attempt: 1, From: from, To: to, At: time.Now(),
				}},
			}
			if to == review.Done {
				view.Analysis.Adjusted.Reviewed = true
			}
			if to == review.Failed {
				view.Error = "upstream returned 500"
			}
			if f.step < len(f.script)-1 {
				f.step++
			}
			_ = json.NewEncoder(w).Encode(view)
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func newRunner(url string, out *bytes.Buffer) *probe.Runner {
	return probe.NewRunner(probe.Config{
		BaseURL:      url,
		Timeout:      time.Second,
		PollInterval: 5 * time.Millisecond,
		ReviewWait:   2 * time.Second,
		Out:          out,
	})
}

func TestRunnerRun(t *testing.T) {
	convey.Convey("Given a server whose review succeeds", t, func() {
		fake := &fakeServer{script: []review.State{review.Submitting, review.Waiting, review.Validating, review.Done}}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		var out bytes.Buffer
		r := newRunner(srv.URL, &out)
		req := types.AnalyzeRequest{PredictRequest: model.PredictRequest{Athlete1: "A", Athlete2: "B"}}

		convey.Convey("When the probe runs with a review", func() {
			rep, err := r.Run(context.Background(), req, true)

			convey.Convey("Then every transition is seen with an advancing cursor", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rep.State, convey.ShouldEqual, review.Done)
				convey.So(rep.Reviewed, convey.ShouldBeTrue)
				convey.So(rep.Transitions, convey.ShouldEqual, 4)
				convey.So(rep.Favorite, convey.ShouldEqual, "A")

				fake.mu.Lock()
				defer fake.mu.Unlock()
				convey.So(fake.polls, convey.ShouldResemble, []string{"", "1", "2", "3"})
				convey.So(fake.deleted, convey.ShouldBeTrue)
				convey.So(out.String(), convey.ShouldContainSubstring, "session s-1")
			})
		})

		convey.Convey("When the probe runs without a review", func() {
			rep, err := r.Run(context.Background(), req, false)

			convey.Convey("Then no review is started", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rep.State, convey.ShouldEqual, review.Idle)
				fake.mu.Lock()
				defer fake.mu.Unlock()
				convey.So(fake.reviewed, convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given a server whose review fails", t, func() {
		fake := &fakeServer{script: []review.State{review.Submitting, review.Failed}}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		var out bytes.Buffer
		rep, err := newRunner(srv.URL, &out).Run(context.Background(),
			types.AnalyzeRequest{PredictRequest: model.PredictRequest{Athlete1: "A", Athlete2: "B"}}, true)

		convey.Convey("Then the failure is reported", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "upstream returned 500")
			convey.So(rep.State, convey.ShouldEqual, review.Failed)
		})
	})

	convey.Convey("Given a server whose review is abandoned", t, func() {
		fake := &fakeServer{script: []review.State{review.Submitting, review.Idle}}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		var out bytes.Buffer
		_, _, err := newRunner(srv.URL, &out).Review(context.Background(), "s-1", nil)

		convey.Convey("Then ErrReviewAbandoned is returned", func() {
			convey.So(errors.Is(err, probe.ErrReviewAbandoned), convey.ShouldBeTrue)
		})
	})
}

func TestClientErrors(t *testing.T) {
	convey.Convey("Given a running fake server", t, func() {
		fake := &fakeServer{script: []review.State{review.Done}}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		c := probe.NewClient(srv.URL+"/", time.Second)

		convey.Convey("When an invalid analysis is posted", func() {
			_, err := c.Analyze(context.Background(), types.AnalyzeRequest{})

			convey.Convey("Then the error envelope is decoded", func() {
				var apiErr *probe.APIError
				convey.So(errors.As(err, &apiErr), convey.ShouldBeTrue)
				convey.So(apiErr.Status, convey.ShouldEqual, http.StatusBadRequest)
				convey.So(apiErr.Code, convey.ShouldEqual, "bad_request")
				convey.So(apiErr.Field, convey.ShouldEqual, "athlete1")
			})
		})

		convey.Convey("When the health check runs", func() {
			convey.So(c.Health(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a server that is down", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		convey.Convey("Then the health check reports ErrUnhealthy", func() {
			err := probe.NewClient(srv.URL, time.Second).Health(context.Background())
			convey.So(errors.Is(err, probe.ErrUnhealthy), convey.ShouldBeTrue)
		})
	})
}

func TestNewRunnerWithoutLogger(t *testing.T) {
	convey.Convey("Given a zero config and no process logger", t, func() {
		convey.Convey("Then a runner is built with defaults", func() {
			var r *probe.Runner
			convey.So(func() { r = probe.NewRunner(probe.Config{}) }, convey.ShouldNotPanic)
			convey.So(r.Client(), convey.ShouldNotBeNil)
		})
	})
}
