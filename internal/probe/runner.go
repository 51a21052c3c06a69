package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/review"
	"github.com/okian/armpredict/internal/domain/types"
	"github.com/okian/armpredict/pkg/logger"
)

// ErrReviewAbandoned is returned when a polled review falls back to idle.
var ErrReviewAbandoned = errors.New("probe: review abandoned")

// Report summarises a probe run.
type Report struct {
	SessionID   string
	Favorite    string
	Confidence  string
	Reviewed    bool
	State       review.State
	Attempt     uint64
	Transitions int
	Adjusted    types.Reconciliation
	Duration    time.Duration
}

// Runner executes probe scenarios against one server.
type Runner struct {
	cfg    *Config
	client *Client
	log    logger.Logger
}

// NewRunner creates a runner; zero config fields take the package defaults.
func NewRunner(cfg Config) *Runner {
	c := cfg.withDefaults()
	return &Runner{
		cfg:    c,
		client: NewClient(c.BaseURL, c.Timeout),
		log:    c.Logger.Named("probe"),
	}
}

// Client exposes the underlying API client.
func (r *Runner) Client() *Client { return r.client }

// Run analyses the matchup and, when withReview is set, starts the AI review
// and waits for it to settle. The session is deleted afterwards unless
// Keep is set.
func (r *Runner) Run(ctx context.Context, req types.AnalyzeRequest, withReview bool) (*Report, error) {
	start := time.Now()
	r.log.Info(ctx, "starting probe",
		logger.String("baseURL", r.cfg.BaseURL),
		logger.String("athlete1", req.Athlete1),
		logger.String("athlete2", req.Athlete2),
		logger.Bool("review", withReview))

	if err := r.client.Health(ctx); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	view, err := r.client.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	r.printf("session %s: %s %s vs %s %s (favorite %s, confidence %s)\n",
		view.SessionID,
		view.Analysis.WinProbabilities.Athlete1.Name, view.Analysis.WinProbabilities.Athlete1.Percent,
		view.Analysis.WinProbabilities.Athlete2.Name, view.Analysis.WinProbabilities.Athlete2.Percent,
		view.Analysis.OverallFavorite, view.Analysis.ConfidenceLevel)

	if !r.cfg.Keep {
		defer func() {
			if err := r.client.DeleteSession(context.WithoutCancel(ctx), view.SessionID); err != nil {
				r.log.Warn(ctx, "failed to delete session", logger.String("session", view.SessionID), logger.Error(err))
			}
		}()
	}

	report := &Report{
		SessionID:  view.SessionID,
		Favorite:   view.Analysis.OverallFavorite,
		Confidence: view.Analysis.ConfidenceLevel,
		State:      view.State,
		Adjusted:   view.Analysis.Adjusted,
	}

	if withReview {
		final, seen, err := r.Review(ctx, view.SessionID, nil)
		report.Transitions = seen
		if final != nil {
			report.State = final.State
			report.Attempt = final.Attempt
			report.Adjusted = final.Analysis.Adjusted
			report.Reviewed = final.Analysis.Adjusted.Reviewed
			view = final
		}
		if err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(start)
	r.printReport(report)
	if r.cfg.Verbose {
		r.dump(view)
	}
	return report, nil
}

// Review starts a review on an existing session and polls it until it
// reaches a terminal state. It returns the last view and the number of
// transitions observed.
func (r *Runner) Review(ctx context.Context, id string, req *model.ReviewRequest) (*types.SessionView, int, error) {
	started, err := r.client.StartReview(ctx, id, req)
	if err != nil {
		return nil, 0, fmt.Errorf("start review: %w", err)
	}
	r.printf("review attempt %d: %s\n", started.Attempt, started.Label)
	return r.Watch(ctx, id)
}

// Watch polls a session with an advancing history cursor until its review
// settles, ReviewWait elapses or ctx ends.
func (r *Runner) Watch(ctx context.Context, id string) (*types.SessionView, int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReviewWait)
	defer cancel()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	var (
		since uint64
		seen  int
		last  *types.SessionView
	)
	for {
		view, err := r.client.Session(ctx, id, since)
		if err != nil {
			return last, seen, fmt.Errorf("poll session: %w", err)
		}
		last = view
		for _, t := range view.History {
			seen++
			if t.Seq > since {
				since = t.Seq
			}
			r.printf("  #%d attempt %d: %s -> %s (%s)%s\n", t.Seq, t.Attempt, t.From, t.To, t.Event, suffix(t.Message))
		}

		switch {
		case view.State.Terminal():
			if view.State == review.Failed {
				return view, seen, fmt.Errorf("review failed: %s", view.Error)
			}
			return view, seen, nil
		case view.State == review.Idle && view.Attempt > 0:
			return view, seen, ErrReviewAbandoned
		}

		select {
		case <-ctx.Done():
			return last, seen, fmt.Errorf("waiting for review: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Runner) printReport(rep *Report) {
	r.printf("result: state=%s attempt=%d transitions=%d reviewed=%t duration=%s\n",
		rep.State, rep.Attempt, rep.Transitions, rep.Reviewed, rep.Duration.Round(time.Millisecond))
	for _, v := range rep.Adjusted.Views() {
		if v.Name == "" {
			continue
		}
		r.printf("  %s: %s -> %s (%s)\n", v.Name, v.BeforePercent, v.AfterPercent, v.DeltaPercent)
	}
	if rep.Adjusted.Degraded {
		r.printf("  degraded: %s\n", rep.Adjusted.Reason)
	}
}

func (r *Runner) dump(v *types.SessionView) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		r.log.Warn(context.Background(), "failed to encode session", logger.Error(err))
		return
	}
	r.printf("%s\n", data)
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.cfg.Out, format, args...)
}

func suffix(msg string) string {
	if msg == "" {
		return ""
	}
	return ": " + msg
}
