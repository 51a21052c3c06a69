package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/pkg/logger"
)

const (
	defaultTimeout      = 90 * time.Second
	defaultHistoryLimit = 64
)

// Dispatcher hands a review job to whatever performs the network call.
// It must not block.
type Dispatcher interface {
	Enqueue(ctx context.Context, job model.ReviewJob) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, job model.ReviewJob) error

// Enqueue calls f.
func (f DispatcherFunc) Enqueue(ctx context.Context, job model.ReviewJob) error { return f(ctx, job) }

// Transition is one recorded state change.
type Transition struct {
	Seq     uint64    `json:"seq"`
	Attempt uint64    `json:"attempt"`
	From    State     `json:"from"`
	To      State     `json:"to"`
	Event   Event     `json:"event"`
	At      time.Time `json:"at"`
	Message string    `json:"message,omitempty"`
}

// Observer receives transitions in the order they happened. Observers must
// not call back into the workflow that notified them.
type Observer func(Transition)

// Snapshot is a copy of the workflow's observable state.
type Snapshot struct {
	State   State
	Label   string
	Attempt uint64
	Error   string
	// Review is the latest successfully validated review. After a failed or
	// restarted attempt it is the previous one and Stale is set.
	Review    *model.AiReview
	Stale     bool
	Request   *model.ReviewRequest
	StartedAt time.Time
	History   []Transition
}

// Workflow is the review state machine of one matchup. Safe for concurrent use.
type Workflow struct {
	sessionID    string
	dispatcher   Dispatcher
	timeout      time.Duration
	defaults     model.RequestDefaults
	historyLimit int
	log          logger.Logger
	now          func() time.Time

	mu        sync.Mutex
	state     State
	attempt   uint64
	seq       uint64
	history   []Transition
	timer     *time.Timer
	review    *model.AiReview
	current   bool
	errMsg    string
	request   *model.ReviewRequest
	startedAt time.Time

	// notifyMu is taken before mu is released so observers see transitions in order.
	notifyMu  sync.Mutex
	observers []Observer
}

// New creates an Idle workflow that dispatches through d.
func New(d Dispatcher, opts ...Option) *Workflow {
	w := &Workflow{
		dispatcher:   d,
		timeout:      defaultTimeout,
		defaults:     model.DefaultRequestDefaults,
		historyLimit: defaultHistoryLimit,
		log:          logger.Nop(),
		now:          time.Now,
		state:        Idle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Observe registers fn for every later transition.
func (w *Workflow) Observe(fn Observer) {
	if fn == nil {
		return
	}
	w.notifyMu.Lock()
	w.observers = append(w.observers, fn)
	w.notifyMu.Unlock()
}

// Start begins a new attempt for req.
//
// While an attempt is in flight it returns ErrInFlight and dispatches nothing.
// An invalid request returns a *model.ValidationError. Neither changes state.
// A dispatcher refusal moves the attempt to Failed and returns ErrDispatch.
func (w *Workflow) Start(ctx context.Context, req model.ReviewRequest) (State, error) {
	w.mu.Lock()
	if w.state.InFlight() {
		s := w.state
		w.mu.Unlock()
		return s, ErrInFlight
	}
	req = req.Normalize(w.defaults)
	if err := req.Validate(); err != nil {
		s := w.state
		w.mu.Unlock()
		return s, err
	}

	w.attempt++
	attempt := w.attempt
	w.errMsg = ""
	w.current = false
	w.request = &req
	w.startedAt = w.now()
	emitted := []Transition{w.move(EventStart, "")}
	job := model.ReviewJob{
		SessionID:  w.sessionID,
		Attempt:    attempt,
		Request:    req,
		Timeout:    w.timeout,
		EnqueuedAt: w.startedAt,
	}
	w.unlockAndNotify(emitted)

	if err := w.dispatcher.Enqueue(ctx, job); err != nil {
		w.log.Warn(ctx, "review dispatch refused",
			logger.String("session_id", w.sessionID), logger.Uint64("attempt", attempt), logger.Error(err))
		w.mu.Lock()
		if w.attempt == attempt && w.state == Submitting {
			emitted = []Transition{w.fail(EventDispatchFailed, "review service busy: "+err.Error())}
		} else {
			emitted = nil
		}
		s := w.state
		w.unlockAndNotify(emitted)
		return s, fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	w.log.Debug(ctx, "review dispatched",
		logger.String("session_id", w.sessionID), logger.Uint64("attempt", attempt))
	return Submitting, nil
}

// Sent records that the request for attempt left and arms the timeout.
// It returns false when attempt is no longer current; the caller should
// then skip the network call.
func (w *Workflow) Sent(attempt uint64) bool {
	w.mu.Lock()
	if attempt != w.attempt || w.state != Submitting {
		w.mu.Unlock()
		return false
	}
	emitted := []Transition{w.move(EventRequestSent, "")}
	w.timer = time.AfterFunc(w.timeout, func() { w.expire(attempt) })
	w.unlockAndNotify(emitted)
	return true
}

// Complete delivers the outcome of attempt: either the raw response body or
// the error that prevented one. A call that ran out of time counts as a
// timeout, the same as the workflow's own timer firing. Outcomes for
// superseded attempts, or for an attempt that already timed out, are
// discarded and Complete returns false.
func (w *Workflow) Complete(attempt uint64, raw []byte, callErr error) bool {
	w.mu.Lock()
	if attempt != w.attempt || w.state != Waiting {
		w.mu.Unlock()
		return false
	}
	w.stopTimer()

	var emitted []Transition
	if callErr != nil {
		if isTimeout(callErr) {
			emitted = append(emitted, w.fail(EventTimeout, w.timeoutMessage()))
			w.unlockAndNotify(emitted)
			w.log.Warn(context.Background(), "review call timed out",
				logger.String("session_id", w.sessionID), logger.Uint64("attempt", attempt), logger.Error(callErr))
			return true
		}
		emitted = append(emitted, w.fail(EventResponseError, callErr.Error()))
		w.unlockAndNotify(emitted)
		return true
	}

	emitted = append(emitted, w.move(EventResponseOK, ""))
	rv, err := ValidatePayload(raw)
	if err != nil {
		emitted = append(emitted, w.fail(EventSchemaInvalid, err.Error()))
	} else {
		w.review = rv
		w.current = true
		emitted = append(emitted, w.move(EventSchemaValid, ""))
	}
	w.unlockAndNotify(emitted)
	return true
}

// Abandon discards the current attempt and returns to Idle. Late responses
// for the abandoned attempt are ignored.
func (w *Workflow) Abandon() {
	w.mu.Lock()
	w.attempt++
	w.stopTimer()
	w.review = nil
	w.current = false
	w.errMsg = ""
	w.request = nil
	var emitted []Transition
	if w.state != Idle {
		emitted = append(emitted, w.move(EventAbandon, ""))
	}
	w.unlockAndNotify(emitted)
}

// State returns the current stage.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Attempt returns the current attempt id.
func (w *Workflow) Attempt() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempt
}

// Snapshot returns a copy of the full observable state.
func (w *Workflow) Snapshot() Snapshot {
	return w.SnapshotSince(0)
}

// SnapshotSince is Snapshot with history limited to transitions after seq.
func (w *Workflow) SnapshotSince(seq uint64) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		State:     w.state,
		Label:     w.state.Label(),
		Attempt:   w.attempt,
		Error:     w.errMsg,
		Review:    w.review,
		Stale:     w.review != nil && !w.current,
		StartedAt: w.startedAt,
		History:   make([]Transition, 0, len(w.history)),
	}
	if w.request != nil {
		r := *w.request
		s.Request = &r
	}
	for _, t := range w.history {
		if t.Seq > seq {
			s.History = append(s.History, t)
		}
	}
	return s
}

func (w *Workflow) expire(attempt uint64) {
	w.mu.Lock()
	if attempt != w.attempt || w.state != Waiting {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	emitted := []Transition{w.fail(EventTimeout, w.timeoutMessage())}
	w.unlockAndNotify(emitted)
	w.log.Warn(context.Background(), "review timed out",
		logger.String("session_id", w.sessionID), logger.Uint64("attempt", attempt), logger.Duration("timeout", w.timeout))
}

func (w *Workflow) timeoutMessage() string {
	return fmt.Sprintf("no response within %s", w.timeout)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// move applies ev and records the transition. Callers hold mu.
func (w *Workflow) move(ev Event, msg string) Transition {
	to, ok := Next(w.state, ev)
	if !ok {
		panic(fmt.Sprintf("review: illegal transition %s --%s-->", w.state, ev))
	}
	w.seq++
	t := Transition{
		Seq:     w.seq,
		Attempt: w.attempt,
		From:    w.state,
		To:      to,
		Event:   ev,
		At:      w.now(),
		Message: msg,
	}
	w.state = to
	w.history = append(w.history, t)
	if over := len(w.history) - w.historyLimit; over > 0 {
		w.history = append(w.history[:0:0], w.history[over:]...)
	}
	return t
}

func (w *Workflow) fail(ev Event, msg string) Transition {
	w.errMsg = msg
	return w.move(ev, msg)
}

func (w *Workflow) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// unlockAndNotify releases mu and delivers emitted to observers in order.
func (w *Workflow) unlockAndNotify(emitted []Transition) {
	if len(emitted) == 0 {
		w.mu.Unlock()
		return
	}
	w.notifyMu.Lock()
	w.mu.Unlock()
	defer w.notifyMu.Unlock()
	for _, t := range emitted {
		for _, fn := range w.observers {
			fn(t)
		}
	}
}
