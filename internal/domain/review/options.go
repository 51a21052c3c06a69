package review

import (
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/pkg/logger"
)

// Option configures a Workflow.
type Option func(*Workflow)

// WithTimeout bounds how long an attempt may wait for its response.
func WithTimeout(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithSessionID tags dispatched jobs with the owning session.
func WithSessionID(id string) Option {
	return func(w *Workflow) { w.sessionID = id }
}

// WithDefaults sets the values used for blank optional request fields.
func WithDefaults(d model.RequestDefaults) Option {
	return func(w *Workflow) { w.defaults = d }
}

// WithHistoryLimit caps the number of transitions kept.
func WithHistoryLimit(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.historyLimit = n
		}
	}
}

// WithLogger sets the workflow logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// WithObserver registers fn before the workflow is used.
func WithObserver(fn Observer) Option {
	return func(w *Workflow) {
		if fn != nil {
			w.observers = append(w.observers, fn)
		}
	}
}
