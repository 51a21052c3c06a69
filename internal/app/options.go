package service

import (
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithUpstreamURL sets the base URL of the analysis service.
func WithUpstreamURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.upstreamURL = url
		}
	}
}

// WithUpstream replaces the analysis service client.
func WithUpstream(u Upstream) Option {
	return func(s *Service) {
		if u != nil {
			s.upstream = u
		}
	}
}

// WithUpstreamTimeout bounds predict and match-predictions calls.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.upstreamTimeout = d
		}
	}
}

// WithReviewTimeout bounds how long one review attempt may wait.
func WithReviewTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.reviewTimeout = d
		}
	}
}

// WithWorkerCount sets the number of review workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending review jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxSessions caps the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithSessionTTL sets the idle lifetime of a session.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithTopFactors sets how many advantages and disadvantages are listed.
func WithTopFactors(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topFactors = n
		}
	}
}

// WithRequestDefaults sets the values used for omitted arm, country and title.
func WithRequestDefaults(d model.RequestDefaults) Option {
	return func(s *Service) {
		if d.MatchArm != "" {
			s.defaults.MatchArm = d.MatchArm
		}
		if d.EventCountry != "" {
			s.defaults.EventCountry = d.EventCountry
		}
		if d.EventTitle != "" {
			s.defaults.EventTitle = d.EventTitle
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
