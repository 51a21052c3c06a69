// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Durations are configured in milliseconds and exposed as time.Duration helpers.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// UpstreamBaseURL is the root of the remote analysis service.
	UpstreamBaseURL string `koanf:"upstream_base_url"`

	// UpstreamTimeoutMS bounds /predict/ and /match-predictions/ calls.
	UpstreamTimeoutMS int `koanf:"upstream_timeout_ms"`

	// ReviewTimeoutMS bounds how long one AI review attempt may wait.
	ReviewTimeoutMS int `koanf:"review_timeout_ms"`

	// ReviewQueueSize bounds the in-memory review job queue.
	ReviewQueueSize int `koanf:"review_queue_size"`

	// ReviewWorkerCount sets the number of review workers.
	ReviewWorkerCount int `koanf:"review_worker_count"`

	// MaxSessions caps live matchup sessions; the least recently used is evicted.
	MaxSessions int `koanf:"max_sessions"`

	// SessionTTLMS evicts sessions idle for longer than this.
	SessionTTLMS int `koanf:"session_ttl_ms"`

	// TopFactors is how many advantages and disadvantages an analysis lists.
	TopFactors int `koanf:"top_factors"`

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Defaults applied to review and predict requests that omit them.
	DefaultMatchArm     string `koanf:"default_match_arm"`
	DefaultEventCountry string `koanf:"default_event_country"`
	DefaultEventTitle   string `koanf:"default_event_title"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		UpstreamBaseURL:     "http://localhost:8000",
		UpstreamTimeoutMS:   30_000,
		ReviewTimeoutMS:     90_000,
		ReviewQueueSize:     256,
		ReviewWorkerCount:   runtime.NumCPU(),
		MaxSessions:         1024,
		SessionTTLMS:        30 * 60 * 1000,
		TopFactors:          3,
		CORSAllowedOrigins:  []string{"*"},
		DefaultMatchArm:     "Right",
		DefaultEventCountry: "United States",
		DefaultEventTitle:   "(Virtual)",
	}
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.UpstreamBaseURL == "":
		return fmt.Errorf("%w: upstream_base_url must not be empty", ErrInvalidConfig)
	case c.UpstreamTimeoutMS <= 0:
		return fmt.Errorf("%w: upstream_timeout_ms must be positive", ErrInvalidConfig)
	case c.ReviewTimeoutMS <= 0:
		return fmt.Errorf("%w: review_timeout_ms must be positive", ErrInvalidConfig)
	case c.SessionTTLMS <= 0:
		return fmt.Errorf("%w: session_ttl_ms must be positive", ErrInvalidConfig)
	case c.TopFactors < 1:
		return fmt.Errorf("%w: top_factors must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// UpstreamTimeout returns UpstreamTimeoutMS as a duration.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// ReviewTimeout returns ReviewTimeoutMS as a duration.
func (c *Config) ReviewTimeout() time.Duration {
	return time.Duration(c.ReviewTimeoutMS) * time.Millisecond
}

// SessionTTL returns SessionTTLMS as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMS) * time.Millisecond
}
