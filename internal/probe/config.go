// Package probe drives a running armpredict server the way the browser does:
// it analyses a matchup, starts the AI review and polls the session until
// the review settles.
package probe

import (
	"io"
	"os"
	"time"

	"github.com/okian/armpredict/pkg/logger"
)

// Default probe settings.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultReviewWait   = 2 * time.Minute
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL      string        // Base URL of the server
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between session polls
	ReviewWait   time.Duration // Upper bound on waiting for a review to settle
	Verbose      bool          // Print the full session view at the end
	Keep         bool          // Leave the session in place instead of deleting it
	Out          io.Writer     // Report destination
	Logger       logger.Logger // Run log; discarded when nil
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.ReviewWait <= 0 {
		out.ReviewWait = DefaultReviewWait
	}
	if out.Out == nil {
		out.Out = os.Stdout
	}
	if out.Logger == nil {
		out.Logger = logger.Nop()
	}
	return &out
}
