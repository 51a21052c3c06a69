// Package main provides a command-line probe for a running armpredict server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/okian/armpredict/internal/probe"
	"github.com/okian/armpredict/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfg      probe.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "probe",
	Short: "Exercise a running armpredict server",
	Long:  "probe analyses matchups, drives AI reviews and polls sessions against a running armpredict server.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		if err := logger.SetLevelString(logLevel); err != nil {
			return err
		}
		cfg.Out = cmd.OutOrStdout()
		cfg.Logger = logger.Get()
		return nil
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.BaseURL, "url", envOr("ARMPREDICT_PROBE_URL", probe.DefaultBaseURL), "Base URL of the server")
	flags.DurationVar(&cfg.Timeout, "timeout", probe.DefaultTimeout, "HTTP request timeout")
	flags.DurationVar(&cfg.PollInterval, "poll", probe.DefaultPollInterval, "Session poll interval")
	flags.DurationVar(&cfg.ReviewWait, "wait", probe.DefaultReviewWait, "Maximum time to wait for a review")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Print the final session view")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
