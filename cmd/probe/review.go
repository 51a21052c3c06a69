package main

import (
	"fmt"

	"github.com/okian/armpredict/internal/probe"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review SESSION_ID",
	Short: "Start the AI review of an existing session and wait for it",
	Args:  cobra.ExactArgs(1),
	RunE:  runReview,
}

var watchCmd = &cobra.Command{
	Use:   "watch SESSION_ID",
	Short: "Follow a session's review history until it settles",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(watchCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	view, seen, err := probe.NewRunner(cfg).Review(cmd.Context(), args[0], nil)
	if view != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "state=%s attempt=%d transitions=%d\n", view.State, view.Attempt, seen)
	}
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	view, seen, err := probe.NewRunner(cfg).Watch(cmd.Context(), args[0])
	if view != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "state=%s attempt=%d transitions=%d\n", view.State, view.Attempt, seen)
	}
	return err
}
