package main

import (
	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/types"
	"github.com/okian/armpredict/internal/probe"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze ATHLETE1 ATHLETE2",
	Short: "Analyse a matchup and optionally run its AI review",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyze,
}

var (
	analyzeArm     string
	analyzeCountry string
	analyzeTitle   string
	analyzeDate    string
	analyzeEvent   string
	analyzeReview  bool
	analyzeKeep    bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeArm, "arm", "", "Match arm: Left or Right")
	analyzeCmd.Flags().StringVar(&analyzeCountry, "country", "", "Event country")
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "Event title")
	analyzeCmd.Flags().StringVar(&analyzeDate, "date", "", "Event date (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&analyzeEvent, "event", "", "Event name for expert predictions")
	analyzeCmd.Flags().BoolVar(&analyzeReview, "review", false, "Start the AI review and wait for it")
	analyzeCmd.Flags().BoolVar(&analyzeKeep, "keep", false, "Keep the session instead of deleting it")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	c := cfg
	c.Keep = analyzeKeep
	req := types.AnalyzeRequest{
		PredictRequest: model.PredictRequest{
			Athlete1:     args[0],
			Athlete2:     args[1],
			MatchArm:     analyzeArm,
			EventCountry: analyzeCountry,
			EventTitle:   analyzeTitle,
			EventDate:    analyzeDate,
		},
		EventName: analyzeEvent,
	}
	_, err := probe.NewRunner(c).Run(cmd.Context(), req, analyzeReview)
	return err
}
