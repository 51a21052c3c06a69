// Package analysis assembles the display-ready aggregate of a matchup.
package analysis

import (
	"github.com/okian/armpredict/internal/domain/explain"
	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/ranking"
	"github.com/okian/armpredict/internal/domain/reconcile"
	"github.com/okian/armpredict/internal/domain/types"
)

// Input is everything the assembler reads. It is never modified.
type Input struct {
	Prediction      model.Prediction
	Explanations    []model.Explanation
	Athlete1        model.AthleteProfile
	Athlete2        model.AthleteProfile
	ValuableMatches model.ValuableMatches
	// Review is the latest validated AI review, if any.
	Review *model.AiReview
	// TopN bounds advantages and disadvantages; zero means ranking.DefaultTopN.
	TopN int
}

// FromResponse builds an Input from a /predict/ payload.
func FromResponse(resp model.PredictResponse, review *model.AiReview, topN int) Input {
	return Input{
		Prediction:      resp.Prediction,
		Explanations:    resp.Analysis.Explanations,
		Athlete1:        resp.AthleteProfiles.Athlete1,
		Athlete2:        resp.AthleteProfiles.Athlete2,
		ValuableMatches: resp.ValuableMatches,
		Review:          review,
		TopN:            topN,
	}
}

// Assemble derives a fresh Analysis from in.
func Assemble(in Input) types.Analysis {
	n := in.TopN
	if n <= 0 {
		n = ranking.DefaultTopN
	}
	p := in.Prediction

	var adj *model.AdjustedProbabilities
	if in.Review != nil {
		adj = in.Review.AdjustedProbabilities
	}
	rec := reconcile.Reconcile(p, adj)

	out := types.Analysis{
		WinProbabilities: types.WinProbabilities{
			Athlete1: winProbability(p.Athlete1Name, p.Athlete1WinProbability, p.Confidence),
			Athlete2: winProbability(p.Athlete2Name, p.Athlete2WinProbability, p.Confidence),
		},
		InsightsByCategory: ranking.GroupByCategory(in.Explanations),
		KeyAdvantages:      ranking.TopFactors(in.Explanations, model.ImpactPositive, n),
		KeyDisadvantages:   ranking.TopFactors(in.Explanations, model.ImpactNegative, n),
		OverallFavorite:    Favorite(p),
		ConfidenceLevel:    p.Confidence,
		Athletes: types.AthleteViews{
			Athlete1: athleteView(in.Athlete1),
			Athlete2: athleteView(in.Athlete2),
		},
		History:          history(in.ValuableMatches),
		Adjusted:         rec,
		AdjustedFavorite: reconcile.Favorite(rec),
	}
	if in.Review != nil {
		out.Review = reviewView(in.Review)
	}
	return out
}

// Favorite is athlete1 only when its probability is strictly above 0.5.
// A 0.5 tie goes to athlete2.
func Favorite(p model.Prediction) string {
	if p.Athlete1WinProbability > 0.5 {
		return p.Athlete1Name
	}
	return p.Athlete2Name
}

func winProbability(name string, prob float64, confidence string) types.WinProbability {
	return types.WinProbability{
		Name:        name,
		Probability: prob,
		Percent:     explain.FormatProbability(prob),
		Confidence:  confidence,
	}
}

func athleteView(p model.AthleteProfile) types.AthleteView {
	return types.AthleteView{Profile: p.Clone(), WinRate: explain.FormatPercent(p.DomesticWinRate)}
}

func history(vm model.ValuableMatches) types.History {
	return types.History{
		HasHeadToHead:        len(vm.HeadToHead) > 0,
		HeadToHeadCount:      len(vm.HeadToHead),
		SharedOpponentsCount: len(vm.SharedOpponents),
		CommonConnections:    len(vm.SecondOrderConnections),
	}
}

func reviewView(r *model.AiReview) *types.ReviewView {
	findings := make([]types.FindingView, 0, len(r.Findings))
	for _, f := range r.Findings {
		findings = append(findings, types.FindingView{Finding: f.Clone(), ImpactLabel: explain.ImpactLabel(f.Impact)})
	}
	summary := append([]string{}, r.Summary...)
	return &types.ReviewView{
		Summary:         summary,
		Narrative:       r.Narrative,
		Findings:        findings,
		Highlights:      r.UIHighlights.Clone(),
		Reproducibility: r.Reproducibility.Clone(),
		AsOf:            r.AsOf,
		SchemaVersion:   r.SchemaVersion,
	}
}
