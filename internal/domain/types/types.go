// Package types contains display-ready shapes shared by the assembler, reconciler and API.
package types

import (
	"encoding/json"

	model "github.com/okian/armpredict/internal/domain/model"
)

// InsightGroup is one category of explanations, strongest first.
type InsightGroup struct {
	Category     model.Category      `json:"category"`
	Explanations []model.Explanation `json:"explanations"`
}

// AdjustedView is one athlete's base and AI-adjusted probability.
type AdjustedView struct {
	Name           string  `json:"name"`
	Before         float64 `json:"before"`
	After          float64 `json:"after"`
	Delta          float64 `json:"delta"`
	BeforePercent  string  `json:"before_percent"`
	AfterPercent   string  `json:"after_percent"`
	DeltaPercent   string  `json:"delta_percent"`
	ConfidenceTier string  `json:"confidence_tier"`
	CapApplied     bool    `json:"cap_applied"`
	Degraded       bool    `json:"degraded"`
}

// Reconciliation merges a base prediction with an optional review.
type Reconciliation struct {
	Athlete1 AdjustedView `json:"athlete1"`
	Athlete2 AdjustedView `json:"athlete2"`
	Reviewed bool         `json:"reviewed"`
	Degraded bool         `json:"degraded"`
	Reason   string       `json:"reason,omitempty"`
	Note     string       `json:"note,omitempty"`
}

// Views returns both athlete views in matchup order.
func (r Reconciliation) Views() []AdjustedView {
	return []AdjustedView{r.Athlete1, r.Athlete2}
}

// WinProbability is a formatted base probability.
type WinProbability struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Percent     string  `json:"percent"`
	Confidence  string  `json:"confidence"`
}

// WinProbabilities pairs both athletes' probabilities.
type WinProbabilities struct {
	Athlete1 WinProbability `json:"athlete1"`
	Athlete2 WinProbability `json:"athlete2"`
}

// AthleteView is a profile plus derived display values.
type AthleteView struct {
	Profile model.AthleteProfile `json:"profile"`
	WinRate string               `json:"win_rate"`
}

// AthleteViews pairs both athlete views.
type AthleteViews struct {
	Athlete1 AthleteView `json:"athlete1"`
	Athlete2 AthleteView `json:"athlete2"`
}

// History summarizes past matches between and around the two athletes.
type History struct {
	HasHeadToHead        bool `json:"has_head_to_head"`
	HeadToHeadCount      int  `json:"head_to_head_count"`
	SharedOpponentsCount int  `json:"shared_opponents_count"`
	CommonConnections    int  `json:"common_connections"`
}

// FindingView is a review finding with its impact rendered for display.
type FindingView struct {
	model.Finding
	ImpactLabel string `json:"impact_label"`
}

// UnmarshalJSON decodes the finding leniently and keeps the impact label,
// which the embedded finding's decoder would otherwise swallow.
func (v *FindingView) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &v.Finding); err != nil {
		return err
	}
	var label struct {
		ImpactLabel string `json:"impact_label"`
	}
	if err := json.Unmarshal(b, &label); err != nil {
		return err
	}
	v.ImpactLabel = label.ImpactLabel
	return nil
}

// ReviewView is the display form of a completed AI review.
type ReviewView struct {
	Summary         []string              `json:"summary"`
	Narrative       string                `json:"narrative,omitempty"`
	Findings        []FindingView         `json:"findings"`
	Highlights      model.UIHighlights    `json:"highlights"`
	Reproducibility model.Reproducibility `json:"reproducibility"`
	AsOf            string                `json:"as_of,omitempty"`
	SchemaVersion   string                `json:"schema_version,omitempty"`
}

// Analysis is the display-ready aggregate of a matchup.
type Analysis struct {
	WinProbabilities   WinProbabilities    `json:"win_probabilities"`
	InsightsByCategory []InsightGroup      `json:"insights_by_category"`
	KeyAdvantages      []model.Explanation `json:"key_advantages"`
	KeyDisadvantages   []model.Explanation `json:"key_disadvantages"`
	OverallFavorite    string              `json:"overall_favorite"`
	ConfidenceLevel    string              `json:"confidence_level"`
	Athletes           AthleteViews        `json:"athletes"`
	History            History             `json:"history"`
	Adjusted           Reconciliation      `json:"adjusted"`
	AdjustedFavorite   string              `json:"adjusted_favorite"`
	Review             *ReviewView         `json:"review,omitempty"`
}
