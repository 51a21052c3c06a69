// Package reconcile merges a base prediction with the adjusted probabilities of an AI review.
package reconcile

import (
	"strings"

	"github.com/okian/armpredict/internal/domain/explain"
	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/types"
)

// Reconcile pairs each athlete's base probability with the review's adjusted one.
//
// Before always comes from base. When adj is nil, After equals Before and the
// confidence tier is the base confidence. An athlete missing from adj.After
// keeps its base value and the view and result are marked Degraded; so does
// one whose name loosely matches several keys.
// CapApplied is reported as given; no capping happens here.
func Reconcile(base model.Prediction, adj *model.AdjustedProbabilities) types.Reconciliation {
	if adj == nil {
		return types.Reconciliation{
			Athlete1: view(base.Athlete1Name, base.Athlete1WinProbability, base.Athlete1WinProbability, base.Confidence, false, false),
			Athlete2: view(base.Athlete2Name, base.Athlete2WinProbability, base.Athlete2WinProbability, base.Confidence, false, false),
		}
	}

	tier := adj.ConfidenceTier
	if tier == "" {
		tier = base.Confidence
	}
	a1, ok1 := lookup(adj.After, base.Athlete1Name)
	if !ok1 {
		a1 = base.Athlete1WinProbability
	}
	a2, ok2 := lookup(adj.After, base.Athlete2Name)
	if !ok2 {
		a2 = base.Athlete2WinProbability
	}

	return types.Reconciliation{
		Athlete1: view(base.Athlete1Name, base.Athlete1WinProbability, a1, tier, adj.CapApplied, !ok1),
		Athlete2: view(base.Athlete2Name, base.Athlete2WinProbability, a2, tier, adj.CapApplied, !ok2),
		Reviewed: true,
		Degraded: !ok1 || !ok2,
		Reason:   adj.Reason,
		Note:     adj.Note,
	}
}

func view(name string, before, after float64, tier string, capApplied, degraded bool) types.AdjustedView {
	delta := after - before
	return types.AdjustedView{
		Name:           name,
		Before:         before,
		After:          after,
		Delta:          delta,
		BeforePercent:  explain.FormatPercent(&before),
		AfterPercent:   explain.FormatPercent(&after),
		DeltaPercent:   explain.FormatSignedPercent(delta),
		ConfidenceTier: tier,
		CapApplied:     capApplied,
		Degraded:       degraded,
	}
}

// lookup matches by exact name first, then trimmed and case-insensitive.
// A name that loosely matches more than one key is treated as missing.
func lookup(m map[string]float64, name string) (float64, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	want := strings.TrimSpace(name)
	var (
		found   float64
		matches int
	)
	for k, v := range m {
		if strings.EqualFold(strings.TrimSpace(k), want) {
			found = v
			matches++
		}
	}
	if matches != 1 {
		return 0, false
	}
	return found, true
}

// FormatDelta renders a view's delta with its sign, e.g. "+4.0%".
func FormatDelta(v types.AdjustedView) string {
	return explain.FormatSignedPercent(v.Delta)
}

// Favorite returns the athlete with the higher adjusted probability.
// A tie goes to athlete2.
func Favorite(r types.Reconciliation) string {
	if r.Athlete1.After > r.Athlete2.After {
		return r.Athlete1.Name
	}
	return r.Athlete2.Name
}
