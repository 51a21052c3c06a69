// Package ranking groups and orders explanation factors by strength.
package ranking

import (
	"slices"

	"github.com/okian/armpredict/internal/domain/explain"
	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/types"
)

// DefaultTopN is the number of advantages and disadvantages shown.
const DefaultTopN = 3

// CategoryOrder is the display order of category groups. Recognized
// categories missing from this list follow in first-seen order.
var CategoryOrder = []model.Category{
	model.CategoryPhysical,
	model.CategoryExperience,
	model.CategoryTravel,
	model.CategoryPerformance,
	model.CategoryForm,
	model.CategoryHistory,
	model.CategoryComparison,
	model.CategoryOther,
}

// byMagnitudeDesc orders by descending |value|; SortStableFunc keeps ties in input order.
func byMagnitudeDesc(a, b model.Explanation) int {
	ma, mb := explain.Magnitude(a), explain.Magnitude(b)
	switch {
	case ma > mb:
		return -1
	case ma < mb:
		return 1
	default:
		return 0
	}
}

// GroupByCategory partitions exps by category, each group strongest first.
// Absent or unrecognized categories land in Other. Empty groups are omitted.
func GroupByCategory(exps []model.Explanation) []types.InsightGroup {
	buckets := make(map[model.Category][]model.Explanation)
	var extra []model.Category
	for _, e := range exps {
		c := e.Category.Normalize()
		if _, seen := buckets[c]; !seen && !slices.Contains(CategoryOrder, c) {
			extra = append(extra, c)
		}
		buckets[c] = append(buckets[c], e)
	}

	groups := make([]types.InsightGroup, 0, len(buckets))
	for _, c := range append(slices.Clone(CategoryOrder), extra...) {
		items, ok := buckets[c]
		if !ok {
			continue
		}
		slices.SortStableFunc(items, byMagnitudeDesc)
		groups = append(groups, types.InsightGroup{Category: c, Explanations: items})
	}
	return groups
}

// TopFactors returns at most n explanations with the given impact, strongest first.
func TopFactors(exps []model.Explanation, impact model.Impact, n int) []model.Explanation {
	if n <= 0 {
		return []model.Explanation{}
	}
	out := make([]model.Explanation, 0, n)
	for _, e := range exps {
		if e.Impact == impact {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, byMagnitudeDesc)
	if len(out) > n {
		out = out[:n]
	}
	return out
}
