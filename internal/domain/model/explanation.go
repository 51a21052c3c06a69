// Package model contains the wire-level domain models passed between layers.
package model

import "strings"

// Category groups explanation factors for display.
type Category string

// Known factor categories.
const (
	CategoryPhysical    Category = "Physical"
	CategoryPerformance Category = "Performance"
	CategoryExperience  Category = "Experience"
	CategoryStyle       Category = "Style"
	CategoryHistory     Category = "History"
	CategoryTravel      Category = "Travel"
	CategoryForm        Category = "Form"
	CategoryComparison  Category = "Comparison"
	CategoryOther       Category = "Other"
)

var knownCategories = map[Category]struct{}{
	CategoryPhysical:    {},
	CategoryPerformance: {},
	CategoryExperience:  {},
	CategoryStyle:       {},
	CategoryHistory:     {},
	CategoryTravel:      {},
	CategoryForm:        {},
	CategoryComparison:  {},
	CategoryOther:       {},
}

// Known reports whether c is one of the recognized categories.
func (c Category) Known() bool {
	_, ok := knownCategories[c]
	return ok
}

// Normalize maps absent or unrecognized categories to Other.
func (c Category) Normalize() Category {
	if c.Known() {
		return c
	}
	return CategoryOther
}

// Impact is the direction a factor pushes athlete1's chances.
type Impact string

// Impact values.
const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// ParseImpact lowercases and trims s; anything unknown is neutral.
func ParseImpact(s string) Impact {
	switch Impact(strings.ToLower(strings.TrimSpace(s))) {
	case ImpactPositive:
		return ImpactPositive
	case ImpactNegative:
		return ImpactNegative
	default:
		return ImpactNeutral
	}
}

// Explanation is one human-readable factor behind a prediction.
// Value is nil when the upstream sent null or omitted it.
// The sign of Value is not checked against Impact.
type Explanation struct {
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Impact      Impact   `json:"impact"`
	Value       *float64 `json:"value"`
}

// Float returns a pointer to v. Handy for literals in tests and fixtures.
func Float(v float64) *float64 { return &v }
