// Package explain formats explanation factors and probabilities for display.
// Every function is total: nil and NaN inputs render a placeholder instead of failing.
package explain

import (
	"fmt"
	"math"
	"strings"

	model "github.com/okian/armpredict/internal/domain/model"
)

// Placeholder is rendered for absent values.
const Placeholder = "—"

// FormatPercent renders a 0..1 fraction as "62.0%".
func FormatPercent(x *float64) string {
	if x == nil || math.IsNaN(*x) {
		return Placeholder
	}
	return fmt.Sprintf("%.1f%%", *x*100)
}

// FormatProbability renders a 0..1 fraction as "62.0" with no suffix.
func FormatProbability(x float64) string {
	if math.IsNaN(x) {
		return Placeholder
	}
	return fmt.Sprintf("%.1f", x*100)
}

// FormatSignedPercent renders a delta as "+4.0%" or "-4.0%". Zero renders "+0.0%".
func FormatSignedPercent(delta float64) string {
	if math.IsNaN(delta) {
		return Placeholder
	}
	s := fmt.Sprintf("%.1f", math.Abs(delta)*100)
	if delta < 0 && s != "0.0" {
		return "-" + s + "%"
	}
	return "+" + s + "%"
}

// FormatValue renders a raw factor value with an explicit sign.
func FormatValue(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Placeholder
	}
	return fmt.Sprintf("%+.1f", *v)
}

// Magnitude is |value|, with a missing value counting as 0.
func Magnitude(e model.Explanation) float64 {
	if e.Value == nil || math.IsNaN(*e.Value) {
		return 0
	}
	return math.Abs(*e.Value)
}

// ImpactLabel turns a review finding direction into a short label.
// Directions match regardless of case; unknown ones read as neutral.
func ImpactLabel(f model.FindingImpact) string {
	switch strings.ToLower(strings.TrimSpace(f.Direction)) {
	case "increase":
		return fmt.Sprintf("%s +%g%%", f.AthleteName, f.MagnitudePct)
	case "decrease":
		return fmt.Sprintf("%s -%g%%", f.AthleteName, f.MagnitudePct)
	default:
		return "neutral"
	}
}
