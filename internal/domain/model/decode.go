package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The review payload is produced by a language model. Only the envelope and
// adjusted_probabilities are structural; every other field is decoded
// best-effort so one odd field does not discard the whole review.

// UnmarshalJSON decodes a review leniently. Only a malformed
// adjusted_probabilities object is an error.
func (r *AiReview) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	out := AiReview{
		SchemaVersion: decodeText(fields["schema_version"]),
		AsOf:          decodeText(fields["as_of"]),
		Summary:       decodeLines(fields["summary"]),
		Narrative:     decodeText(fields["narrative"]),
	}
	if raw, ok := fields["adjusted_probabilities"]; ok && !isNull(raw) {
		var adj AdjustedProbabilities
		if err := json.Unmarshal(raw, &adj); err != nil {
			return fmt.Errorf("adjusted_probabilities: %w", err)
		}
		out.AdjustedProbabilities = &adj
	}
	for _, raw := range decodeArray(fields["findings"]) {
		var f Finding
		if err := json.Unmarshal(raw, &f); err == nil {
			out.Findings = append(out.Findings, f)
		}
	}
	tryDecode(fields["research_window"], &out.ResearchWindow)
	tryDecode(fields["ui_highlights"], &out.UIHighlights)
	tryDecode(fields["constraints"], &out.Constraints)
	tryDecode(fields["reproducibility"], &out.Reproducibility)
	tryDecode(fields["meta"], &out.Meta)
	*r = out
	return nil
}

// UnmarshalJSON keeps only numeric probability entries; an athlete whose
// value is missing or not a number falls back to the base prediction.
func (a *AdjustedProbabilities) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*a = AdjustedProbabilities{
		Note:           decodeText(fields["note"]),
		Before:         decodeNumberMap(fields["before"]),
		Deltas:         decodeNumberMap(fields["deltas"]),
		After:          decodeNumberMap(fields["after"]),
		CapApplied:     decodeBool(fields["cap_applied"]),
		ConfidenceTier: decodeText(fields["confidence_tier"]),
		Reason:         decodeText(fields["reason"]),
	}
	return nil
}

// UnmarshalJSON decodes a finding; an unusable impact is left zero.
func (f *Finding) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	out := Finding{
		ID:     decodeText(fields["id"]),
		Type:   decodeText(fields["type"]),
		Title:  decodeText(fields["title"]),
		Detail: decodeText(fields["detail"]),
	}
	tryDecode(fields["impact"], &out.Impact)
	for _, raw := range decodeArray(fields["evidence"]) {
		var e Evidence
		if err := json.Unmarshal(raw, &e); err == nil {
			out.Evidence = append(out.Evidence, e)
		}
	}
	*f = out
	return nil
}

// UnmarshalJSON accepts a magnitude given as a number or a numeric string.
// The direction is kept verbatim.
func (i *FindingImpact) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	mag, _ := decodeLooseNumber(fields["magnitude_pct"])
	*i = FindingImpact{
		AthleteName:  decodeText(fields["athlete_name"]),
		Direction:    decodeText(fields["direction"]),
		MagnitudePct: mag,
		Confidence:   decodeText(fields["confidence"]),
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}

func tryDecode(raw json.RawMessage, v any) {
	if isNull(raw) {
		return
	}
	_ = json.Unmarshal(raw, v)
}

func decodeAny(raw json.RawMessage) any {
	if isNull(raw) {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// decodeText renders scalars as text; null, objects and arrays give "".
func decodeText(raw json.RawMessage) string {
	switch v := decodeAny(raw).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// decodeLines accepts a list of scalars or a single scalar.
func decodeLines(raw json.RawMessage) []string {
	switch v := decodeAny(raw).(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			data, _ := json.Marshal(item)
			if s := strings.TrimSpace(decodeText(data)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := strings.TrimSpace(decodeText(raw)); s != "" {
			return []string{s}
		}
		return nil
	}
}

func decodeArray(raw json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &out) != nil {
		return nil
	}
	return out
}

func decodeBool(raw json.RawMessage) bool {
	switch v := decodeAny(raw).(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// decodeNumberMap keeps the entries whose value is a JSON number.
func decodeNumberMap(raw json.RawMessage) map[string]float64 {
	var fields map[string]json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &fields) != nil {
		return nil
	}
	out := make(map[string]float64, len(fields))
	for k, v := range fields {
		if f, ok := decodeAny(v).(float64); ok && finite(f) {
			out[k] = f
		}
	}
	return out
}

// decodeLooseNumber accepts a JSON number or a string such as "4.5" or "4.5%".
func decodeLooseNumber(raw json.RawMessage) (float64, bool) {
	switch v := decodeAny(raw).(type) {
	case float64:
		return v, finite(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
