package model

import "slices"

// Clone returns a copy of p that shares no memory with it.
func (p AthleteProfile) Clone() AthleteProfile {
	out := p
	out.DomesticWinRate = cloneFloat(p.DomesticWinRate)
	out.TransatlanticWinRate = cloneFloat(p.TransatlanticWinRate)
	out.Extra = cloneMap(p.Extra)
	return out
}

// Clone returns a copy of f with its own evidence list.
func (f Finding) Clone() Finding {
	out := f
	out.Evidence = slices.Clone(f.Evidence)
	return out
}

// Clone returns a copy of h with its own lists.
func (h UIHighlights) Clone() UIHighlights {
	return UIHighlights{
		Badges:         slices.Clone(h.Badges),
		HighlightCards: slices.Clone(h.HighlightCards),
		Timeline:       slices.Clone(h.Timeline),
	}
}

// Clone returns a copy of r with its own sampling values.
func (r Reproducibility) Clone() Reproducibility {
	out := r
	out.Temperature = cloneFloat(r.Temperature)
	out.TopP = cloneFloat(r.TopP)
	out.FrequencyPenalty = cloneFloat(r.FrequencyPenalty)
	out.PresencePenalty = cloneFloat(r.PresencePenalty)
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the containers that encoding/json produces.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
