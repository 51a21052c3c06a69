package model

import "time"

// ReviewRequest is the body of the upstream /ai-review/ call.
type ReviewRequest struct {
	Athlete1Name string `json:"athlete1_name" validate:"required"`
	Athlete2Name string `json:"athlete2_name" validate:"required"`
	MatchArm     string `json:"match_arm" validate:"oneof=Left Right"`
	EventCountry string `json:"event_country"`
	EventTitle   string `json:"event_title"`
	EventDate    string `json:"event_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ReviewResponse is the envelope returned by /ai-review/.
type ReviewResponse struct {
	AiReview *AiReview `json:"ai_review"`
}

// AiReview is the externally produced qualitative review of a matchup.
type AiReview struct {
	SchemaVersion         string                 `json:"schema_version,omitempty"`
	AsOf                  string                 `json:"as_of,omitempty"`
	ResearchWindow        *ResearchWindow        `json:"research_window,omitempty"`
	Summary               []string               `json:"summary,omitempty"`
	Narrative             string                 `json:"narrative,omitempty"`
	AdjustedProbabilities *AdjustedProbabilities `json:"adjusted_probabilities"`
	Findings              []Finding              `json:"findings,omitempty"`
	UIHighlights          UIHighlights           `json:"ui_highlights"`
	Constraints           *ReviewConstraints     `json:"constraints,omitempty"`
	Reproducibility       Reproducibility        `json:"reproducibility"`
	Meta                  map[string]any         `json:"meta,omitempty"`
}

// ResearchWindow bounds the publication dates of cited sources.
type ResearchWindow struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// AdjustedProbabilities holds the review's revised probabilities keyed by athlete name.
type AdjustedProbabilities struct {
	Note           string             `json:"note,omitempty"`
	Before         map[string]float64 `json:"before,omitempty"`
	Deltas         map[string]float64 `json:"deltas,omitempty"`
	After          map[string]float64 `json:"after"`
	CapApplied     bool               `json:"cap_applied"`
	ConfidenceTier string             `json:"confidence_tier,omitempty"`
	Reason         string             `json:"reason,omitempty"`
}

// Finding is one sourced observation in a review.
type Finding struct {
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type,omitempty"`
	Title    string        `json:"title"`
	Detail   string        `json:"detail,omitempty"`
	Impact   FindingImpact `json:"impact"`
	Evidence []Evidence    `json:"evidence,omitempty"`
}

// FindingImpact says whom a finding affects and how much.
// Direction is increase, decrease or neutral.
type FindingImpact struct {
	AthleteName  string  `json:"athlete_name,omitempty"`
	Direction    string  `json:"direction,omitempty"`
	MagnitudePct float64 `json:"magnitude_pct,omitempty"`
	Confidence   string  `json:"confidence,omitempty"`
}

// Evidence is a citation backing a finding.
type Evidence struct {
	URL         string `json:"url"`
	SourceTitle string `json:"source_title,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	RetrievedAt string `json:"retrieved_at,omitempty"`
}

// UIHighlights are display hints produced with the review.
type UIHighlights struct {
	Badges         []Badge         `json:"badges,omitempty"`
	HighlightCards []HighlightCard `json:"highlight_cards,omitempty"`
	Timeline       []TimelineEntry `json:"timeline,omitempty"`
}

// Badge is a short labelled tag attached to an athlete.
type Badge struct {
	Label       string `json:"label"`
	Type        string `json:"type,omitempty"`
	AthleteName string `json:"athlete_name,omitempty"`
	Tooltip     string `json:"tooltip,omitempty"`
}

// HighlightCard is a quoted snippet with its source.
type HighlightCard struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// TimelineEntry is a dated event relevant to the matchup.
type TimelineEntry struct {
	Date      string `json:"date"`
	Label     string `json:"label"`
	SourceURL string `json:"source_url,omitempty"`
}

// ReviewConstraints records the limits the reviewer worked under.
type ReviewConstraints struct {
	MaxAdjustmentPerAthletePct int    `json:"max_adjustment_per_athlete_pct,omitempty"`
	SourceAgeLimitYears        int    `json:"source_age_limit_years,omitempty"`
	PreferLatestSources        bool   `json:"prefer_latest_sources,omitempty"`
	NormalizationRule          string `json:"normalization_rule,omitempty"`
}

// Reproducibility identifies the generation run.
type Reproducibility struct {
	Model            string   `json:"model,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	ResponseFormat   string   `json:"response_format,omitempty"`
	PromptVersion    string   `json:"prompt_version,omitempty"`
}

// ReviewJob is one dispatched review attempt travelling through the queue.
type ReviewJob struct {
	SessionID  string
	Attempt    uint64
	Request    ReviewRequest
	Timeout    time.Duration
	EnqueuedAt time.Time
}
