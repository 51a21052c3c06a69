package model

// MatchPredictionsRequest is the body of the upstream /match-predictions/ call.
type MatchPredictionsRequest struct {
	Athlete1  string `json:"athlete1" validate:"required"`
	Athlete2  string `json:"athlete2" validate:"required"`
	EventName string `json:"event_name" validate:"required"`
}

// ExpertPrediction is one pundit's pick for a match, taken from event transcripts.
type ExpertPrediction struct {
	Predictor         string  `json:"predictor"`
	Match             string  `json:"match,omitempty"`
	Arm               string  `json:"arm,omitempty"`
	Event             string  `json:"event,omitempty"`
	PredictedWinner   string  `json:"predicted_winner,omitempty"`
	PredictedScore    string  `json:"predicted_score,omitempty"`
	PredictionSummary string  `json:"prediction_summary,omitempty"`
	Confidence        string  `json:"confidence,omitempty"`
	Reasoning         string  `json:"reasoning,omitempty"`
	Probability       float64 `json:"probability,omitempty"`
}

// PredictionsSummary aggregates the expert picks.
type PredictionsSummary struct {
	TotalPredictions     int            `json:"total_predictions"`
	SelfCount            int            `json:"self_count"`
	ThirdPartyCount      int            `json:"third_party_count"`
	VoteDistribution     map[string]int `json:"vote_distribution,omitempty"`
	ConsensusFavorite    string         `json:"consensus_favorite,omitempty"`
	PredictionConfidence string         `json:"prediction_confidence,omitempty"`
}

// MatchPredictionsResponse is the body returned by /match-predictions/.
type MatchPredictionsResponse struct {
	MatchFound            bool               `json:"match_found"`
	SelfPredictions       []ExpertPrediction `json:"self_predictions"`
	ThirdPartyPredictions []ExpertPrediction `json:"third_party_predictions"`
	Summary               PredictionsSummary `json:"summary"`
	Metadata              map[string]any     `json:"metadata,omitempty"`
}
