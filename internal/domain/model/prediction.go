package model

import (
	"encoding/json"
	"maps"
)

// Prediction is the base win-probability output of the remote model.
// The two probabilities are not assumed to sum to 1.
type Prediction struct {
	Athlete1Name           string  `json:"athlete1_name"`
	Athlete2Name           string  `json:"athlete2_name"`
	Athlete1WinProbability float64 `json:"athlete1_win_probability"`
	Athlete2WinProbability float64 `json:"athlete2_win_probability"`
	Confidence             string  `json:"confidence"`
}

// AthleteProfile is a read-only snapshot of an athlete's attributes.
// Keys the struct does not name are kept in Extra and written back on marshal.
type AthleteProfile struct {
	Name                 string   `json:"name,omitempty"`
	Country              string   `json:"country,omitempty"`
	Age                  int      `json:"age,omitempty"`
	WeightKg             float64  `json:"weight_kg,omitempty"`
	HeightCm             float64  `json:"height_cm,omitempty"`
	BicepCm              float64  `json:"bicep_cm,omitempty"`
	ForearmCm            float64  `json:"forearm_cm,omitempty"`
	WristCm              float64  `json:"wrist_cm,omitempty"`
	DominantStyle        string   `json:"dominant_style,omitempty"`
	AdditionalStyle      string   `json:"additional_style,omitempty"`
	IsTitleHolder        bool     `json:"is_title_holder,omitempty"`
	CurrentWinningStreak int      `json:"current_winning_streak,omitempty"`
	TotalMatches         int      `json:"total_matches,omitempty"`
	DomesticWinRate      *float64 `json:"domestic_win_rate,omitempty"`
	TransatlanticWinRate *float64 `json:"transatlantic_win_rate,omitempty"`

	Extra map[string]any `json:"-"`
}

type athleteProfileAlias AthleteProfile

var athleteProfileKeys = []string{
	"name", "country", "age", "weight_kg", "height_cm", "bicep_cm", "forearm_cm", "wrist_cm",
	"dominant_style", "additional_style", "is_title_holder", "current_winning_streak",
	"total_matches", "domestic_win_rate", "transatlantic_win_rate",
}

// UnmarshalJSON decodes the named fields and collects the rest into Extra.
func (p *AthleteProfile) UnmarshalJSON(data []byte) error {
	var alias athleteProfileAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range athleteProfileKeys {
		delete(all, k)
	}
	*p = AthleteProfile(alias)
	if len(all) > 0 {
		p.Extra = all
	}
	return nil
}

// MarshalJSON writes the named fields plus Extra. Named fields win on collision.
func (p AthleteProfile) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(athleteProfileAlias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return known, nil
	}
	out := make(map[string]any, len(p.Extra)+len(athleteProfileKeys))
	maps.Copy(out, p.Extra)
	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	maps.Copy(out, fields)
	return json.Marshal(out)
}

// MatchRecord is one historical match.
type MatchRecord struct {
	Event        string   `json:"event,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Date         string   `json:"date,omitempty"`
	Arm          string   `json:"arm,omitempty"`
	Winner       string   `json:"winner,omitempty"`
	Result       string   `json:"result,omitempty"`
	Score        string   `json:"score,omitempty"`
}

// SharedOpponentGroup lists both athletes' matches against one common opponent.
type SharedOpponentGroup struct {
	SharedOpponent string        `json:"shared_opponent"`
	Matches        []MatchRecord `json:"matches"`
}

// ValuableMatches is passed through for display and only counted here.
type ValuableMatches struct {
	HeadToHead             []MatchRecord         `json:"head_to_head"`
	SharedOpponents        []SharedOpponentGroup `json:"shared_opponents"`
	SecondOrderConnections []json.RawMessage     `json:"second_order_connections"`
}

// AthleteProfiles pairs the two profiles of a matchup.
type AthleteProfiles struct {
	Athlete1 AthleteProfile `json:"athlete1"`
	Athlete2 AthleteProfile `json:"athlete2"`
}

// AnalysisPayload carries the explanation list of a prediction.
type AnalysisPayload struct {
	Explanations []Explanation  `json:"explanations"`
	KeyFactors   map[string]any `json:"key_factors,omitempty"`
}

// PredictionMetadata describes the model run.
type PredictionMetadata struct {
	PredictionDate     string `json:"prediction_date,omitempty"`
	ModelFeaturesCount int    `json:"model_features_count,omitempty"`
	DataQuality        string `json:"data_quality,omitempty"`
}

// PredictRequest is the body of the upstream /predict/ call.
type PredictRequest struct {
	Athlete1     string `json:"athlete1" validate:"required"`
	Athlete2     string `json:"athlete2" validate:"required"`
	MatchArm     string `json:"match_arm" validate:"oneof=Left Right"`
	EventCountry string `json:"event_country"`
	EventTitle   string `json:"event_title"`
	EventDate    string `json:"event_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// PredictResponse is the body returned by /predict/.
type PredictResponse struct {
	Prediction      Prediction         `json:"prediction"`
	MatchDetails    map[string]any     `json:"match_details,omitempty"`
	Analysis        AnalysisPayload    `json:"analysis"`
	AthleteProfiles AthleteProfiles    `json:"athlete_profiles"`
	ValuableMatches ValuableMatches    `json:"valuable_matches"`
	RawFeatures     map[string]any     `json:"raw_features,omitempty"`
	Metadata        PredictionMetadata `json:"metadata"`
}

// ReviewRequest derives the /ai-review/ body for the same matchup.
func (r PredictRequest) ReviewRequest() ReviewRequest {
	return ReviewRequest{
		Athlete1Name: r.Athlete1,
		Athlete2Name: r.Athlete2,
		MatchArm:     r.MatchArm,
		EventCountry: r.EventCountry,
		EventTitle:   r.EventTitle,
		EventDate:    r.EventDate,
	}
}
