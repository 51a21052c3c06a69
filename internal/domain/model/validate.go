package model

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// RequestDefaults fill optional matchup fields the caller left blank.
type RequestDefaults struct {
	MatchArm     string
	EventCountry string
	EventTitle   string
}

// DefaultRequestDefaults matches the values the analysis service assumes.
var DefaultRequestDefaults = RequestDefaults{
	MatchArm:     "Right",
	EventCountry: "United States",
	EventTitle:   "(Virtual)",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateStruct runs struct tags and converts the first failure to a ValidationError.
func validateStruct(v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return NewValidationError(fe.Field(), "is required")
	case "oneof":
		return NewValidationError(fe.Field(), "must be one of %s", strings.ReplaceAll(fe.Param(), " ", "|"))
	case "datetime":
		return NewValidationError(fe.Field(), "must be a YYYY-MM-DD date")
	default:
		return NewValidationError(fe.Field(), "failed %s check", fe.Tag())
	}
}

func normalizeArm(arm, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(arm)) {
	case "":
		return fallback
	case "left":
		return "Left"
	case "right":
		return "Right"
	default:
		return strings.TrimSpace(arm)
	}
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}

// Normalize trims the request and fills blank optional fields from d.
func (r ReviewRequest) Normalize(d RequestDefaults) ReviewRequest {
	r.Athlete1Name = strings.TrimSpace(r.Athlete1Name)
	r.Athlete2Name = strings.TrimSpace(r.Athlete2Name)
	r.MatchArm = normalizeArm(r.MatchArm, d.MatchArm)
	r.EventCountry = orDefault(r.EventCountry, d.EventCountry)
	r.EventTitle = orDefault(r.EventTitle, d.EventTitle)
	r.EventDate = strings.TrimSpace(r.EventDate)
	return r
}

// Validate checks names, arm and date.
func (r ReviewRequest) Validate() error { return validateStruct(r) }

// Normalize trims the request and fills blank optional fields from d.
func (r PredictRequest) Normalize(d RequestDefaults) PredictRequest {
	r.Athlete1 = strings.TrimSpace(r.Athlete1)
	r.Athlete2 = strings.TrimSpace(r.Athlete2)
	r.MatchArm = normalizeArm(r.MatchArm, d.MatchArm)
	r.EventCountry = orDefault(r.EventCountry, d.EventCountry)
	r.EventTitle = orDefault(r.EventTitle, d.EventTitle)
	r.EventDate = strings.TrimSpace(r.EventDate)
	return r
}

// Validate checks names, arm and date.
func (r PredictRequest) Validate() error { return validateStruct(r) }

// Normalize trims every field.
func (r MatchPredictionsRequest) Normalize() MatchPredictionsRequest {
	r.Athlete1 = strings.TrimSpace(r.Athlete1)
	r.Athlete2 = strings.TrimSpace(r.Athlete2)
	r.EventName = strings.TrimSpace(r.EventName)
	return r
}

// Validate requires both names and the event name.
func (r MatchPredictionsRequest) Validate() error { return validateStruct(r) }
