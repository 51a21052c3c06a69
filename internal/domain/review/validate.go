package review

import (
	_ "embed"
	"encoding/json"
	"sync"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/ai_review.schema.json
var aiReviewSchema []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(aiReviewSchema))
	})
	return schema, schemaErr
}

// ValidatePayload checks an /ai-review/ response body and decodes its review.
// The body must hold a non-null ai_review object with a non-null
// adjusted_probabilities object. Other fields are decoded leniently: a string
// summary becomes one bullet, nulls become empty, and non-numeric probability
// entries are dropped. Any failure is a *model.ValidationError.
func ValidatePayload(raw []byte) (*model.AiReview, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, model.NewValidationError("", "schema unavailable: %v", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, model.NewValidationError("", "malformed JSON: %v", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return nil, model.NewValidationError(first.Field(), "%s", first.Description())
	}

	var resp model.ReviewResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, model.NewValidationError("ai_review", "decode: %v", err)
	}
	if resp.AiReview == nil || resp.AiReview.AdjustedProbabilities == nil {
		return nil, model.NewValidationError("ai_review.adjusted_probabilities", "is required")
	}
	return resp.AiReview, nil
}
