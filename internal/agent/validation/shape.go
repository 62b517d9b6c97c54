package validation

import "context"

// ShapeValidator rejects replies that decoded but carry no recommendations,
// which happens when the model answers with some other JSON object
type ShapeValidator struct{}

func NewShapeValidator() *ShapeValidator {
	return &ShapeValidator{}
}

func (v *ShapeValidator) Name() string {
	return "ShapeValidator"
}

func (v *ShapeValidator) Validate(ctx context.Context, input ValidationInput) ValidationResult {
	if input.Recommendation == nil {
		return Fail("no recommendation object")
	}
	if len(input.Recommendation.Recommendations) == 0 {
		return Fail("recommendations list is missing or empty")
	}
	return OK()
}
