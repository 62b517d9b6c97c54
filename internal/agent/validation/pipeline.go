package validation

import (
	"context"
	"fmt"

	"book-discovery/internal/logger"
	"book-discovery/internal/model"
)

// RejectedError is returned when a validator rejects the reply outright
type RejectedError struct {
	Validator string
	Reason    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected recommendation: %s", e.Validator, e.Reason)
}

// Pipeline runs multiple validators in sequence
type Pipeline struct {
	validators []Validator
}

// NewPipeline creates a new validation pipeline
func NewPipeline(validators ...Validator) *Pipeline {
	return &Pipeline{validators: validators}
}

// DefaultPipeline normalizes citations, drops template echoes and finally
// requires at least one recommendation
func DefaultPipeline(maxRecommendations int) *Pipeline {
	return NewPipeline(
		NewCitationValidator(maxRecommendations),
		NewPromptLeakValidator(),
		NewShapeValidator(),
	)
}

// Validate runs all validators and returns the final (possibly corrected) recommendation.
// Corrections are passed on to the next validator.
func (p *Pipeline) Validate(ctx context.Context, input ValidationInput) (*model.Recommendation, error) {
	log := logger.For(ctx)
	log.Debugf("[Pipeline] Validating recommendation for: %s", truncateForLog(input.Query, 50))

	for _, v := range p.validators {
		result := v.Validate(ctx, input)

		if result.IsValid {
			log.Debugf("[Pipeline] %s: PASS", v.Name())
			continue
		}

		if result.Corrected != nil {
			log.Debugf("[Pipeline] %s: CORRECTED - %s", v.Name(), result.Reason)
			input.Recommendation = result.Corrected
			continue
		}

		log.Warnf("[Pipeline] %s: FAIL - %s", v.Name(), result.Reason)
		return nil, &RejectedError{Validator: v.Name(), Reason: result.Reason}
	}

	return input.Recommendation, nil
}
