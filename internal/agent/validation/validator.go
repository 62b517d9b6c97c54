package validation

import (
	"context"

	"book-discovery/internal/model"
)

// ValidationInput contains all data needed for validation
type ValidationInput struct {
	Query          string
	Recommendation *model.Recommendation
}

// ValidationResult is the outcome of a validation
type ValidationResult struct {
	IsValid   bool
	Reason    string
	Corrected *model.Recommendation // Non-nil if the validator repaired the recommendation
}

// OK returns a successful validation result
func OK() ValidationResult {
	return ValidationResult{IsValid: true}
}

// Fail returns a failed validation result that rejects the reply
func Fail(reason string) ValidationResult {
	return ValidationResult{IsValid: false, Reason: reason}
}

// FailWithCorrection returns a failed validation result with a repaired recommendation
func FailWithCorrection(reason string, corrected *model.Recommendation) ValidationResult {
	return ValidationResult{IsValid: false, Reason: reason, Corrected: corrected}
}

// Validator is the interface for validation rules
type Validator interface {
	// Name returns the validator's name for logging
	Name() string
	// Validate checks the recommendation and returns a validation result
	Validate(ctx context.Context, input ValidationInput) ValidationResult
}

// truncateForLog truncates a string for logging purposes
func truncateForLog(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}

func cloneRecommendation(rec *model.Recommendation) *model.Recommendation {
	out := &model.Recommendation{EnhancedQuery: rec.EnhancedQuery}
	out.Recommendations = append([]string(nil), rec.Recommendations...)
	out.SearchTerms = append([]string(nil), rec.SearchTerms...)
	return out
}
