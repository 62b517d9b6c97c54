package validation

import (
	"context"
	"fmt"
	"strings"
)

// CitationValidator trims, deduplicates and caps the recommendation list and search terms
type CitationValidator struct {
	maxRecommendations int
}

// NewCitationValidator creates a validator keeping at most maxRecommendations citations.
// A non-positive limit keeps all of them.
func NewCitationValidator(maxRecommendations int) *CitationValidator {
	return &CitationValidator{maxRecommendations: maxRecommendations}
}

func (v *CitationValidator) Name() string {
	return "CitationValidator"
}

func (v *CitationValidator) Validate(ctx context.Context, input ValidationInput) ValidationResult {
	rec := input.Recommendation
	if rec == nil {
		return OK()
	}

	recs := deduplicateTrimmed(rec.Recommendations)
	if v.maxRecommendations > 0 && len(recs) > v.maxRecommendations {
		recs = recs[:v.maxRecommendations]
	}
	terms := deduplicateTrimmed(rec.SearchTerms)
	enhanced := strings.TrimSpace(rec.EnhancedQuery)

	if equalStrings(recs, rec.Recommendations) && equalStrings(terms, rec.SearchTerms) && enhanced == rec.EnhancedQuery {
		return OK()
	}

	corrected := cloneRecommendation(rec)
	corrected.Recommendations = recs
	corrected.SearchTerms = terms
	corrected.EnhancedQuery = enhanced
	return FailWithCorrection(
		fmt.Sprintf("normalized %d citation(s) to %d", len(rec.Recommendations), len(recs)),
		corrected,
	)
}

// deduplicateTrimmed trims entries, drops empty ones and removes
// case-insensitive duplicates while preserving order
func deduplicateTrimmed(input []string) []string {
	seen := make(map[string]bool, len(input))
	result := make([]string, 0, len(input))
	for _, s := range input {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			result = append(result, s)
		}
	}
	return result
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
