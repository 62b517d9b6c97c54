package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"book-discovery/internal/logger"
)

// PromptLeakValidator drops citations that echo the prompt template instead of naming a book
type PromptLeakValidator struct {
	// sensitivePatterns are regex patterns that indicate the template was echoed
	sensitivePatterns []*regexp.Regexp
	// sensitiveKeywords are exact keywords that should not appear in a citation
	sensitiveKeywords []string
}

// NewPromptLeakValidator creates a new PromptLeakValidator
func NewPromptLeakValidator() *PromptLeakValidator {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`<\s*(title|author|co-author)\s*>`),
		regexp.MustCompile(`(?i)^\s*(book\s*)?title\s+by\s+author\s*$`),
		regexp.MustCompile(`(?i)\b(enhancedQuery|searchTerms|recommendations)\b\s*:`),
	}

	keywords := []string{
		"expert librarian",
		"json object",
		"reader's request",
	}

	return &PromptLeakValidator{
		sensitivePatterns: patterns,
		sensitiveKeywords: keywords,
	}
}

// Name returns the validator name
func (v *PromptLeakValidator) Name() string {
	return "PromptLeakValidator"
}

// Validate removes leaked citations; it fails only when nothing is left
func (v *PromptLeakValidator) Validate(ctx context.Context, input ValidationInput) ValidationResult {
	rec := input.Recommendation
	if rec == nil {
		return OK()
	}

	kept := make([]string, 0, len(rec.Recommendations))
	for _, citation := range rec.Recommendations {
		if v.leaks(citation) {
			logger.For(ctx).Warnf("[%s] LEAK DETECTED: %s", v.Name(), truncateForLog(citation, 50))
			continue
		}
		kept = append(kept, citation)
	}

	if len(kept) == len(rec.Recommendations) {
		return OK()
	}
	if len(kept) == 0 {
		return Fail("every citation echoed the prompt template")
	}

	corrected := cloneRecommendation(rec)
	corrected.Recommendations = kept
	return FailWithCorrection(
		fmt.Sprintf("dropped %d leaked citation(s)", len(rec.Recommendations)-len(kept)),
		corrected,
	)
}

func (v *PromptLeakValidator) leaks(citation string) bool {
	for _, pattern := range v.sensitivePatterns {
		if pattern.MatchString(citation) {
			return true
		}
	}
	lower := strings.ToLower(citation)
	for _, keyword := range v.sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
