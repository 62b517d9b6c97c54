// Package sanitize prepares user-provided search text before it is embedded
// in an LLM prompt.
// Reference: OWASP LLM Prompt Injection Prevention Cheat Sheet
// https://cheatsheetseries.owasp.org/cheatsheets/LLM_Prompt_Injection_Prevention_Cheat_Sheet.html
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxQueryLength is the maximum number of runes kept from a query
const MaxQueryLength = 250

// instructionPatterns detects instruction-like content inside a search query
var instructionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(the\s+)?(previous|prior|above)\s+(instructions|rules|prompts?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(the\s+)?(previous|prior|above|system)?\s*(instructions|rules)`),
	regexp.MustCompile(`(?i)system\s*prompt`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+`),
	regexp.MustCompile(`(?i)(developer|debug|jailbreak)\s+mode`),
	regexp.MustCompile(`(?i)</?\s*(system|assistant|user)\s*>`),
}

// Query normalizes the query to NFC, collapses whitespace, caps its length
// and neutralizes instruction-like fragments by wrapping them in 【】 brackets.
// Double quotes are replaced so the query cannot close the quoted prompt field.
func Query(query string) string {
	result := norm.NFC.String(query)
	result = strings.Join(strings.Fields(result), " ")

	runes := []rune(result)
	if len(runes) > MaxQueryLength {
		result = string(runes[:MaxQueryLength])
	}

	result = strings.ReplaceAll(result, `"`, "'")

	for _, pattern := range instructionPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			return "【" + match + "】"
		})
	}
	return result
}
