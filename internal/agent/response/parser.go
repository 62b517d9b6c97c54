package response

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"book-discovery/internal/model"
)

// fencedBlockRegex matches the first ``` fenced block, with or without a language tag
var fencedBlockRegex = regexp.MustCompile("(?s)```[a-zA-Z]*[ \\t]*\\r?\\n?(.*?)```")

// ParseError reports an LLM reply that is not a Recommendation JSON object
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable recommendation reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractJSON returns the content of the first fenced block in text, or the
// trimmed text itself when there is no fence
func ExtractJSON(text string) string {
	matches := fencedBlockRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return strings.TrimSpace(text)
}

// Parse decodes the reply text into a Recommendation
func Parse(text string) (*model.Recommendation, error) {
	payload := ExtractJSON(text)
	if payload == "" {
		return nil, &ParseError{Raw: text, Err: fmt.Errorf("empty reply")}
	}

	var rec model.Recommendation
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, &ParseError{Raw: text, Err: err}
	}
	return &rec, nil
}
