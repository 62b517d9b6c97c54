package prompt

import (
	"fmt"

	"book-discovery/internal/agent/sanitize"
)

const (
	// MinRecommendations is the lower bound requested from the model
	MinRecommendations = 5
	// MaxRecommendations is the upper bound requested from the model
	MaxRecommendations = 8
)

// Builder constructs prompts for the recommendation call
type Builder struct {
	systemPrompt string
}

// NewBuilder creates a new prompt builder
func NewBuilder() *Builder {
	return &Builder{
		systemPrompt: fmt.Sprintf(SystemPromptRecommend, MinRecommendations, MaxRecommendations),
	}
}

// BuildSystemPrompt returns the fixed system prompt
func (b *Builder) BuildSystemPrompt() string {
	return b.systemPrompt
}

// BuildUserPrompt embeds the sanitized query in the user prompt
func (b *Builder) BuildUserPrompt(query string) string {
	return fmt.Sprintf(UserPromptRecommend, sanitize.Query(query))
}
