package deps

import (
	"context"

	"book-discovery/internal/model"
)

// CompletionRequest is a single system+user chat-completion call
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	TopP         float32
	MaxTokens    int
}

// LLMClient abstracts the chat-completion backend
type LLMClient interface {
	GenerateContent(ctx context.Context, req CompletionRequest) (string, error)
	// Model returns the model name used for logging
	Model() string
}

// RecommendationCache abstracts the short-lived recommendation store
type RecommendationCache interface {
	Get(query string) (model.Recommendation, bool)
	Put(query string, rec model.Recommendation)
	Clear()
}
