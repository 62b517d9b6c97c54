package agent

import (
	"context"
	"fmt"
	"net/http"

	"book-discovery/internal/agent/deps"
	"book-discovery/internal/config"

	"google.golang.org/genai"
)

const (
	// DefaultOpenAIModel is used when no model is configured for the openai provider
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultGeminiModel is used when no model is configured for the gemini provider
	DefaultGeminiModel = "gemini-2.5-flash-lite"
)

// NewLLMClient builds the chat-completion backend selected by cfg.Provider.
// It returns ErrNotConfigured when no API key is set.
func NewLLMClient(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (deps.LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		model := cfg.Model
		if model == "" {
			model = DefaultGeminiModel
		}
		clientConfig := &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if httpClient != nil {
			clientConfig.HTTPClient = httpClient
		}
		if cfg.BaseURL != "" {
			clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
		}
		client, err := genai.NewClient(ctx, clientConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		return NewGeminiLLMClient(client, model), nil

	case config.ProviderOpenAI, "":
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		return NewOpenAILLMClient(cfg.APIKey, cfg.BaseURL, model, httpClient), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
