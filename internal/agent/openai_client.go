package agent

import (
	"context"
	"errors"
	"net/http"

	"book-discovery/internal/agent/deps"

	"github.com/sashabaranov/go-openai"
)

// OpenAILLMClient implements LLMClient against any OpenAI-compatible chat-completion endpoint
type OpenAILLMClient struct {
	client *openai.Client
	model  string
}

// NewOpenAILLMClient creates a client; an empty baseURL uses the OpenAI default
func NewOpenAILLMClient(apiKey, baseURL, model string, httpClient *http.Client) *OpenAILLMClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAILLMClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Model returns the configured model name
func (c *OpenAILLMClient) Model() string {
	return c.model
}

// GenerateContent sends the system and user prompts and returns the first choice's text
func (c *OpenAILLMClient) GenerateContent(ctx context.Context, req deps.CompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
