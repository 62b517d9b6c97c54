package agent

import (
	"context"
	"errors"
	"strings"

	"book-discovery/internal/agent/deps"

	"google.golang.org/genai"
)

// GeminiLLMClient implements LLMClient using the Gemini API
type GeminiLLMClient struct {
	client *genai.Client
	model  string
}

// NewGeminiLLMClient creates a new GeminiLLMClient
func NewGeminiLLMClient(client *genai.Client, model string) *GeminiLLMClient {
	return &GeminiLLMClient{
		client: client,
		model:  model,
	}
}

// Model returns the configured model name
func (c *GeminiLLMClient) Model() string {
	return c.model
}

// GenerateContent generates content using the Gemini API
func (c *GeminiLLMClient) GenerateContent(ctx context.Context, req deps.CompletionRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature:      genai.Ptr(req.Temperature),
		TopP:             genai.Ptr(req.TopP),
		MaxOutputTokens:  int32(req.MaxTokens),
		ResponseMIMEType: "application/json",
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.UserPrompt}},
		},
	}, config)
	if err != nil {
		return "", err
	}

	// Extract text from response
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}

	return "", errors.New("gemini returned no text")
}
