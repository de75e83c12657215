package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"
)

// OpenAIClient calls an OpenAI-compatible /chat/completions endpoint
type OpenAIClient struct {
	client      *resty.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float32
}

// OpenAIConfig holds the request parameters
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewOpenAIClient creates a client on an existing resty client
func NewOpenAIClient(client *resty.Client, cfg OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		client:      client,
		baseURL:     normalizeBaseURL(cfg.BaseURL),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Generate sends the prompt as a single user message and returns the first choice
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var respBody openai.ChatCompletionResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(request).
		SetResult(&respBody).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		return "", &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if len(respBody.Choices) == 0 {
		return "", nil
	}
	return respBody.Choices[0].Message.Content, nil
}
