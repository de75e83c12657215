package llm

import (
	"context"
	"fmt"
	"net/url"

	"resty.dev/v3"
)

// The key travels in a header so request URLs, and errors quoting them, never carry it
const geminiKeyHeader = "x-goog-api-key"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	// Older deployments answer with a flat output field
	Output string `json:"output"`
}

// GeminiClient calls the generateContent endpoint of a Gemini-style API
type GeminiClient struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	model   string
}

// NewGeminiClient creates a client on an existing resty client
func NewGeminiClient(client *resty.Client, baseURL, apiKey, model string) *GeminiClient {
	return &GeminiClient{
		client:  client,
		baseURL: normalizeBaseURL(baseURL),
		apiKey:  apiKey,
		model:   model,
	}
}

// Generate sends the prompt as one content part and returns the first candidate text
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	request := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	var respBody geminiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(geminiKeyHeader, c.apiKey).
		SetBody(request).
		SetResult(&respBody).
		Post(c.baseURL + "/models/" + url.PathEscape(c.model) + ":generateContent")
	if err != nil {
		return "", fmt.Errorf("generate content request: %w", err)
	}
	if resp.IsError() {
		return "", &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	if len(respBody.Candidates) > 0 && len(respBody.Candidates[0].Content.Parts) > 0 {
		return respBody.Candidates[0].Content.Parts[0].Text, nil
	}
	return respBody.Output, nil
}
