package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/chat"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/telemetry"
)

// Providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// NewTextGenerator builds the configured provider client wrapped with tracing and metrics
func NewTextGenerator(cfg config.LLMConfig, log *zap.Logger, metrics *telemetry.CRMMetrics) (chat.TextGenerator, error) {
	client := NewRestyClient("llm-"+cfg.Provider, cfg.Timeout, log)

	var gen chat.TextGenerator
	switch cfg.Provider {
	case ProviderOpenAI:
		gen = NewOpenAIClient(client, OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	case ProviderGemini:
		gen = NewGeminiClient(client, cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}

	return &instrumented{next: gen, provider: cfg.Provider, model: cfg.Model, metrics: metrics}, nil
}

type instrumented struct {
	next     chat.TextGenerator
	provider string
	model    string
	metrics  *telemetry.CRMMetrics
}

func (g *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "llm", "generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", g.provider),
		attribute.String("llm.model", g.model),
		attribute.Int("llm.prompt_chars", len(prompt)),
	)

	start := time.Now()
	out, err := g.next.Generate(ctx, prompt)
	g.metrics.LLMRequest(ctx, g.provider, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}
