package chatbot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/chat"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
)

// Responder turns a question into exactly one bot reply. It never fails:
// every error is mapped to a fixed message.
type Responder struct {
	generator    chat.TextGenerator
	instructions string
	metrics      *telemetry.CRMMetrics
	logger       *zap.Logger
}

// NewResponder creates a responder. Empty instructions use chat.DefaultInstructions.
func NewResponder(generator chat.TextGenerator, instructions string, metrics *telemetry.CRMMetrics, logger *zap.Logger) *Responder {
	if instructions == "" {
		instructions = chat.DefaultInstructions
	}
	return &Responder{
		generator:    generator,
		instructions: instructions,
		metrics:      metrics,
		logger:       logger,
	}
}

// FetchBotResponse answers question from snapshot
func (r *Responder) FetchBotResponse(ctx context.Context, snapshot chat.Snapshot, question string) string {
	if snapshot.IsEmpty() {
		r.metrics.ChatbotOutcome(ctx, telemetry.OutcomeNotLoaded)
		return chat.NotLoadedMessage
	}

	answer, err := r.generator.Generate(ctx, chat.BuildPrompt(r.instructions, snapshot.Blob, question))
	if err != nil {
		logger.For(ctx, r.logger).Error("Chatbot generation failed", zap.Error(err))
		r.metrics.ChatbotOutcome(ctx, telemetry.OutcomeError)
		return chat.ErrorMessage
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		r.metrics.ChatbotOutcome(ctx, telemetry.OutcomeNoResponse)
		return chat.NoResponseMessage
	}
	r.metrics.ChatbotOutcome(ctx, telemetry.OutcomeAnswered)
	return answer
}
