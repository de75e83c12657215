package crm

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/chat"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/shared"
)

// Analysis errors
var (
	ErrNothingToAnalyze   = shared.NewDomainError("INVALID_STATE", "Interaction has no notes to analyze")
	ErrUnusableModelReply = shared.NewDomainError("UPSTREAM_ERROR", "Model reply did not contain a classification")
)

// AnalysisReport summarizes a batch classification pass
type AnalysisReport struct {
	Pending    int      `json:"pending"`
	Classified int      `json:"classified"`
	Skipped    []string `json:"skipped"`
}

// AnalysisService classifies interaction notes as positive, neutral or negative reviews
type AnalysisService struct {
	store     document.Store
	generator chat.TextGenerator
	events    shared.EventPublisher
	logger    *zap.Logger
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(store document.Store, generator chat.TextGenerator, events shared.EventPublisher, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		store:     store,
		generator: generator,
		events:    events,
		logger:    logger,
	}
}

// AnalyzeInteraction classifies one interaction and stores the result on it
func (s *AnalysisService) AnalyzeInteraction(ctx context.Context, id string) (*crm.InteractionView, error) {
	doc, err := s.store.Get(ctx, document.CollectionInteractions, id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "interaction "+id+" not found")
		}
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to load interaction", err)
	}
	notes := doc.String("notes")
	if notes == "" {
		return nil, ErrNothingToAnalyze
	}

	results, err := s.classify(ctx, []crm.ReviewItem{{ID: id, Notes: notes}})
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, document.CollectionInteractions, id, document.Fields{
		crm.ClassificationField: results[0].ToFields(),
	})
	if err != nil {
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to store classification", err)
	}
	s.publish(ctx, id)

	s.logger.Info("Interaction classified",
		zap.String("interaction_id", id),
		zap.String("classification", results[0].Label))
	view := crm.NewInteractionView(*updated)
	return &view, nil
}

// AnalyzePending classifies every interaction without a classification in
// one batched request. Results for unknown ids are ignored.
func (s *AnalysisService) AnalyzePending(ctx context.Context) (*AnalysisReport, error) {
	docs, err := s.store.List(ctx, document.CollectionInteractions)
	if err != nil {
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to load interactions", err)
	}

	pending := make(map[string]struct{})
	items := make([]crm.ReviewItem, 0)
	for _, doc := range docs {
		if _, done := crm.ClassificationOf(doc); done {
			continue
		}
		notes := doc.String("notes")
		if notes == "" {
			continue
		}
		pending[doc.ID] = struct{}{}
		items = append(items, crm.ReviewItem{ID: doc.ID, Notes: notes})
	}
	report := &AnalysisReport{Pending: len(items), Skipped: []string{}}
	if len(items) == 0 {
		return report, nil
	}

	results, err := s.classify(ctx, items)
	if err != nil {
		return nil, err
	}

	for _, c := range results {
		if _, ok := pending[c.ID]; !ok {
			s.logger.Warn("Classification for unknown interaction ignored", zap.String("interaction_id", c.ID))
			continue
		}
		if _, err := s.store.Update(ctx, document.CollectionInteractions, c.ID, document.Fields{
			crm.ClassificationField: c.ToFields(),
		}); err != nil {
			s.logger.Error("Failed to store classification", zap.String("interaction_id", c.ID), zap.Error(err))
			continue
		}
		delete(pending, c.ID)
		report.Classified++
		s.publish(ctx, c.ID)
	}
	for _, item := range items {
		if _, left := pending[item.ID]; left {
			report.Skipped = append(report.Skipped, item.ID)
		}
	}

	s.logger.Info("Pending interactions classified",
		zap.Int("pending", report.Pending),
		zap.Int("classified", report.Classified))
	return report, nil
}

func (s *AnalysisService) classify(ctx context.Context, items []crm.ReviewItem) ([]crm.Classification, error) {
	prompt, err := crm.BuildClassificationPrompt(items)
	if err != nil {
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to build classification prompt", err)
	}
	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("Classification request failed", zap.Int("items", len(items)), zap.Error(err))
		return nil, shared.WrapDomainError("UPSTREAM_ERROR", "Classification service unavailable", err)
	}
	results, err := crm.ParseClassifications(reply)
	if err != nil {
		s.logger.Warn("Unusable classification reply", zap.Error(err))
		return nil, ErrUnusableModelReply
	}
	// a single review may come back without its id
	if len(items) == 1 && results[0].ID == "" {
		results[0].ID = items[0].ID
	}
	return results, nil
}

func (s *AnalysisService) publish(ctx context.Context, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, document.NewChangedEvent(document.CollectionInteractions, id, document.OpUpdate)); err != nil {
		s.logger.Warn("Failed to publish document change", zap.String("id", id), zap.Error(err))
	}
}
