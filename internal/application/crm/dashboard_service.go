package crm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/shared"
)

// Widget defaults
const (
	DefaultRiskLimit   = 5
	DefaultReviewLimit = 5
)

// Counts is the record count widget
type Counts struct {
	Customers    int `json:"customers"`
	Contacts     int `json:"contacts"`
	Interactions int `json:"interactions"`
}

// Summary holds every dashboard widget. Widgets are loaded independently.
type Summary struct {
	Counts          Counts               `json:"counts"`
	CustomerRisk    []crm.CustomerRisk   `json:"customer_risk"`
	Sentiment       crm.SentimentCounts  `json:"sentiment"`
	SentimentTrends []crm.SentimentTrend `json:"sentiment_trends"`
	RecentReviews   []crm.RecentReview   `json:"recent_reviews"`
	Revenue         crm.RevenueSummary   `json:"revenue"`
}

// DashboardService computes the read-only dashboard aggregations
type DashboardService struct {
	store  document.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService creates a dashboard service
func NewDashboardService(store document.Store, logger *zap.Logger) *DashboardService {
	return &DashboardService{store: store, logger: logger, now: time.Now}
}

// Counts returns the number of customers, contacts and interactions
func (s *DashboardService) Counts(ctx context.Context) (*Counts, error) {
	var (
		out Counts
		g   errgroup.Group
	)
	targets := map[string]*int{
		document.CollectionCustomers:    &out.Customers,
		document.CollectionContacts:     &out.Contacts,
		document.CollectionInteractions: &out.Interactions,
	}
	for collection, dst := range targets {
		g.Go(func() error {
			n, err := document.Count(ctx, s.store, collection)
			if err != nil {
				return s.fail(collection, err)
			}
			*dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// CustomerRisk ranks customers by churn risk and returns the top limit
func (s *DashboardService) CustomerRisk(ctx context.Context, limit int) ([]crm.CustomerRisk, error) {
	if limit <= 0 {
		limit = DefaultRiskLimit
	}
	customers, err := s.customers(ctx)
	if err != nil {
		return nil, err
	}
	return crm.RankCustomerRisk(customers, s.now(), limit), nil
}

// OverallSentiment counts positive, neutral and negative reviews
func (s *DashboardService) OverallSentiment(ctx context.Context) (*crm.SentimentCounts, error) {
	docs, err := s.interactions(ctx)
	if err != nil {
		return nil, err
	}
	counts := crm.CountSentiments(docs)
	return &counts, nil
}

// SentimentTrends returns per-date sentiment counts, newest first
func (s *DashboardService) SentimentTrends(ctx context.Context) ([]crm.SentimentTrend, error) {
	docs, err := s.interactions(ctx)
	if err != nil {
		return nil, err
	}
	return crm.SentimentTrends(docs), nil
}

// RecentReviews returns the latest classified interactions
func (s *DashboardService) RecentReviews(ctx context.Context, limit int) ([]crm.RecentReview, error) {
	if limit <= 0 {
		limit = DefaultReviewLimit
	}
	docs, err := s.interactions(ctx)
	if err != nil {
		return nil, err
	}
	return crm.RecentReviews(docs, limit), nil
}

// RevenueSummary totals customer revenue
func (s *DashboardService) RevenueSummary(ctx context.Context) (*crm.RevenueSummary, error) {
	customers, err := s.customers(ctx)
	if err != nil {
		return nil, err
	}
	summary := crm.SummarizeRevenue(customers)
	return &summary, nil
}

// Summary loads every widget concurrently. Widgets may observe slightly
// different store states.
func (s *DashboardService) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.Counts(gctx)
		if err == nil {
			out.Counts = *counts
		}
		return err
	})
	g.Go(func() error {
		risk, err := s.CustomerRisk(gctx, DefaultRiskLimit)
		out.CustomerRisk = risk
		return err
	})
	g.Go(func() error {
		revenue, err := s.RevenueSummary(gctx)
		if err == nil {
			out.Revenue = *revenue
		}
		return err
	})
	g.Go(func() error {
		docs, err := s.interactions(gctx)
		if err != nil {
			return err
		}
		out.Sentiment = crm.CountSentiments(docs)
		out.SentimentTrends = crm.SentimentTrends(docs)
		out.RecentReviews = crm.RecentReviews(docs, DefaultReviewLimit)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *DashboardService) customers(ctx context.Context) ([]crm.CustomerView, error) {
	docs, err := s.store.List(ctx, document.CollectionCustomers)
	if err != nil {
		return nil, s.fail(document.CollectionCustomers, err)
	}
	out := make([]crm.CustomerView, 0, len(docs))
	for _, doc := range docs {
		out = append(out, crm.NewCustomerView(doc))
	}
	return out, nil
}

func (s *DashboardService) interactions(ctx context.Context) ([]document.Document, error) {
	docs, err := s.store.List(ctx, document.CollectionInteractions)
	if err != nil {
		return nil, s.fail(document.CollectionInteractions, err)
	}
	return docs, nil
}

func (s *DashboardService) fail(collection string, err error) error {
	s.logger.Error("Dashboard query failed", zap.String("collection", collection), zap.Error(err))
	return shared.WrapDomainError("INTERNAL_ERROR", "Failed to load dashboard data", err)
}
