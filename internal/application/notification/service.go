// Package notification reconciles the notification panel with the per-user
// read marker and keeps the unread badge consistent with it.
package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/notification"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/telemetry"
)

// Service errors
var (
	ErrPanelNotOpen    = shared.NewDomainError("INVALID_STATE", "Notification panel is not open")
	ErrUnknownPriority = shared.NewDomainError("INVALID_INPUT", "Priority must be one of: very low, low, medium, high, very high")
)

// Service owns the per-user panel state
type Service struct {
	store      document.Store
	markers    notification.ReadMarkerStore
	collection string
	metrics    *telemetry.CRMMetrics
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.Mutex
	panels map[string]*notification.Panel
}

// NewService creates a notification service reading from collection
func NewService(
	store document.Store,
	markers notification.ReadMarkerStore,
	collection string,
	metrics *telemetry.CRMMetrics,
	logger *zap.Logger,
) *Service {
	if collection == "" {
		collection = document.CollectionNotifications
	}
	return &Service{
		store:      store,
		markers:    markers,
		collection: collection,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		panels:     make(map[string]*notification.Panel),
	}
}

// RegisterHandlers drops panel state when its owner signs out
func (s *Service) RegisterHandlers(bus shared.EventSubscriber) {
	bus.Subscribe(&shared.EventHandlerFunc{
		Types: []string{identity.EventTypeSignedOut},
		Fn: func(_ context.Context, event shared.DomainEvent) error {
			s.Forget(event.AggregateID())
			return nil
		},
	})
}

// Forget discards a user's panel
func (s *Service) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.panels, userID)
}

func (s *Service) panel(userID string) *notification.Panel {
	p, ok := s.panels[userID]
	if !ok {
		p = notification.NewPanel()
		s.panels[userID] = p
	}
	return p
}

func (s *Service) fetch(ctx context.Context) ([]notification.Notification, error) {
	docs, err := s.store.List(ctx, s.collection)
	if err != nil {
		s.logger.Error("Failed to fetch notifications", zap.String("collection", s.collection), zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to load notifications", err)
	}
	return notification.FromDocuments(docs), nil
}

func (s *Service) marker(ctx context.Context, userID string) (notification.ReadMarker, error) {
	m, err := s.markers.Get(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to read notification marker", zap.String("user_id", userID), zap.Error(err))
		return notification.ReadMarker{}, shared.WrapDomainError("INTERNAL_ERROR", "Failed to load read marker", err)
	}
	return m, nil
}

// OpenPanel fetches the full notification set once and shows it.
// Opening an already open panel refetches.
func (s *Service) OpenPanel(ctx context.Context, userID string) (*PanelView, error) {
	ns, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	marker, err := s.marker(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	p := s.panel(userID)
	p.Mount(ns, s.now())
	view := s.render(p, marker)
	s.mu.Unlock()

	s.logger.Debug("Notification panel opened",
		zap.String("user_id", userID),
		zap.Int("count", len(ns)),
		zap.Int("unread", view.UnreadCount))
	return view, nil
}

// PanelView renders the open panel. An empty minPriority keeps the current filter.
func (s *Service) PanelView(ctx context.Context, userID, minPriority string) (*PanelView, error) {
	marker, err := s.marker(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.panels[userID]
	if !ok || !p.Open {
		return nil, ErrPanelNotOpen
	}
	if strings.TrimSpace(minPriority) != "" {
		p.SetFilter(notification.ParsePriority(minPriority))
	}
	return s.render(p, marker), nil
}

// SetFilter changes the minimum priority shown. The unread count is unaffected.
func (s *Service) SetFilter(_ context.Context, userID, minPriority string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.panels[userID]
	if !ok || !p.Open {
		return ErrPanelNotOpen
	}
	p.SetFilter(notification.ParsePriority(minPriority))
	return nil
}

// ClosePanel advances the read marker past every notification the panel
// showed, then hides it. Closing a closed panel changes nothing. When the
// marker cannot be saved the panel stays open so the close can be retried.
func (s *Service) ClosePanel(ctx context.Context, userID string) (*UnreadResult, error) {
	s.mu.Lock()
	p, ok := s.panels[userID]
	var (
		next time.Time
		open bool
	)
	if ok {
		next, open = p.CloseMarker(s.now())
	}
	s.mu.Unlock()

	if !open {
		return s.UnreadCount(ctx, userID)
	}

	current, err := s.marker(ctx, userID)
	if err != nil {
		return nil, err
	}
	// never move the marker backwards
	if current.IsSet() && current.LastReadTime.After(next) {
		next = *current.LastReadTime
	}
	if err := s.markers.Set(ctx, userID, next); err != nil {
		s.logger.Error("Failed to persist notification marker", zap.String("user_id", userID), zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to save read marker", err)
	}

	s.mu.Lock()
	if s.panels[userID] == p {
		p.Open = false
	}
	s.mu.Unlock()
	s.metrics.PanelClosed(ctx)

	s.logger.Debug("Notification panel closed",
		zap.String("user_id", userID),
		zap.Time("last_read_time", next))
	return &UnreadResult{UnreadCount: 0, LastReadTime: &next}, nil
}

// UnreadCount compares the current full set against the persisted marker
func (s *Service) UnreadCount(ctx context.Context, userID string) (*UnreadResult, error) {
	ns, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	marker, err := s.marker(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UnreadResult{
		UnreadCount:  notification.UnreadCount(ns, marker),
		LastReadTime: marker.LastReadTime,
	}, nil
}

// Publish stores a new notification. Notifications are never modified afterwards.
func (s *Service) Publish(ctx context.Context, input PublishInput) (*NotificationResponse, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Title cannot be empty")
	}
	priority := notification.ParsePriority(input.Priority)
	if !priority.IsKnown() {
		return nil, ErrUnknownPriority
	}
	at := s.now().UTC()
	if input.Time != nil && !input.Time.IsZero() {
		at = input.Time.UTC()
	}

	n := notification.Notification{
		Title:    title,
		Body:     strings.TrimSpace(input.Body),
		Priority: priority,
		Time:     at,
	}
	doc, err := s.store.Create(ctx, s.collection, "", n.ToFields())
	if err != nil {
		s.logger.Error("Failed to publish notification", zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to publish notification", err)
	}
	n.ID = doc.ID
	n.RawPriority = priority.String()

	s.logger.Info("Notification published",
		zap.String("notification_id", n.ID),
		zap.String("priority", priority.String()))
	resp := toResponse(n, notification.ReadMarker{})
	return &resp, nil
}

// render must be called with s.mu held
func (s *Service) render(p *notification.Panel, marker notification.ReadMarker) *PanelView {
	visible := p.Visible()
	rows := make([]NotificationResponse, 0, len(visible))
	for _, n := range visible {
		rows = append(rows, toResponse(n, marker))
	}
	return &PanelView{
		Open:          p.Open,
		Notifications: rows,
		UnreadCount:   notification.UnreadCount(p.Notifications, marker),
		LastReadTime:  marker.LastReadTime,
		MinPriority:   p.MinPriority.String(),
		Options:       notification.Options(),
	}
}
