package chatbot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/chat"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
)

// SessionView is the widget state returned to clients
type SessionView struct {
	SessionID string         `json:"session_id"`
	Open      bool           `json:"open"`
	Awaiting  bool           `json:"awaiting"`
	Messages  []chat.Message `json:"messages"`
}

// ContextInfo describes the snapshot without its contents
type ContextInfo struct {
	Loaded        bool      `json:"loaded"`
	Collections   []string  `json:"collections"`
	DocumentCount int       `json:"document_count"`
	AssembledAt   time.Time `json:"assembled_at"`
}

// Service keeps one chat session per user
type Service struct {
	assembler *ContextAssembler
	responder *Responder
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*chat.Session
}

// NewService creates a chatbot service
func NewService(assembler *ContextAssembler, responder *Responder, logger *zap.Logger) *Service {
	return &Service{
		assembler: assembler,
		responder: responder,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*chat.Session),
	}
}

// RegisterHandlers discards a user's session at sign-out
func (s *Service) RegisterHandlers(bus shared.EventSubscriber) {
	bus.Subscribe(&shared.EventHandlerFunc{
		Types: []string{identity.EventTypeSignedOut},
		Fn: func(_ context.Context, event shared.DomainEvent) error {
			s.Forget(event.AggregateID())
			return nil
		},
	})
}

// Forget drops the user's session and transcript
func (s *Service) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *Service) session(userID string) *chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = chat.NewSession(userID, s.now())
		s.sessions[userID] = sess
	}
	return sess
}

// Open shows the widget and warms the context snapshot.
// A failed warm-up is logged; the widget still opens.
func (s *Service) Open(ctx context.Context, userID string) (*SessionView, error) {
	sess := s.session(userID)
	sess.Open()

	if _, err := s.assembler.Snapshot(ctx); err != nil {
		s.logger.Warn("Chatbot context warm-up failed", zap.String("user_id", userID), zap.Error(err))
	}
	return view(sess), nil
}

// Close hides the widget. The transcript is kept until sign-out.
func (s *Service) Close(_ context.Context, userID string) (*SessionView, error) {
	sess := s.session(userID)
	sess.Close()
	return view(sess), nil
}

// Transcript returns the current widget state
func (s *Service) Transcript(_ context.Context, userID string) (*SessionView, error) {
	return view(s.session(userID)), nil
}

// Send appends the question, resolves an answer and appends it. It returns
// the two new messages. Upstream failures become a bot message, not an error.
func (s *Service) Send(ctx context.Context, userID, question string) ([]chat.Message, error) {
	sess := s.session(userID)
	asked, err := sess.BeginSend(question, s.now())
	if err != nil {
		return nil, err
	}

	snapshot, err := s.assembler.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("Chatbot context unavailable", zap.String("user_id", userID), zap.Error(err))
		snapshot = chat.Snapshot{}
	}
	answer := s.responder.FetchBotResponse(ctx, snapshot, question)

	replied, err := sess.CompleteSend(answer, s.now())
	if err != nil {
		return nil, err
	}
	return []chat.Message{asked, replied}, nil
}

// RefreshContext reassembles the snapshot
func (s *Service) RefreshContext(ctx context.Context) (*ContextInfo, error) {
	snap, err := s.assembler.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return &ContextInfo{
		Loaded:        !snap.IsEmpty(),
		Collections:   snap.Collections,
		DocumentCount: snap.DocumentCount,
		AssembledAt:   snap.AssembledAt,
	}, nil
}

func view(sess *chat.Session) *SessionView {
	visibility, activity := sess.State()
	return &SessionView{
		SessionID: sess.ID().String(),
		Open:      visibility == chat.VisibilityOpen,
		Awaiting:  activity == chat.ActivityAwaiting,
		Messages:  sess.Transcript(),
	}
}
