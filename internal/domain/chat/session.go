package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crm/backend/internal/domain/shared"
)

// Session errors
var (
	ErrEmptyQuestion    = shared.NewDomainError("INVALID_INPUT", "Question must not be empty")
	ErrWidgetClosed     = shared.NewDomainError("INVALID_STATE", "Chat widget is closed")
	ErrAwaitingResponse = shared.NewDomainError("CONFLICT", "A response is already pending")
	ErrNotAwaiting      = shared.NewDomainError("INVALID_STATE", "No response is pending")
)

// Visibility is the widget's open/closed state
type Visibility string

// Visibility values
const (
	VisibilityClosed Visibility = "closed"
	VisibilityOpen   Visibility = "open"
)

// Activity is the per-message state while the widget is in use
type Activity string

// Activity values
const (
	ActivityIdle     Activity = "idle"
	ActivityAwaiting Activity = "awaiting"
)

// Session is one user's chat widget instance. All methods are safe for
// concurrent use; at most one send is outstanding at a time.
type Session struct {
	mu         sync.Mutex
	id         uuid.UUID
	userID     string
	visibility Visibility
	activity   Activity
	messages   []Message
	createdAt  time.Time
}

// NewSession returns a closed, idle session
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		id:         uuid.New(),
		userID:     userID,
		visibility: VisibilityClosed,
		activity:   ActivityIdle,
		createdAt:  now,
	}
}

// ID returns the session id
func (s *Session) ID() uuid.UUID { return s.id }

// UserID returns the owner
func (s *Session) UserID() string { return s.userID }

// Open shows the widget
func (s *Session) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visibility = VisibilityOpen
}

// Close hides the widget. A pending response is still delivered.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visibility = VisibilityClosed
}

// State returns the current visibility and activity
func (s *Session) State() (Visibility, Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibility, s.activity
}

// BeginSend appends the user's message and moves to awaiting
func (s *Session) BeginSend(question string, now time.Time) (Message, error) {
	if strings.TrimSpace(question) == "" {
		return Message{}, ErrEmptyQuestion
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visibility != VisibilityOpen {
		return Message{}, ErrWidgetClosed
	}
	if s.activity == ActivityAwaiting {
		return Message{}, ErrAwaitingResponse
	}
	msg := newMessage(RoleUser, question, now)
	s.messages = append(s.messages, msg)
	s.activity = ActivityAwaiting
	return msg, nil
}

// CompleteSend appends the bot's answer and returns to idle
func (s *Session) CompleteSend(answer string, now time.Time) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activity != ActivityAwaiting {
		return Message{}, ErrNotAwaiting
	}
	msg := newMessage(RoleBot, answer, now)
	s.messages = append(s.messages, msg)
	s.activity = ActivityIdle
	return msg, nil
}

// Transcript returns a copy of the messages in send order
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
