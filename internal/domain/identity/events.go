package identity

import "github.com/crm/backend/internal/domain/shared"

// Aggregate type for authentication events
const AggregateTypeSession = "Session"

// Auth state event types
const (
	EventTypeSignedIn  = "identity.signed_in"
	EventTypeSignedOut = "identity.signed_out"
)

// AuthState is delivered to auth-state listeners
type AuthState struct {
	UserID        string
	Authenticated bool
}

// AuthStateChangedEvent is published on sign-in and sign-out
type AuthStateChangedEvent struct {
	shared.BaseDomainEvent
	UserID        string `json:"user_id"`
	Authenticated bool   `json:"authenticated"`
}

// NewSignedInEvent creates the sign-in event
func NewSignedInEvent(userID string) *AuthStateChangedEvent {
	return &AuthStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSignedIn, AggregateTypeSession, userID),
		UserID:          userID,
		Authenticated:   true,
	}
}

// NewSignedOutEvent creates the sign-out event
func NewSignedOutEvent(userID string) *AuthStateChangedEvent {
	return &AuthStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSignedOut, AggregateTypeSession, userID),
		UserID:          userID,
		Authenticated:   false,
	}
}

// State returns the listener payload
func (e *AuthStateChangedEvent) State() AuthState {
	return AuthState{UserID: e.UserID, Authenticated: e.Authenticated}
}
