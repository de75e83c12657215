package document

import "github.com/crm/backend/internal/domain/shared"

// EventTypeChanged is published after any write through the record service
const EventTypeChanged = "document.changed"

// Change operations
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangedEvent reports a write to a collection
type ChangedEvent struct {
	shared.BaseDomainEvent
	Collection string `json:"collection"`
	Operation  string `json:"operation"`
}

// NewChangedEvent creates a ChangedEvent
func NewChangedEvent(collection, id, op string) *ChangedEvent {
	return &ChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChanged, collection, id),
		Collection:      collection,
		Operation:       op,
	}
}
