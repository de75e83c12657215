package document

import (
	"context"

	"github.com/crm/backend/internal/domain/shared"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = shared.NewDomainError("NOT_FOUND", "Document not found")

// Store is the data-provider contract. Implementations surface provider
// errors opaquely (wrapped) except for a missing document, which is always ErrNotFound.
type Store interface {
	// List returns every document in the collection
	List(ctx context.Context, collection string) ([]Document, error)
	// Get returns one document
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Create stores a new document. An empty id lets the store generate one.
	Create(ctx context.Context, collection, id string, fields Fields) (*Document, error)
	// Update merges fields into an existing document
	Update(ctx context.Context, collection, id string, fields Fields) (*Document, error)
	// Delete removes a document
	Delete(ctx context.Context, collection, id string) error
}

// Count returns the number of documents in a collection
func Count(ctx context.Context, store Store, collection string) (int, error) {
	docs, err := store.List(ctx, collection)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
