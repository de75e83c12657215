// Package firestore implements the document store on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/config"
)

// ErrDocumentExists is returned when creating a document with an id already in use
var ErrDocumentExists = shared.NewDomainError("ALREADY_EXISTS", "Document already exists")

// Store implements document.Store on Firestore collections
type Store struct {
	client *gcfirestore.Client
}

// NewClient connects to Firestore. When FIRESTORE_EMULATOR_HOST is set the
// client library talks to the emulator and credentials are not needed.
func NewClient(ctx context.Context, cfg *config.StoreConfig) (*gcfirestore.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcfirestore.NewClientWithDatabase(ctx, cfg.FirestoreProjectID, cfg.FirestoreDatabaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

// NewStore creates a Store over an existing client
func NewStore(client *gcfirestore.Client) *Store {
	return &Store{client: client}
}

// List returns every document in the collection
func (s *Store) List(ctx context.Context, collection string) ([]document.Document, error) {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	var docs []document.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		docs = append(docs, fromSnapshot(collection, snap))
	}
	return docs, nil
}

// Get returns one document
func (s *Store) Get(ctx context.Context, collection, id string) (*document.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err, collection, id, "get")
	}
	doc := fromSnapshot(collection, snap)
	return &doc, nil
}

// Create stores a new document; an empty id lets Firestore generate one
func (s *Store) Create(ctx context.Context, collection, id string, fields document.Fields) (*document.Document, error) {
	coll := s.client.Collection(collection)
	ref := coll.NewDoc()
	if id != "" {
		ref = coll.Doc(id)
	}
	wr, err := ref.Create(ctx, map[string]any(fields))
	if err != nil {
		return nil, translate(err, collection, ref.ID, "create")
	}
	return &document.Document{
		ID:         ref.ID,
		Collection: collection,
		Fields:     fields,
		CreatedAt:  wr.UpdateTime,
		UpdatedAt:  wr.UpdateTime,
	}, nil
}

// Update merges top-level fields into an existing document.
// A nil value deletes the field.
func (s *Store) Update(ctx context.Context, collection, id string, fields document.Fields) (*document.Document, error) {
	ref := s.client.Collection(collection).Doc(id)
	updates := make([]gcfirestore.Update, 0, len(fields))
	for k, v := range fields {
		if v == nil {
			v = gcfirestore.Delete
		}
		updates = append(updates, gcfirestore.Update{FieldPath: gcfirestore.FieldPath{k}, Value: v})
	}
	if len(updates) > 0 {
		if _, err := ref.Update(ctx, updates); err != nil {
			return nil, translate(err, collection, id, "update")
		}
	}
	return s.Get(ctx, collection, id)
}

// Delete removes a document that must exist
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx, gcfirestore.Exists); err != nil {
		return translate(err, collection, id, "delete")
	}
	return nil
}

// Ping verifies the connection by reading a single document reference
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	iter := s.client.Collections(ctx)
	_, err := iter.Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

// Close releases the client
func (s *Store) Close() error {
	return s.client.Close()
}

func fromSnapshot(collection string, snap *gcfirestore.DocumentSnapshot) document.Document {
	return document.Document{
		ID:         snap.Ref.ID,
		Collection: collection,
		Fields:     document.Fields(snap.Data()),
		CreatedAt:  snap.CreateTime,
		UpdatedAt:  snap.UpdateTime,
	}
}

func translate(err error, collection, id, op string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return document.ErrNotFound
	case codes.AlreadyExists:
		return ErrDocumentExists
	}
	return fmt.Errorf("%s %s/%s: %w", op, collection, id, err)
}
