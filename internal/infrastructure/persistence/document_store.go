package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
)

// ErrDocumentExists is returned when creating a document with an id already in use
var ErrDocumentExists = shared.NewDomainError("ALREADY_EXISTS", "Document already exists")

// GormDocumentStore implements document.Store on a relational database
type GormDocumentStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormDocumentStore creates a new GormDocumentStore
func NewGormDocumentStore(db *gorm.DB) *GormDocumentStore {
	return &GormDocumentStore{db: db, now: time.Now}
}

// List returns every document of a collection ordered by creation time
func (s *GormDocumentStore) List(ctx context.Context, collection string) ([]document.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	var rows []models.DocumentModel
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	docs := make([]document.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].ToDomain()
	}
	return docs, nil
}

// Get returns one document
func (s *GormDocumentStore) Get(ctx context.Context, collection, id string) (*document.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	row, err := s.find(s.db.WithContext(ctx), collection, id)
	if err != nil {
		return nil, err
	}
	doc := row.ToDomain()
	return &doc, nil
}

// Create inserts a document, generating a UUID when id is empty
func (s *GormDocumentStore) Create(ctx context.Context, collection, id string, fields document.Fields) (*document.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	row := models.FromFields(collection, id, fields)
	now := s.now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDocumentExists
		}
		return nil, fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	doc := row.ToDomain()
	return &doc, nil
}

// Update merges fields into the stored document. A nil value removes the key.
func (s *GormDocumentStore) Update(ctx context.Context, collection, id string, fields document.Fields) (*document.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	var updated *models.DocumentModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.find(tx, collection, id)
		if err != nil {
			return err
		}
		if row.Fields == nil {
			row.Fields = map[string]any{}
		}
		for k, v := range fields {
			if v == nil {
				delete(row.Fields, k)
				continue
			}
			row.Fields[k] = v
		}
		row.UpdatedAt = s.now().UTC()
		if err := tx.Model(&models.DocumentModel{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"fields": row.Fields, "updated_at": row.UpdatedAt}).Error; err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	doc := updated.ToDomain()
	return &doc, nil
}

// Delete removes a document
func (s *GormDocumentStore) Delete(ctx context.Context, collection, id string) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&models.DocumentModel{})
	if result.Error != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (s *GormDocumentStore) find(db *gorm.DB, collection, id string) (*models.DocumentModel, error) {
	var row models.DocumentModel
	if err := db.Where("collection = ? AND id = ?", collection, id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, document.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return &row, nil
}

func validateCollection(collection string) error {
	if strings.TrimSpace(collection) == "" {
		return shared.NewDomainError("INVALID_INPUT", "Collection name cannot be empty")
	}
	return nil
}
