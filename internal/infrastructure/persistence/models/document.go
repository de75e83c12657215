// Package models contains the GORM row types of the relational document store.
package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/crm/backend/internal/domain/document"
)

// DocumentModel is one row of the documents table. Documents are keyed by
// (collection, id) and their payload lives in a JSON column.
type DocumentModel struct {
	Collection string            `gorm:"primaryKey;type:varchar(100)"`
	ID         string            `gorm:"primaryKey;type:varchar(64)"`
	Fields     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time         `gorm:"not null"`
	UpdatedAt  time.Time         `gorm:"not null"`
}

// TableName returns the table name
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the row into a document
func (m *DocumentModel) ToDomain() document.Document {
	fields := make(document.Fields, len(m.Fields))
	for k, v := range m.Fields {
		fields[k] = v
	}
	return document.Document{
		ID:         m.ID,
		Collection: m.Collection,
		Fields:     fields,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromFields builds a row for insertion
func FromFields(collection, id string, fields document.Fields) *DocumentModel {
	payload := make(datatypes.JSONMap, len(fields))
	for k, v := range fields {
		payload[k] = v
	}
	return &DocumentModel{
		Collection: collection,
		ID:         id,
		Fields:     payload,
	}
}
