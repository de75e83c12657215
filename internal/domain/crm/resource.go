// Package crm describes the CRM record types stored in the document store
// and the read models built over them.
package crm

import (
	"fmt"

	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/shared"
)

// ErrUnknownResource is returned for a resource name outside the CRM set
var ErrUnknownResource = shared.NewDomainError("NOT_FOUND", "Unknown resource")

// ErrManagedResource is returned when creating or deleting a record owned by
// the identity service
var ErrManagedResource = shared.NewDomainError("FORBIDDEN", "Accounts are managed through the auth API")

// Resource describes one CRUD-able record type
type Resource struct {
	Name       string
	Collection string
	Required   []string
	// Hidden fields are never returned to clients
	Hidden []string
	// Protected fields are owned by another service and cannot be written here
	Protected []string
	// Managed records are created and deleted by another service
	Managed bool
}

// Resources is the fixed set of CRM record types
var Resources = map[string]Resource{
	"customers": {
		Name:       "customers",
		Collection: document.CollectionCustomers,
		Required:   []string{"name"},
	},
	"contacts": {
		Name:       "contacts",
		Collection: document.CollectionContacts,
		Required:   []string{"name"},
	},
	"interactions": {
		Name:       "interactions",
		Collection: document.CollectionInteractions,
		Required:   []string{"contact_id", "notes"},
	},
	"users": {
		Name:       "users",
		Collection: document.CollectionUsers,
		Required:   []string{"name", "email"},
		Hidden:     []string{"password_hash"},
		Protected:  []string{"role", "email"},
		Managed:    true,
	},
}

// LookupResource resolves a resource by name
func LookupResource(name string) (Resource, error) {
	r, ok := Resources[name]
	if !ok {
		return Resource{}, ErrUnknownResource
	}
	return r, nil
}

// Redact removes hidden fields from a copy of the document
func (r Resource) Redact(doc document.Document) document.Document {
	if len(r.Hidden) == 0 {
		return doc
	}
	out := doc.Clone()
	for _, key := range r.Hidden {
		delete(out.Fields, key)
	}
	return out
}

// Writable checks client-supplied fields and returns a copy without hidden
// keys. A protected key fails with FORBIDDEN.
func (r Resource) Writable(fields document.Fields) (document.Fields, error) {
	for _, key := range r.Protected {
		if _, ok := fields[key]; ok {
			return nil, shared.NewDomainError("FORBIDDEN", fmt.Sprintf("Field %s of %s cannot be changed here", key, r.Name))
		}
	}
	out := make(document.Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for _, key := range r.Hidden {
		delete(out, key)
	}
	return out, nil
}
