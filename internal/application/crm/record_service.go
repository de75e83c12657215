// Package crm implements the CRM feature pages: record CRUD, typed listings,
// review classification and the dashboard widgets.
package crm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/shared"
)

// ListQuery filters and pages a record listing
type ListQuery struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// RecordService provides CRUD over the CRM collections
type RecordService struct {
	store    document.Store
	events   shared.EventPublisher
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRecordService creates a record service. events may be nil.
func NewRecordService(store document.Store, events shared.EventPublisher, logger *zap.Logger) *RecordService {
	return &RecordService{
		store:    store,
		events:   events,
		validate: validator.New(),
		logger:   logger,
	}
}

// List returns a page of records sorted by id. Search matches any string
// field, case-insensitively.
func (s *RecordService) List(ctx context.Context, resource string, q ListQuery) (*shared.Paginated[document.Document], error) {
	res, err := crm.LookupResource(resource)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.List(ctx, res.Collection)
	if err != nil {
		return nil, s.storeError("list", res, "", err)
	}

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	matched := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		doc = res.Redact(doc)
		if needle == "" || matches(doc, needle) {
			matched = append(matched, doc)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page := shared.Paginate(matched, shared.Filter{Page: q.Page, PageSize: q.PageSize})
	return &page, nil
}

// Get returns one record
func (s *RecordService) Get(ctx context.Context, resource, id string) (*document.Document, error) {
	res, err := crm.LookupResource(resource)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Get(ctx, res.Collection, id)
	if err != nil {
		return nil, s.storeError("get", res, id, err)
	}
	out := res.Redact(*doc)
	return &out, nil
}

// Create validates required fields and stores a new record
func (s *RecordService) Create(ctx context.Context, resource string, fields document.Fields) (*document.Document, error) {
	res, err := crm.LookupResource(resource)
	if err != nil {
		return nil, err
	}
	if res.Managed {
		return nil, crm.ErrManagedResource
	}
	fields, err = res.Writable(fields)
	if err != nil {
		return nil, err
	}
	if err := s.checkRequired(res, fields, false); err != nil {
		return nil, err
	}

	doc, err := s.store.Create(ctx, res.Collection, "", fields)
	if err != nil {
		return nil, s.storeError("create", res, "", err)
	}
	s.publish(ctx, res.Collection, doc.ID, document.OpCreate)

	s.logger.Info("Record created", zap.String("resource", res.Name), zap.String("id", doc.ID))
	out := res.Redact(*doc)
	return &out, nil
}

// Update merges fields into a record. Required fields present in the
// update must not be blank, and protected fields are refused.
func (s *RecordService) Update(ctx context.Context, resource, id string, fields document.Fields) (*document.Document, error) {
	res, err := crm.LookupResource(resource)
	if err != nil {
		return nil, err
	}
	fields, err = res.Writable(fields)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "No fields to update")
	}
	if err := s.checkRequired(res, fields, true); err != nil {
		return nil, err
	}

	doc, err := s.store.Update(ctx, res.Collection, id, fields)
	if err != nil {
		return nil, s.storeError("update", res, id, err)
	}
	s.publish(ctx, res.Collection, id, document.OpUpdate)

	out := res.Redact(*doc)
	return &out, nil
}

// Delete removes a record
func (s *RecordService) Delete(ctx context.Context, resource, id string) error {
	res, err := crm.LookupResource(resource)
	if err != nil {
		return err
	}
	if res.Managed {
		return crm.ErrManagedResource
	}
	if err := s.store.Delete(ctx, res.Collection, id); err != nil {
		return s.storeError("delete", res, id, err)
	}
	s.publish(ctx, res.Collection, id, document.OpDelete)

	s.logger.Info("Record deleted", zap.String("resource", res.Name), zap.String("id", id))
	return nil
}

// Interactions lists interactions whose notes contain search, newest date first
func (s *RecordService) Interactions(ctx context.Context, search string) ([]crm.InteractionView, error) {
	docs, err := s.store.List(ctx, document.CollectionInteractions)
	if err != nil {
		return nil, s.storeError("list", crm.Resources["interactions"], "", err)
	}
	needle := strings.ToLower(strings.TrimSpace(search))
	views := make([]crm.InteractionView, 0, len(docs))
	for _, doc := range docs {
		v := crm.NewInteractionView(doc)
		if needle != "" && !strings.Contains(strings.ToLower(doc.String("notes")), needle) {
			continue
		}
		views = append(views, v)
	}
	sortByDateDesc(views)
	return views, nil
}

// ContactsOfCustomer lists the contacts linked to a customer
func (s *RecordService) ContactsOfCustomer(ctx context.Context, customerID string) ([]crm.ContactView, error) {
	if _, err := s.store.Get(ctx, document.CollectionCustomers, customerID); err != nil {
		return nil, s.storeError("get", crm.Resources["customers"], customerID, err)
	}
	docs, err := s.store.List(ctx, document.CollectionContacts)
	if err != nil {
		return nil, s.storeError("list", crm.Resources["contacts"], "", err)
	}
	out := make([]crm.ContactView, 0)
	for _, doc := range docs {
		if crm.CustomerIDOf(doc) == customerID {
			out = append(out, crm.NewContactView(doc))
		}
	}
	return out, nil
}

// InteractionsOfContact lists a contact's interactions, newest date first
func (s *RecordService) InteractionsOfContact(ctx context.Context, contactID string) ([]crm.InteractionView, error) {
	if _, err := s.store.Get(ctx, document.CollectionContacts, contactID); err != nil {
		return nil, s.storeError("get", crm.Resources["contacts"], contactID, err)
	}
	docs, err := s.store.List(ctx, document.CollectionInteractions)
	if err != nil {
		return nil, s.storeError("list", crm.Resources["interactions"], "", err)
	}
	out := make([]crm.InteractionView, 0)
	for _, doc := range docs {
		if doc.String("contact_id") == contactID {
			out = append(out, crm.NewInteractionView(doc))
		}
	}
	sortByDateDesc(out)
	return out, nil
}

// Users lists users without credentials
func (s *RecordService) Users(ctx context.Context) ([]crm.UserView, error) {
	docs, err := s.store.List(ctx, document.CollectionUsers)
	if err != nil {
		return nil, s.storeError("list", crm.Resources["users"], "", err)
	}
	out := make([]crm.UserView, 0, len(docs))
	for _, doc := range docs {
		out = append(out, crm.NewUserView(doc))
	}
	return out, nil
}

// checkRequired validates required fields. In partial mode only keys present are checked.
func (s *RecordService) checkRequired(res crm.Resource, fields document.Fields, partial bool) error {
	var missing []string
	for _, key := range res.Required {
		v, present := fields[key]
		if partial && !present {
			continue
		}
		if v == nil {
			missing = append(missing, key)
			continue
		}
		if str, ok := v.(string); ok {
			v = strings.TrimSpace(str)
		}
		if err := s.validate.Var(v, "required"); err != nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

func (s *RecordService) publish(ctx context.Context, collection, id, op string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, document.NewChangedEvent(collection, id, op)); err != nil {
		s.logger.Warn("Failed to publish document change",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err))
	}
}

func (s *RecordService) storeError(op string, res crm.Resource, id string, err error) error {
	if errors.Is(err, document.ErrNotFound) {
		return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("%s %s not found", singular(res.Name), id))
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	s.logger.Error("Document store failure",
		zap.String("op", op),
		zap.String("collection", res.Collection),
		zap.String("id", id),
		zap.Error(err))
	return shared.WrapDomainError("INTERNAL_ERROR", "Failed to access "+res.Name, err)
}

func matches(doc document.Document, needle string) bool {
	if strings.Contains(strings.ToLower(doc.ID), needle) {
		return true
	}
	for _, v := range doc.Fields {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func sortByDateDesc(views []crm.InteractionView) {
	slices.SortStableFunc(views, func(a, b crm.InteractionView) int {
		return b.SortTime().Compare(a.SortTime())
	})
}

func singular(name string) string {
	return strings.TrimSuffix(name, "s")
}
