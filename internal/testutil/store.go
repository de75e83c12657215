package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/crm/backend/internal/domain/document"
)

// MockDocumentStore is a mock implementation of document.Store
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) List(ctx context.Context, collection string) ([]document.Document, error) {
	args := m.Called(ctx, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *MockDocumentStore) Get(ctx context.Context, collection, id string) (*document.Document, error) {
	args := m.Called(ctx, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentStore) Create(ctx context.Context, collection, id string, fields document.Fields) (*document.Document, error) {
	args := m.Called(ctx, collection, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentStore) Update(ctx context.Context, collection, id string, fields document.Fields) (*document.Document, error) {
	args := m.Called(ctx, collection, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentStore) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

// StubGenerator is a chat.TextGenerator returning canned output
type StubGenerator struct {
	mu      sync.Mutex
	Answer  string
	Err     error
	Prompts []string
}

// Generate records the prompt and returns Answer or Err
func (g *StubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)
	return g.Answer, g.Err
}

// Calls returns how many prompts were sent
func (g *StubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}

var _ document.Store = (*MockDocumentStore)(nil)
