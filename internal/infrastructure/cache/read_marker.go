package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crm/backend/internal/domain/notification"
)

const readMarkerKeyPrefix = "crm:readmarker:"

// RedisReadMarkerStore keeps each user's lastReadTime in Redis
type RedisReadMarkerStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisReadMarkerStore creates a read marker store on an existing client
func NewRedisReadMarkerStore(client redis.UniversalClient) *RedisReadMarkerStore {
	return &RedisReadMarkerStore{client: client, keyPrefix: readMarkerKeyPrefix}
}

func (s *RedisReadMarkerStore) key(userID string) string {
	return s.keyPrefix + userID + ":lastReadTime"
}

// Get returns the stored marker. A missing key is an unset marker.
func (s *RedisReadMarkerStore) Get(ctx context.Context, userID string) (notification.ReadMarker, error) {
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return notification.ReadMarker{}, nil
	}
	if err != nil {
		return notification.ReadMarker{}, fmt.Errorf("failed to get read marker: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		// a corrupt value behaves like no marker
		return notification.ReadMarker{}, nil
	}
	return notification.ReadMarker{LastReadTime: &t}, nil
}

// Set stores the marker without expiry
func (s *RedisReadMarkerStore) Set(ctx context.Context, userID string, lastRead time.Time) error {
	if err := s.client.Set(ctx, s.key(userID), lastRead.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to set read marker: %w", err)
	}
	return nil
}

// InMemoryReadMarkerStore keeps markers in process memory.
// Markers are lost on restart and are not shared across instances.
type InMemoryReadMarkerStore struct {
	mu      sync.RWMutex
	markers map[string]time.Time
}

// NewInMemoryReadMarkerStore creates an empty in-memory store
func NewInMemoryReadMarkerStore() *InMemoryReadMarkerStore {
	return &InMemoryReadMarkerStore{markers: make(map[string]time.Time)}
}

// Get returns the stored marker
func (s *InMemoryReadMarkerStore) Get(_ context.Context, userID string) (notification.ReadMarker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.markers[userID]
	if !ok {
		return notification.ReadMarker{}, nil
	}
	return notification.ReadMarker{LastReadTime: &t}, nil
}

// Set stores the marker
func (s *InMemoryReadMarkerStore) Set(_ context.Context, userID string, lastRead time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[userID] = lastRead.UTC()
	return nil
}

var (
	_ notification.ReadMarkerStore = (*RedisReadMarkerStore)(nil)
	_ notification.ReadMarkerStore = (*InMemoryReadMarkerStore)(nil)
)
