package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crm/backend/internal/domain/chat"
)

const snapshotKey = "crm:chatbot:snapshot"

// SnapshotCache holds the assembled chatbot context between requests
type SnapshotCache interface {
	// Get returns the cached snapshot and whether one was present
	Get(ctx context.Context) (chat.Snapshot, bool, error)
	// Set stores the snapshot for ttl
	Set(ctx context.Context, snapshot chat.Snapshot, ttl time.Duration) error
	// Invalidate drops the cached snapshot
	Invalidate(ctx context.Context) error
}

// RedisSnapshotCache stores the snapshot as JSON under a single key
type RedisSnapshotCache struct {
	client redis.UniversalClient
	key    string
}

// NewRedisSnapshotCache creates a Redis-backed snapshot cache
func NewRedisSnapshotCache(client redis.UniversalClient) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, key: snapshotKey}
}

// Get returns the cached snapshot
func (c *RedisSnapshotCache) Get(ctx context.Context) (chat.Snapshot, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return chat.Snapshot{}, false, nil
	}
	if err != nil {
		return chat.Snapshot{}, false, fmt.Errorf("failed to get snapshot: %w", err)
	}
	var snap chat.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return chat.Snapshot{}, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Set stores the snapshot with a TTL
func (c *RedisSnapshotCache) Set(ctx context.Context, snapshot chat.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}
	return nil
}

// Invalidate deletes the cached snapshot
func (c *RedisSnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot: %w", err)
	}
	return nil
}

// InMemorySnapshotCache is a single-slot TTL cache
type InMemorySnapshotCache struct {
	mu        sync.RWMutex
	snapshot  chat.Snapshot
	present   bool
	expiresAt time.Time
	now       func() time.Time
}

// NewInMemorySnapshotCache creates an empty in-memory cache
func NewInMemorySnapshotCache() *InMemorySnapshotCache {
	return &InMemorySnapshotCache{now: time.Now}
}

// Get returns the snapshot unless it has expired
func (c *InMemorySnapshotCache) Get(_ context.Context) (chat.Snapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.present || !c.now().Before(c.expiresAt) {
		return chat.Snapshot{}, false, nil
	}
	return c.snapshot, true, nil
}

// Set stores the snapshot
func (c *InMemorySnapshotCache) Set(_ context.Context, snapshot chat.Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
	c.present = true
	c.expiresAt = c.now().Add(ttl)
	return nil
}

// Invalidate clears the slot
func (c *InMemorySnapshotCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = chat.Snapshot{}
	c.present = false
	return nil
}

var (
	_ SnapshotCache = (*RedisSnapshotCache)(nil)
	_ SnapshotCache = (*InMemorySnapshotCache)(nil)
)
