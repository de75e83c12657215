package cache

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/notification"
	"github.com/crm/backend/internal/infrastructure/config"
)

// Stores bundles the cache-backed stores used by the services
type Stores struct {
	Client      *redis.Client
	ReadMarkers notification.ReadMarkerStore
	Snapshots   SnapshotCache
}

// Close releases the Redis client, if any
func (s *Stores) Close() error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Close()
}

// Factory creates stores based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStores returns Redis-backed stores when Redis is enabled and reachable,
// otherwise in-memory stores if fallback is allowed
func (f *Factory) CreateStores() (*Stores, error) {
	if f.redisConfig.Enabled {
		client, err := NewRedisClient(f.redisConfig)
		if err == nil {
			f.logger.Info("using Redis for read markers and chatbot context", zap.String("addr", f.redisConfig.Addr()))
			return f.FromClient(client), nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Read markers will not survive restarts or be shared across instances.",
			zap.Error(err),
		)
	}
	return f.InMemory(), nil
}

// FromClient builds Redis-backed stores on an existing client
func (f *Factory) FromClient(client *redis.Client) *Stores {
	return &Stores{
		Client:      client,
		ReadMarkers: NewRedisReadMarkerStore(client),
		Snapshots:   NewRedisSnapshotCache(client),
	}
}

// InMemory builds process-local stores
func (f *Factory) InMemory() *Stores {
	return &Stores{
		ReadMarkers: NewInMemoryReadMarkerStore(),
		Snapshots:   NewInMemorySnapshotCache(),
	}
}
