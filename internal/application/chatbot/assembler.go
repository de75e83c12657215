// Package chatbot answers questions about CRM data: it assembles a context
// snapshot from the document store, asks a text generator and keeps one chat
// session per signed-in user.
package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/crm/backend/internal/domain/chat"
	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/telemetry"
)

const (
	snapshotKey            = "snapshot"
	defaultAssembleTimeout = 30 * time.Second
)

// AssemblerConfig selects what goes into the chatbot context
type AssemblerConfig struct {
	Collections  []string
	TTL          time.Duration
	RedactFields []string
	// Timeout bounds one shared assembly. Zero means 30s.
	Timeout time.Duration
}

// DefaultAssemblerConfig returns the collections the chatbot answers from
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		Collections: []string{
			document.CollectionCustomers,
			document.CollectionContacts,
			document.CollectionInteractions,
			document.CollectionUsers,
		},
		TTL:          5 * time.Minute,
		RedactFields: []string{"password_hash"},
		Timeout:      defaultAssembleTimeout,
	}
}

// ContextAssembler serializes the configured collections into a prompt blob
type ContextAssembler struct {
	store   document.Store
	cache   cache.SnapshotCache
	cfg     AssemblerConfig
	redact  map[string]struct{}
	metrics *telemetry.CRMMetrics
	logger  *zap.Logger
	now     func() time.Time
	group   singleflight.Group

	// mu orders cache writes against invalidations. generation counts
	// invalidations so an assembly that raced one never caches its result.
	mu         sync.Mutex
	generation uint64
}

// NewContextAssembler creates an assembler. A nil cache disables caching.
func NewContextAssembler(
	store document.Store,
	snapshots cache.SnapshotCache,
	cfg AssemblerConfig,
	metrics *telemetry.CRMMetrics,
	logger *zap.Logger,
) *ContextAssembler {
	redact := make(map[string]struct{}, len(cfg.RedactFields))
	for _, f := range cfg.RedactFields {
		redact[f] = struct{}{}
	}
	return &ContextAssembler{
		store:   store,
		cache:   snapshots,
		cfg:     cfg,
		redact:  redact,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterHandlers invalidates the cached snapshot after writes to a context collection
func (a *ContextAssembler) RegisterHandlers(bus shared.EventSubscriber) {
	bus.Subscribe(&shared.EventHandlerFunc{
		Types: []string{document.EventTypeChanged},
		Fn: func(ctx context.Context, event shared.DomainEvent) error {
			changed, ok := event.(*document.ChangedEvent)
			if !ok || !slices.Contains(a.cfg.Collections, changed.Collection) {
				return nil
			}
			return a.Invalidate(ctx)
		},
	})
}

// Snapshot returns the cached snapshot or assembles a fresh one.
// Concurrent misses share one assembly.
func (a *ContextAssembler) Snapshot(ctx context.Context) (chat.Snapshot, error) {
	if a.cache != nil {
		snap, ok, err := a.cache.Get(ctx)
		if err != nil {
			a.logger.Warn("Chatbot context cache read failed", zap.Error(err))
		} else if ok {
			a.metrics.SnapshotLoaded(ctx, true)
			return snap, nil
		}
	}

	// The shared call outlives any one caller; waiters keep their own ctx.
	ch := a.group.DoChan(snapshotKey, func() (any, error) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout())
		defer cancel()
		return a.assemble(actx)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return chat.Snapshot{}, ctx.Err()
	}
	if res.Err != nil {
		return chat.Snapshot{}, res.Err
	}
	snap := res.Val.(chat.Snapshot)
	a.metrics.SnapshotLoaded(ctx, false)
	return snap, nil
}

// Invalidate drops the cached snapshot so the next request reassembles it.
// An assembly already in flight still answers its callers but is not cached.
func (a *ContextAssembler) Invalidate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	a.group.Forget(snapshotKey)
	if a.cache == nil {
		return nil
	}
	if err := a.cache.Invalidate(ctx); err != nil {
		a.logger.Warn("Chatbot context cache invalidation failed", zap.Error(err))
		return err
	}
	a.logger.Debug("Chatbot context invalidated")
	return nil
}

// Refresh discards the cached snapshot and assembles a new one
func (a *ContextAssembler) Refresh(ctx context.Context) (chat.Snapshot, error) {
	_ = a.Invalidate(ctx)
	return a.Snapshot(ctx)
}

func (a *ContextAssembler) assemble(ctx context.Context) (chat.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "chatbot", "assemble_context")
	defer span.End()

	a.mu.Lock()
	gen := a.generation
	a.mu.Unlock()

	results := make([][]document.Document, len(a.cfg.Collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, collection := range a.cfg.Collections {
		g.Go(func() error {
			docs, err := a.store.List(gctx, collection)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", collection, err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Error("Failed to assemble chatbot context", zap.Error(err))
		return chat.Snapshot{}, shared.WrapDomainError("INTERNAL_ERROR", "Failed to load CRM data", err)
	}

	blob, count, err := a.serialize(results)
	if err != nil {
		return chat.Snapshot{}, err
	}
	snap := chat.Snapshot{
		Blob:          blob,
		Collections:   slices.Clone(a.cfg.Collections),
		DocumentCount: count,
		AssembledAt:   a.now().UTC(),
	}

	a.cacheSnapshot(ctx, snap, gen)
	a.logger.Info("Chatbot context assembled",
		zap.Strings("collections", a.cfg.Collections),
		zap.Int("documents", count),
		zap.Int("bytes", len(blob)))
	return snap, nil
}

// cacheSnapshot caches snap unless an invalidation happened since gen was read
func (a *ContextAssembler) cacheSnapshot(ctx context.Context, snap chat.Snapshot, gen uint64) {
	if a.cache == nil || a.cfg.TTL <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != gen {
		a.logger.Debug("Chatbot context changed during assembly, not caching")
		return
	}
	if err := a.cache.Set(ctx, snap, a.cfg.TTL); err != nil {
		a.logger.Warn("Chatbot context cache write failed", zap.Error(err))
	}
}

func (a *ContextAssembler) timeout() time.Duration {
	if a.cfg.Timeout > 0 {
		return a.cfg.Timeout
	}
	return defaultAssembleTimeout
}

// serialize writes one "### <collection>" section per collection holding a
// JSON array of {id, ...fields} sorted by id. No documents means an empty blob.
func (a *ContextAssembler) serialize(results [][]document.Document) (string, int, error) {
	total := 0
	for _, docs := range results {
		total += len(docs)
	}
	if total == 0 {
		return "", 0, nil
	}

	var b strings.Builder
	for i, collection := range a.cfg.Collections {
		docs := slices.Clone(results[i])
		slices.SortFunc(docs, func(x, y document.Document) int {
			return strings.Compare(x.ID, y.ID)
		})

		rows := make([]map[string]any, 0, len(docs))
		for _, doc := range docs {
			row := make(map[string]any, len(doc.Fields)+1)
			for k, v := range doc.Fields {
				if _, hidden := a.redact[k]; hidden {
					continue
				}
				row[k] = v
			}
			row["id"] = doc.ID
			rows = append(rows, row)
		}
		data, err := json.Marshal(rows)
		if err != nil {
			return "", 0, fmt.Errorf("serialize %s: %w", collection, err)
		}

		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("### ")
		b.WriteString(collection)
		b.WriteByte('\n')
		b.Write(data)
	}
	return b.String(), total, nil
}
