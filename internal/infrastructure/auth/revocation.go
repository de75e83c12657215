package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList invalidates tokens before they expire. Single tokens are
// revoked by JTI; RevokeUser rejects every token a user was issued up to now.
type RevocationList interface {
	// Revoke rejects the token with the given JTI for ttl, which should be
	// the token's remaining lifetime
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// RevokeUser rejects all tokens issued to the user at or before now
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

const revocationKeyPrefix = "crm:auth:revoked:"

func jtiRevocationKey(jti string) string {
	return revocationKeyPrefix + "jti:" + jti
}

func userRevocationKey(userID string) string {
	return revocationKeyPrefix + "user:" + userID
}

// issuedBefore compares at JWT granularity (whole seconds)
func issuedBefore(issuedAt, revokedAt time.Time) bool {
	return issuedAt.Unix() <= revokedAt.Unix()
}

// RedisRevocationList stores revocations in Redis so every instance sees them
type RedisRevocationList struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisRevocationList creates a RedisRevocationList on an existing client
func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{client: client, now: time.Now}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := l.client.Set(ctx, jtiRevocationKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, jtiRevocationKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token %s: %w", jti, err)
	}
	return n > 0, nil
}

func (l *RedisRevocationList) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := l.client.Set(ctx, userRevocationKey(userID), l.now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke sessions of %s: %w", userID, err)
	}
	return nil
}

func (l *RedisRevocationList) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := l.client.Get(ctx, userRevocationKey(userID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check sessions of %s: %w", userID, err)
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revocation time of %s: %w", userID, err)
	}
	return issuedBefore(issuedAt, time.Unix(sec, 0)), nil
}

// MemoryRevocationList keeps revocations in process memory. It is used when
// Redis is not configured, so revocations are not shared between instances.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]revocation
	now     func() time.Time
}

type revocation struct {
	at      time.Time
	expires time.Time
}

// NewMemoryRevocationList creates an empty MemoryRevocationList
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]revocation), now: time.Now}
}

func (l *MemoryRevocationList) put(key string, ttl time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = revocation{at: now, expires: now.Add(ttl)}
}

// get returns a live entry, dropping it once expired
func (l *MemoryRevocationList) get(key string) (revocation, bool) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return revocation{}, false
	}
	if !now.Before(e.expires) {
		delete(l.entries, key)
		return revocation{}, false
	}
	return e, true
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	l.put(jtiRevocationKey(jti), ttl)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := l.get(jtiRevocationKey(jti))
	return ok, nil
}

func (l *MemoryRevocationList) RevokeUser(_ context.Context, userID string, ttl time.Duration) error {
	l.put(userRevocationKey(userID), ttl)
	return nil
}

func (l *MemoryRevocationList) IsUserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	e, ok := l.get(userRevocationKey(userID))
	if !ok {
		return false, nil
	}
	return issuedBefore(issuedAt, e.at), nil
}

var (
	_ RevocationList = (*RedisRevocationList)(nil)
	_ RevocationList = (*MemoryRevocationList)(nil)
)
