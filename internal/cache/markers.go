// Package cache holds idempotency markers and rate counters, backed either by
// a process-local LRU or by Redis when several bot instances share work.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

// Markers remembers keys that were already processed.
type Markers interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type lruMarkers struct {
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewLRUMarkers keeps at most size markers in memory. A zero ttl keeps them
// until evicted.
func NewLRUMarkers(size int, ttl time.Duration) (Markers, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create marker cache: %w", err)
	}
	return &lruMarkers{cache: c, ttl: ttl, now: time.Now}, nil
}

func (m *lruMarkers) Seen(_ context.Context, key string) (bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return false, nil
	}
	expires, _ := v.(time.Time)
	if !expires.IsZero() && m.now().After(expires) {
		m.cache.Remove(key)
		return false, nil
	}
	return true, nil
}

func (m *lruMarkers) Mark(_ context.Context, key string) error {
	var expires time.Time
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}
	m.cache.Add(key, expires)
	return nil
}

type redisMarkers struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMarkers stores markers as "<prefix>:<key>" with the given ttl.
func NewRedisMarkers(client *redis.Client, prefix string, ttl time.Duration) Markers {
	return &redisMarkers{client: client, prefix: strings.TrimSuffix(prefix, ":"), ttl: ttl}
}

func (m *redisMarkers) key(k string) string {
	return fmt.Sprintf("%s:%s", m.prefix, k)
}

func (m *redisMarkers) Seen(ctx context.Context, key string) (bool, error) {
	n, err := m.client.Exists(ctx, m.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check marker: %w", err)
	}
	return n > 0, nil
}

func (m *redisMarkers) Mark(ctx context.Context, key string) error {
	if err := m.client.Set(ctx, m.key(key), "1", m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set marker: %w", err)
	}
	return nil
}

// Layered checks the local markers first and falls back to the shared ones.
// Marks go to both.
type Layered struct {
	local  Markers
	shared Markers
}

func NewLayered(local, shared Markers) *Layered {
	return &Layered{local: local, shared: shared}
}

func (l *Layered) Seen(ctx context.Context, key string) (bool, error) {
	if ok, _ := l.local.Seen(ctx, key); ok {
		return true, nil
	}
	if l.shared == nil {
		return false, nil
	}
	ok, err := l.shared.Seen(ctx, key)
	if err != nil {
		return false, err
	}
	if ok {
		_ = l.local.Mark(ctx, key)
	}
	return ok, nil
}

func (l *Layered) Mark(ctx context.Context, key string) error {
	if err := l.local.Mark(ctx, key); err != nil {
		return err
	}
	if l.shared == nil {
		return nil
	}
	return l.shared.Mark(ctx, key)
}
