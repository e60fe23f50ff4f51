package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

// RateCounter counts hits per key inside a fixed window.
type RateCounter interface {
	// Incr records one hit and returns the count in the current window.
	Incr(ctx context.Context, key string) (int64, error)
}

type window struct {
	count   int64
	expires time.Time
}

type lruRateCounter struct {
	mu     sync.Mutex
	cache  *lru.Cache
	window time.Duration
	now    func() time.Time
}

func NewLRURateCounter(size int, w time.Duration) (RateCounter, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create rate cache: %w", err)
	}
	return &lruRateCounter{cache: c, window: w, now: time.Now}, nil
}

func (r *lruRateCounter) Incr(_ context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w := &window{expires: now.Add(r.window)}
	if v, ok := r.cache.Get(key); ok {
		if cur := v.(*window); now.Before(cur.expires) {
			w = cur
		}
	}
	w.count++
	r.cache.Add(key, w)
	return w.count, nil
}

type redisRateCounter struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewRedisRateCounter(client *redis.Client, prefix string, w time.Duration) RateCounter {
	return &redisRateCounter{client: client, prefix: strings.TrimSuffix(prefix, ":"), window: w}
}

func (r *redisRateCounter) key(k string) string {
	return fmt.Sprintf("%s:%s", r.prefix, k)
}

func (r *redisRateCounter) Incr(ctx context.Context, key string) (int64, error) {
	k := r.key(key)

	n, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return n, fmt.Errorf("failed to set rate window: %w", err)
		}
	}
	return n, nil
}
