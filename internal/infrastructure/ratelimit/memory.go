// Package ratelimit holds the in-process request counter used by a single
// API instance.
package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

type window struct {
	start time.Time
	hits  int
}

// MemoryStore keeps one fixed window per key. A window opens with the
// key's first request; expired windows are swept by the cache janitor.
type MemoryStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
	now   func() time.Time
}

var _ ports.RateLimitStore = (*MemoryStore)(nil)

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(cleanup time.Duration, opts ...MemoryOption) *MemoryStore {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	s := &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, cleanup),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Take(ctx context.Context, key string, limit int, period time.Duration) (domain.RateLimitDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.RateLimitDecision{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.lookup(key)
	if !ok || !now.Before(w.start.Add(period)) {
		w = &window{start: now}
		s.cache.Set(key, w, period)
	}
	w.hits++

	reset := w.start.Add(period)
	d := domain.RateLimitDecision{
		Allowed: w.hits <= limit,
		Limit:   limit,
		ResetAt: reset,
	}
	if w.hits < limit {
		d.Remaining = limit - w.hits
	}
	if !d.Allowed {
		d.RetryAfter = reset.Sub(now)
	}
	return d, nil
}

func (s *MemoryStore) lookup(key string) (*window, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	w, ok := v.(*window)
	return w, ok
}

// Len reports how many windows are currently tracked.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
