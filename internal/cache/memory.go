// Package cache provides the TTL caches used for upstream responses and
// decoded series. Entries are best effort: nothing here survives a restart.
package cache

import (
	"context"
	"sync"
	"time"
)

// Entry is a cached value with its own time-to-live.
type Entry[T any] struct {
	Key       string
	Value     T
	TTL       time.Duration
	CreatedAt time.Time
}

func (e *Entry[T]) expired(now time.Time) bool {
	return e.CreatedAt.Add(e.TTL).Before(now)
}

// Stats is a point-in-time view of a cache. Reading it never mutates state.
type Stats struct {
	Total   int `json:"total"`
	Expired int `json:"expired"`
}

// Recorder receives cache events. platform/metrics implements it.
type Recorder interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheEviction(cache string, n int)
}

// Memory is a concurrency-safe in-memory TTL cache. Expired entries are
// removed lazily on Get or eagerly by Cleanup.
type Memory[T any] struct {
	mu       sync.RWMutex
	entries  map[string]*Entry[T]
	name     string
	now      func() time.Time
	recorder Recorder
}

// Option configures a Memory cache.
type Option func(*options)

type options struct {
	name     string
	now      func() time.Time
	recorder Recorder
}

// WithName labels the cache in metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithClock overrides the time source; tests use it to step past TTLs.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// NewMemory creates an empty cache.
func NewMemory[T any](opts ...Option) *Memory[T] {
	o := options{name: "default", now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory[T]{
		entries:  make(map[string]*Entry[T]),
		name:     o.name,
		now:      o.now,
		recorder: o.recorder,
	}
}

// Set stores value under key, replacing any previous entry.
func (c *Memory[T]) Set(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &Entry[T]{
		Key:       key,
		Value:     value,
		TTL:       ttl,
		CreatedAt: c.now(),
	}
}

// Get returns the value for key. An expired entry is deleted and reported
// as a miss.
func (c *Memory[T]) Get(key string) (T, bool) {
	var zero T
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.miss()
		return zero, false
	}
	if entry.expired(now) {
		c.mu.Lock()
		// re-check: a concurrent Set may have replaced the entry
		if current, still := c.entries[key]; still && current.expired(now) {
			delete(c.entries, key)
			c.evicted(1)
		}
		c.mu.Unlock()
		c.miss()
		return zero, false
	}
	if c.recorder != nil {
		c.recorder.CacheHit(c.name)
	}
	return entry.Value, true
}

// Delete removes key. Reports whether an entry was present.
func (c *Memory[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Cleanup removes every expired entry and returns how many were removed.
func (c *Memory[T]) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.evicted(removed)
	return removed
}

// Stats counts entries and how many of them are past their TTL.
func (c *Memory[T]) Stats() Stats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{Total: len(c.entries)}
	for _, entry := range c.entries {
		if entry.expired(now) {
			stats.Expired++
		}
	}
	return stats
}

// Len returns the number of stored entries, expired or not.
func (c *Memory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (c *Memory[T]) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

func (c *Memory[T]) miss() {
	if c.recorder != nil {
		c.recorder.CacheMiss(c.name)
	}
}

// evicted must be called with c.mu held or after the deletion it reports.
func (c *Memory[T]) evicted(n int) {
	if c.recorder != nil && n > 0 {
		c.recorder.CacheEviction(c.name, n)
	}
}
