package cache

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Store caches raw upstream payloads. The fetch layer depends on this
// interface so the process can run with either an in-memory or a shared
// Redis tier.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryStore adapts Memory to Store.
type MemoryStore struct {
	mem *Memory[[]byte]
}

// NewMemoryStore wraps mem. A nil mem gets a fresh cache.
func NewMemoryStore(mem *Memory[[]byte]) *MemoryStore {
	if mem == nil {
		mem = NewMemory[[]byte](WithName("responses"))
	}
	return &MemoryStore{mem: mem}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.mem.Get(key)
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mem.Set(key, value, ttl)
	return nil
}

// Memory exposes the underlying cache for cleanup and stats.
func (s *MemoryStore) Memory() *Memory[[]byte] {
	return s.mem
}

// record is the serialized form of an entry in shared tiers.
type record struct {
	Key              string `json:"key"`
	Value            []byte `json:"value"`
	TTLMillis        uint64 `json:"ttl_ms"`
	CreatedAtEpochMS uint64 `json:"created_at_epoch_ms"`
}

func newRecord(key string, value []byte, ttl time.Duration, now time.Time) record {
	return record{
		Key:              key,
		Value:            value,
		TTLMillis:        uint64(ttl.Milliseconds()),
		CreatedAtEpochMS: uint64(now.UnixMilli()),
	}
}

func (r record) expired(now time.Time) bool {
	expiresAt := time.UnixMilli(int64(r.CreatedAtEpochMS + r.TTLMillis))
	return expiresAt.Before(now)
}

// Tiered reads through a local front store to a shared back store. Back
// tier failures are logged and treated as misses so an unavailable Redis
// degrades to local caching instead of failing requests.
type Tiered struct {
	front    Store
	back     Store
	frontTTL time.Duration
	logger   *slog.Logger
}

// NewTiered composes front and back. Hits from back are copied into front
// for frontTTL.
func NewTiered(front, back Store, frontTTL time.Duration, logger *slog.Logger) *Tiered {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tiered{front: front, back: back, frontTTL: frontTTL, logger: logger}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.front.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}
	v, ok, err := t.back.Get(ctx, key)
	if err != nil {
		t.logger.WarnContext(ctx, "shared cache read failed", "key", key, "error", err)
		return nil, false, nil
	}
	if ok {
		_ = t.front.Set(ctx, key, v, t.frontTTL)
	}
	return v, ok, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	frontTTL := min(ttl, t.frontTTL)
	_ = t.front.Set(ctx, key, value, frontTTL)
	if err := t.back.Set(ctx, key, value, ttl); err != nil {
		t.logger.WarnContext(ctx, "shared cache write failed", "key", key, "error", err)
	}
	return nil
}
