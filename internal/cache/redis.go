package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "statbridge:cache:"

// Redis is a shared Store backed by Redis. Values are stored as zstd
// compressed JSON records and expire through Redis' own TTL.
type Redis struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis creates a Redis-backed store.
func NewRedis(client redis.Cmdable, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	r := &Redis{
		client: client,
		prefix: defaultRedisPrefix,
		now:    time.Now,
		enc:    enc,
		dec:    dec,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	plain, err := r.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress cache record: %w", err)
	}
	var rec record
	if err := json.Unmarshal(plain, &rec); err != nil {
		return nil, false, fmt.Errorf("decode cache record: %w", err)
	}
	if rec.expired(r.now()) {
		return nil, false, nil
	}
	return rec.Value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	plain, err := json.Marshal(newRecord(key, value, ttl, r.now()))
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}
	compressed := r.enc.EncodeAll(plain, nil)
	if err := r.client.Set(ctx, r.prefix+key, compressed, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
