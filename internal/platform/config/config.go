package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process configuration read from the environment.
type Config struct {
	Server      Server
	Fetch       Fetch
	Cache       Cache
	Circuit     Circuit
	Redis       RedisConfig
	Log         Log
	CatalogPath string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Fetch configures the upstream retrieval layer.
type Fetch struct {
	Timeout        time.Duration
	Retries        int
	BaseDelay      time.Duration
	RateLimitFloor time.Duration
}

// Cache configures response and series caching.
type Cache struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Circuit configures the per-provider circuit breakers.
type Circuit struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// RedisConfig enables the shared cache tier when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Log selects the process log level and handler.
type Log struct {
	Level  string
	Format string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	e := envReader{}
	cfg := Config{
		Server: Server{
			Addr:            e.str("STATBRIDGE_ADDR", ":8080"),
			ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Fetch: Fetch{
			Timeout:        e.duration("FETCH_TIMEOUT", 30*time.Second),
			Retries:        e.integer("FETCH_RETRIES", 3),
			BaseDelay:      e.duration("FETCH_BASE_DELAY", 350*time.Millisecond),
			RateLimitFloor: e.duration("FETCH_RATE_LIMIT_FLOOR", 2*time.Second),
		},
		Cache: Cache{
			TTL:             e.duration("CACHE_TTL", 10*time.Minute),
			CleanupInterval: e.duration("CACHE_CLEANUP_INTERVAL", time.Minute),
		},
		Circuit: Circuit{
			FailureThreshold: e.integer("CIRCUIT_FAILURE_THRESHOLD", 5),
			Cooldown:         e.duration("CIRCUIT_COOLDOWN", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Log: Log{
			Level:  e.str("LOG_LEVEL", "info"),
			Format: e.str("LOG_FORMAT", "json"),
		},
		CatalogPath: os.Getenv("CATALOG_PATH"),
	}
	if e.err != nil {
		return Config{}, e.err
	}
	if cfg.Fetch.Retries < 1 {
		return Config{}, fmt.Errorf("FETCH_RETRIES must be at least 1, got %d", cfg.Fetch.Retries)
	}
	return cfg, nil
}

// envReader reads typed variables and keeps the first parse error.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return d
}

func (e *envReader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
