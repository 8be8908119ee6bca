// Package redis implements the optional Redis layer of Lessons Hub: the
// per-cohort stats cache and the request rate limiter.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns settings for a local Redis.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

var (
	// ErrCacheMiss is returned by Get for an absent key.
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrCacheConnection wraps the initial ping failure.
	ErrCacheConnection = errors.New("cache: connection failed")
	// ErrCacheSerialization wraps JSON encode and decode failures.
	ErrCacheSerialization = errors.New("cache: serialization failed")
	// ErrCacheInvalidTTL rejects negative TTLs and empty windows.
	ErrCacheInvalidTTL = errors.New("cache: invalid TTL")
	// ErrCacheKeyEmpty rejects empty keys.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS
// ══════════════════════════════════════════════════════════════════════════════

// Key namespaces.
const (
	PrefixStats            = "stats:"
	PrefixCohortGeneration = "cohortgen:"
	PrefixRateLimit        = "ratelimit:"
)

// CohortGenerationKey is the invalidation counter of a class.
func CohortGenerationKey(level int, letterKey string) string {
	return fmt.Sprintf("%s%d:%s", PrefixCohortGeneration, level, letterKey)
}

// StatsKey addresses one student's stats within a cohort generation.
func StatsKey(level int, letterKey string, generation int64, studentID string) string {
	return fmt.Sprintf("%s%d:%s:%d:%s", PrefixStats, level, letterKey, generation, studentID)
}

// RateLimitKey addresses the counter of identifier in a fixed window.
func RateLimitKey(identifier string, window int64) string {
	return fmt.Sprintf("%s%s:%d", PrefixRateLimit, identifier, window)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache is a thin JSON layer over a go-redis client.
type Cache struct {
	client *redis.Client
}

// NewCache connects and pings within cfg.DialTimeout.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return &Cache{client: client}, nil
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks that Redis answers.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores value as JSON. A zero ttl keeps the key forever.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	switch {
	case key == "":
		return ErrCacheKeyEmpty
	case ttl < 0:
		return ErrCacheInvalidTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get decodes the JSON value of key into dest, or returns ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// GetInt64 reads a counter; an absent key reads as zero.
func (c *Cache) GetInt64(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrCacheKeyEmpty
	}
	v, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Incr increments a counter that never expires.
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrCacheKeyEmpty
	}
	return c.client.Incr(ctx, key).Result()
}

// IncrWindow increments a counter and arms its expiry on the first hit, so
// the key lives at most one window.
func (c *Cache) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	switch {
	case key == "":
		return 0, ErrCacheKeyEmpty
	case window <= 0:
		return 0, ErrCacheInvalidTTL
	}

	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}
