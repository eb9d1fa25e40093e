package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/allisson/sealdrop/internal/cache")

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache implements Cache on top of go-redis.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "redis."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("cache.key_prefix", keyPrefix(key)),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// keyPrefix keeps secret-bearing key suffixes out of span attributes.
func keyPrefix(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	ctx, span := startSpan(ctx, "set", key)
	defer func() { endSpan(span, err) }()

	if err = c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (_ []byte, err error) {
	ctx, span := startSpan(ctx, "get", key)
	defer func() { endSpan(span, err) }()

	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	return value, nil
}

// GetDel implements Cache using GETDEL.
func (c *RedisCache) GetDel(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	ctx, span := startSpan(ctx, "getdel", key)
	defer func() { endSpan(span, err) }()

	value, err := c.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis getdel: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	return value, true, nil
}

// IncrementWithTTL implements Cache with a MULTI{INCR; EXPIRE NX} transaction so the window
// starts at the first increment and later increments never extend it.
func (c *RedisCache) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (_ int64, err error) {
	ctx, span := startSpan(ctx, "incr_ttl", key)
	defer func() { endSpan(span, err) }()

	var incr *redis.IntCmd
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}

	n := incr.Val()
	span.SetAttributes(attribute.Int64("cache.counter", n))
	return n, nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) (err error) {
	ctx, span := startSpan(ctx, "del", key)
	defer func() { endSpan(span, err) }()

	if err = c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping implements Cache.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
