// Package cache provides the short-lived secret store holding wrapped keys, recipient auth
// sessions, lockout counters and rate-limit windows. Every entry carries a TTL; nothing here
// is ever persisted to the durable store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key does not exist or has expired.
var ErrMiss = errors.New("cache: miss")

// Supported driver names.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Cache is a TTL key-value store with atomic read-and-delete and counter primitives.
type Cache interface {
	// Set stores value under key for ttl, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value for key or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// GetDel atomically removes key and returns its previous value. A missing key yields
	// (nil, false, nil).
	GetDel(ctx context.Context, key string) ([]byte, bool, error)
	// IncrementWithTTL atomically increments the counter at key and returns the new value.
	// The ttl is applied only when the increment creates the counter.
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the underlying client.
	Close() error
}

// WrappedKeyKey returns the key holding the wrapped symmetric key of a transfer.
func WrappedKeyKey(urlToken string) string {
	return fmt.Sprintf("wrapped-key:%s", urlToken)
}

// AuthSessionKey returns the key holding a recipient auth session. tokenHash is the SHA-256
// hex digest of the bearer token, never the token itself.
func AuthSessionKey(tokenHash string) string {
	return fmt.Sprintf("auth-session:%s", tokenHash)
}

// LockKey returns the key of the failed-attempt counter for a transfer.
func LockKey(urlToken string) string {
	return fmt.Sprintf("lock:%s", urlToken)
}

// RateKey returns the general per-IP rate-limit counter key.
func RateKey(ip string) string {
	return fmt.Sprintf("rate:%s", ip)
}

// LoginRateKey returns the per-IP rate-limit counter key for login attempts.
func LoginRateKey(ip string) string {
	return fmt.Sprintf("rate:login:%s", ip)
}
