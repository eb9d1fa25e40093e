package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/allisson/sealdrop/internal/cache"
	apperrors "github.com/allisson/sealdrop/internal/errors"
)

type lockoutGuard struct {
	cache     cache.Cache
	threshold int64
	ttl       time.Duration
}

// Failures returns the current counter, zero when absent.
func (l *lockoutGuard) Failures(ctx context.Context, urlToken string) (int64, error) {
	raw, err := l.cache.Get(ctx, cache.LockKey(urlToken))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return 0, nil
		}
		return 0, apperrors.Wrap(err, "failed to read lock counter")
	}

	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to parse lock counter")
	}
	return n, nil
}

// RecordFailure increments the counter, creating it with the lockout TTL, and returns the
// new value. The TTL is not refreshed by later failures.
func (l *lockoutGuard) RecordFailure(ctx context.Context, urlToken string) (int64, error) {
	n, err := l.cache.IncrementWithTTL(ctx, cache.LockKey(urlToken), l.ttl)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to increment lock counter")
	}
	return n, nil
}

// IsLocked reports whether the counter reached the threshold.
func (l *lockoutGuard) IsLocked(ctx context.Context, urlToken string) (bool, error) {
	n, err := l.Failures(ctx, urlToken)
	if err != nil {
		return false, err
	}
	return n >= l.threshold, nil
}

// Unlock deletes the counter, returning the URL to zero failures.
func (l *lockoutGuard) Unlock(ctx context.Context, urlToken string) error {
	if err := l.cache.Delete(ctx, cache.LockKey(urlToken)); err != nil {
		return apperrors.Wrap(err, "failed to delete lock counter")
	}
	return nil
}

func (l *lockoutGuard) Threshold() int64 {
	return l.threshold
}

// NewLockoutGuard creates a LockoutGuard locking after threshold failures. Counters live for ttl
// from the first failure.
func NewLockoutGuard(c cache.Cache, threshold int64, ttl time.Duration) LockoutGuard {
	return &lockoutGuard{cache: c, threshold: threshold, ttl: ttl}
}
