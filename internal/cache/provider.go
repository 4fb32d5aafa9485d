package cache

import (
	"context"
	"errors"
	"time"
)

// Provider stores encoded filter results keyed by snapshot and criteria hash.
// Values are opaque JSON record lists; a key from an older snapshot is simply
// never asked for again, so implementations only need per-key expiry and no
// explicit invalidation. Get reports an absent or expired key as ErrCacheMiss.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss is returned by Get when no live entry exists for a key. Callers
// treat it as a signal to run the filter pipeline, not as a failure.
var ErrCacheMiss = errors.New("cache miss")

// NoopProvider is used when result caching is disabled or the configured
// backend is unreachable; every lookup misses.
type NoopProvider struct{}

// Get always returns ErrCacheMiss.
func (NoopProvider) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

// Set discards the value.
func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Del is a no-op.
func (NoopProvider) Del(context.Context, string) error { return nil }

// Close is a no-op.
func (NoopProvider) Close() error { return nil }
