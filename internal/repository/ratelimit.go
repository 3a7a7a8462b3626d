package repository

import (
	"context"
	"time"
)

// RateLimitStore holds fixed-window request counters.
type RateLimitStore interface {
	// Increment atomically creates the (identity, windowStart) counter at 1 or
	// adds 1 to it, returning the new count. The counter must be kept for at
	// least ttl after windowStart.
	Increment(ctx context.Context, identity string, windowStart time.Time, ttl time.Duration) (int64, error)

	// DeleteBefore removes windows that started before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
