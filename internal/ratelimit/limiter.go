// Package ratelimit enforces fixed-window request quotas per identity.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/ErlanBelekov/magic-auth/internal/metrics"
	"github.com/ErlanBelekov/magic-auth/internal/repository"
)

var errInvalidQuota = errors.New("rate limit window and quota must be positive")

type Decision struct {
	Allowed     bool
	Count       int64
	WindowStart time.Time
	RetryAfter  time.Duration // zero when allowed
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int((d.RetryAfter + time.Second - 1) / time.Second)
}

type Limiter struct {
	store  repository.RateLimitStore
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store repository.RateLimitStore, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		logger: logger.With("component", "rate_limiter"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WindowStart floors now to a multiple of size counted from the Unix epoch.
func WindowStart(now time.Time, size time.Duration) time.Time {
	n := now.UnixNano()
	return time.Unix(0, n-n%int64(size)).UTC()
}

// Consume records one attempt for identity and decides whether it fits the
// quota. A store failure denies the request with ErrSystemUnavailable; the
// limiter never fails open.
func (l *Limiter) Consume(ctx context.Context, identity string, window time.Duration, limit int) (Decision, error) {
	if window <= 0 || limit < 1 {
		return Decision{}, fmt.Errorf("consume: %w", errInvalidQuota)
	}

	now := l.now()
	start := WindowStart(now, window)

	count, err := l.store.Increment(ctx, identity, start, window)
	if err != nil {
		metrics.RateLimitDecisionsTotal.WithLabelValues("unavailable").Inc()
		l.logger.ErrorContext(ctx, "rate limit store failed, denying request", "identity", identity, "error", err)
		return Decision{}, domain.Unavailable(err)
	}

	d := Decision{Allowed: count <= int64(limit), Count: count, WindowStart: start}
	if d.Allowed {
		metrics.RateLimitDecisionsTotal.WithLabelValues("allowed").Inc()
		return d, nil
	}

	d.RetryAfter = start.Add(window).Sub(now)
	if d.RetryAfter < time.Second {
		d.RetryAfter = time.Second
	}
	metrics.RateLimitDecisionsTotal.WithLabelValues("denied").Inc()
	l.logger.WarnContext(ctx, "rate limit exceeded",
		"identity", identity, "count", count, "limit", limit, "retry_after", d.RetryAfter)
	return d, nil
}
