// Package sweeper removes expired magic-link records and stale rate-limit
// windows on a cron schedule.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/metrics"
	"github.com/ErlanBelekov/magic-auth/internal/repository"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = time.Minute

type Sweeper struct {
	tokens    repository.TokenStore
	limits    repository.RateLimitStore
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Sweeper)

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// New returns a sweeper that keeps rate-limit windows for retention after
// they start.
func New(tokens repository.TokenStore, limits repository.RateLimitStore, retention time.Duration, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		tokens:    tokens,
		limits:    limits,
		retention: retention,
		logger:    logger.With("component", "sweeper"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepTokens deletes magic-link records that expired before now, used or not.
func (s *Sweeper) SweepTokens(ctx context.Context) (int64, error) {
	return s.run(ctx, "magic_link", func(ctx context.Context) (int64, error) {
		return s.tokens.DeleteExpired(ctx, s.now())
	})
}

// SweepRateLimits deletes windows that started more than retention ago.
func (s *Sweeper) SweepRateLimits(ctx context.Context) (int64, error) {
	return s.run(ctx, "rate_limit", func(ctx context.Context) (int64, error) {
		return s.limits.DeleteBefore(ctx, s.now().Add(-s.retention))
	})
}

func (s *Sweeper) run(ctx context.Context, kind string, fn func(context.Context) (int64, error)) (int64, error) {
	start := time.Now()
	n, err := fn(ctx)
	metrics.SweepCycleDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep failed", "kind", kind, "error", err)
		return 0, fmt.Errorf("sweep %s: %w", kind, err)
	}

	metrics.SweepDeletedTotal.WithLabelValues(kind).Add(float64(n))
	if n > 0 {
		s.logger.InfoContext(ctx, "swept expired records", "kind", kind, "deleted", n)
	}
	return n, nil
}

// Start schedules both sweeps and blocks until ctx is cancelled. Running
// jobs are allowed to finish before it returns.
func (s *Sweeper) Start(ctx context.Context, tokensSpec, limitsSpec string) error {
	clog := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))

	if _, err := c.AddFunc(tokensSpec, func() { s.sweepOnce(ctx, s.SweepTokens) }); err != nil {
		return fmt.Errorf("schedule token sweep %q: %w", tokensSpec, err)
	}
	if _, err := c.AddFunc(limitsSpec, func() { s.sweepOnce(ctx, s.SweepRateLimits) }); err != nil {
		return fmt.Errorf("schedule rate limit sweep %q: %w", limitsSpec, err)
	}

	s.logger.Info("sweeper started", "tokens", tokensSpec, "rate_limits", limitsSpec, "retention", s.retention)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("sweeper shut down")
	return nil
}

func (s *Sweeper) sweepOnce(ctx context.Context, fn func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	_, _ = fn(ctx) // logged in run
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
