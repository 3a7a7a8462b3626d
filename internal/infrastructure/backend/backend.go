// Package backend opens the stores selected by STORE_BACKEND.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/magic-auth/config"
	"github.com/ErlanBelekov/magic-auth/internal/health"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/memory"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/redis"
	"github.com/ErlanBelekov/magic-auth/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Stores struct {
	Users  repository.UserRepository
	Tokens repository.TokenStore
	Limits repository.RateLimitStore

	// Pingers feeds the readiness probe. Empty for the memory backend.
	Pingers map[string]health.Pinger
	// Pool is nil for the memory backend.
	Pool *pgxpool.Pool

	closers []func()
}

// Close releases every connection opened by Open, in reverse order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Open connects to the configured backend. Postgres schemas are migrated
// when migrate is set.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*Stores, error) {
	s := &Stores{Pingers: map[string]health.Pinger{}}

	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory stores; state is lost on restart and not shared between instances")
		s.Users = memory.NewUserRepository()
		s.Tokens = memory.NewTokenStore()
		s.Limits = memory.NewRateLimitStore()
		return s, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	s.Pool = pool
	s.closers = append(s.closers, pool.Close)
	s.Pingers["postgres"] = pool
	logger.Info("db connected")

	if migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	s.Users = postgres.NewUserRepository(pool)

	switch cfg.StoreBackend {
	case "postgres":
		s.Tokens = postgres.NewTokenStore(pool)
		s.Limits = postgres.NewRateLimitStore(pool)
	case "redis":
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = rdb.Close() })
		s.Pingers["redis"] = health.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		logger.Info("redis connected")

		s.Tokens = redis.NewTokenStore(rdb)
		s.Limits = redis.NewRateLimitStore(rdb)
	default:
		s.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	return s, nil
}
