package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RateLimitStore struct {
	pool *pgxpool.Pool
}

func NewRateLimitStore(pool *pgxpool.Pool) *RateLimitStore {
	return &RateLimitStore{pool: pool}
}

// Increment is a single upsert so concurrent requests in the same window
// never read a stale count. Retention is handled by DeleteBefore, so ttl is
// unused here.
func (s *RateLimitStore) Increment(ctx context.Context, identity string, windowStart time.Time, _ time.Duration) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rate_limit_windows (identity, window_start, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (identity, window_start)
		DO UPDATE SET count = rate_limit_windows.count + 1
		RETURNING count`, identity, windowStart).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment rate limit window: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return count, nil
}

func (s *RateLimitStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rate_limit_windows WHERE window_start < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete rate limit windows: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
