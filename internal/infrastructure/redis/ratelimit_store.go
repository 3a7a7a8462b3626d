package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

type RateLimitStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRateLimitStore(rdb goredis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{rdb: rdb, prefix: defaultPrefix}
}

func (s *RateLimitStore) key(identity string, windowStart time.Time) string {
	return s.prefix + ":rl:" + identity + ":" + strconv.FormatInt(windowStart.Unix(), 10)
}

// Increment runs INCR and PEXPIREAT in one MULTI/EXEC.
func (s *RateLimitStore) Increment(ctx context.Context, identity string, windowStart time.Time, ttl time.Duration) (int64, error) {
	key := s.key(identity, windowStart)

	var incr *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.PExpireAt(ctx, key, windowStart.Add(ttl))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment rate limit window: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return incr.Val(), nil
}

// DeleteBefore is a no-op: window keys expire on their own.
func (s *RateLimitStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}
