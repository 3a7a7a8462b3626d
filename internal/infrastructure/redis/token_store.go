package redis

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Records outlive their expiry by this much so an expired lookup can still be
// told apart from an unknown token.
const defaultTokenGrace = 24 * time.Hour

// putScript refuses to overwrite an existing hash.
var putScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'owner', ARGV[1], 'expires_at', ARGV[2], 'created_at', ARGV[3], 'used', '0')
redis.call('PEXPIREAT', KEYS[1], ARGV[4])
return 1
`)

// claimScript is the atomic check-and-mark. Scripts run without interleaving
// on the server.
var claimScript = goredis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'owner', 'expires_at', 'used', 'created_at')
if not rec[1] then
  return {'not_found'}
end
if rec[3] == '1' then
  return {'already_used'}
end
if tonumber(rec[2]) <= tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return {'expired'}
end
redis.call('HSET', KEYS[1], 'used', '1', 'used_at', ARGV[1])
return {'ok', rec[1], rec[2], rec[4]}
`)

type TokenStore struct {
	rdb    goredis.UniversalClient
	prefix string
	grace  time.Duration
	now    func() time.Time
}

func NewTokenStore(rdb goredis.UniversalClient) *TokenStore {
	return &TokenStore{rdb: rdb, prefix: defaultPrefix, grace: defaultTokenGrace, now: time.Now}
}

func (s *TokenStore) key(hash []byte) string {
	return s.prefix + ":ml:" + hex.EncodeToString(hash)
}

func (s *TokenStore) Put(ctx context.Context, hash []byte, ownerIdentity string, expiresAt time.Time) error {
	ok, err := putScript.Run(ctx, s.rdb, []string{s.key(hash)},
		ownerIdentity,
		expiresAt.UnixMilli(),
		s.now().UnixMilli(),
		expiresAt.Add(s.grace).UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("put magic link: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if ok == 0 {
		return domain.ErrDuplicateToken
	}
	return nil
}

func (s *TokenStore) GetAndMarkUsedIfValid(ctx context.Context, hash []byte, now time.Time) (*domain.MagicLinkRecord, error) {
	res, err := claimScript.Run(ctx, s.rdb, []string{s.key(hash)}, now.UnixMilli()).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claim magic link: %w: %w", domain.ErrStoreUnavailable, err)
	}

	switch res[0] {
	case "not_found":
		return nil, domain.ErrTokenNotFound
	case "already_used":
		return nil, domain.ErrTokenAlreadyUsed
	case "expired":
		return nil, domain.ErrTokenExpired
	case "ok":
	default:
		return nil, fmt.Errorf("claim magic link: unexpected reply %q: %w", res[0], domain.ErrStoreUnavailable)
	}
	if len(res) != 4 {
		return nil, fmt.Errorf("claim magic link: short reply: %w", domain.ErrStoreUnavailable)
	}

	expiresAt, err := parseMillis(res[2])
	if err != nil {
		return nil, fmt.Errorf("claim magic link: %w: %w", domain.ErrStoreUnavailable, err)
	}
	createdAt, err := parseMillis(res[3])
	if err != nil {
		return nil, fmt.Errorf("claim magic link: %w: %w", domain.ErrStoreUnavailable, err)
	}

	usedAt := now
	return &domain.MagicLinkRecord{
		TokenHash:     append([]byte(nil), hash...),
		OwnerIdentity: res[1],
		Used:          true,
		ExpiresAt:     expiresAt,
		CreatedAt:     createdAt,
		UsedAt:        &usedAt,
	}, nil
}

func (s *TokenStore) Delete(ctx context.Context, hash []byte) error {
	if err := s.rdb.Del(ctx, s.key(hash)).Err(); err != nil {
		return fmt.Errorf("delete magic link: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired is a no-op: keys carry their own TTL.
func (s *TokenStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func parseMillis(v string) (time.Time, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return time.UnixMilli(ms), nil
}
