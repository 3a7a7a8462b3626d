package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokenStore struct {
	pool *pgxpool.Pool
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

func (s *TokenStore) Put(ctx context.Context, hash []byte, ownerIdentity string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO magic_link_tokens (token_hash, owner_identity, expires_at) VALUES ($1, $2, $3)`,
		hash, ownerIdentity, expiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateToken
		}
		return fmt.Errorf("insert magic link: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// GetAndMarkUsedIfValid runs inside one transaction. FOR UPDATE serialises
// concurrent redemptions of the same hash: the second one blocks until the
// first commits and then reads used = true.
func (s *TokenStore) GetAndMarkUsedIfValid(ctx context.Context, hash []byte, now time.Time) (*domain.MagicLinkRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	row := tx.QueryRow(ctx, `
		SELECT token_hash, owner_identity, used, expires_at, created_at, used_at
		FROM   magic_link_tokens
		WHERE  token_hash = $1
		FOR UPDATE`, hash)

	rec, err := scanMagicLink(row)
	if err != nil {
		return nil, err
	}

	if rec.Used {
		return nil, domain.ErrTokenAlreadyUsed
	}

	if rec.Expired(now) {
		if _, err := tx.Exec(ctx, `DELETE FROM magic_link_tokens WHERE token_hash = $1`, hash); err != nil {
			return nil, fmt.Errorf("delete expired magic link: %w: %w", domain.ErrStoreUnavailable, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit expired delete: %w: %w", domain.ErrStoreUnavailable, err)
		}
		return nil, domain.ErrTokenExpired
	}

	if _, err := tx.Exec(ctx,
		`UPDATE magic_link_tokens SET used = TRUE, used_at = $2 WHERE token_hash = $1`,
		hash, now,
	); err != nil {
		return nil, fmt.Errorf("mark magic link used: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w: %w", domain.ErrStoreUnavailable, err)
	}

	usedAt := now
	rec.Used = true
	rec.UsedAt = &usedAt
	return rec, nil
}

func (s *TokenStore) Delete(ctx context.Context, hash []byte) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM magic_link_tokens WHERE token_hash = $1`, hash); err != nil {
		return fmt.Errorf("delete magic link: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *TokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM magic_link_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic links: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

func scanMagicLink(row pgx.Row) (*domain.MagicLinkRecord, error) {
	var rec domain.MagicLinkRecord
	err := row.Scan(&rec.TokenHash, &rec.OwnerIdentity, &rec.Used, &rec.ExpiresAt, &rec.CreatedAt, &rec.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("scan magic link: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return &rec, nil
}
