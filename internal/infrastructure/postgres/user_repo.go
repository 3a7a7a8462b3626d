package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindOrCreate relies on the unique identity column: concurrent first logins
// for the same identity converge on one row. The no-op DO UPDATE makes
// RETURNING yield the existing row on conflict.
func (r *UserRepository) FindOrCreate(ctx context.Context, identity, displayName string) (*domain.User, error) {
	query := `
		INSERT INTO users (identity, display_name)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO UPDATE SET identity = EXCLUDED.identity
		RETURNING id, identity, display_name, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query, identity, displayName)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, identity, display_name, created_at, updated_at FROM users WHERE id = $1`

	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByIdentity(ctx context.Context, identity string) (*domain.User, error) {
	query := `SELECT id, identity, display_name, created_at, updated_at FROM users WHERE identity = $1`

	return scanUser(r.pool.QueryRow(ctx, query, identity))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Identity, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		// invalid_text_representation: the id is not a uuid, so no such user
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return &u, nil
}
