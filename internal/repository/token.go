package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
)

// TokenStore persists magic-link redemption state keyed by token hash.
type TokenStore interface {
	Put(ctx context.Context, hash []byte, ownerIdentity string, expiresAt time.Time) error

	// GetAndMarkUsedIfValid atomically checks and claims a record. Exactly one
	// concurrent caller per hash gets the record; the rest see
	// ErrTokenAlreadyUsed. An expired unused record is deleted and reported as
	// ErrTokenExpired; an unknown hash is ErrTokenNotFound.
	GetAndMarkUsedIfValid(ctx context.Context, hash []byte, now time.Time) (*domain.MagicLinkRecord, error)

	Delete(ctx context.Context, hash []byte) error

	// DeleteExpired removes records whose expiry is before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
