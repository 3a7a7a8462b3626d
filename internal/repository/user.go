package repository

import (
	"context"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
)

// UserRepository is the external user-record store. FindOrCreate must be a
// single atomic operation keyed on the unique identity.
type UserRepository interface {
	FindOrCreate(ctx context.Context, identity, displayName string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByIdentity(ctx context.Context, identity string) (*domain.User, error)
}
