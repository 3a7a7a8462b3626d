package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/google/uuid"
)

type UserRepository struct {
	mu         sync.Mutex
	byID       map[string]*domain.User
	byIdentity map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[string]*domain.User),
		byIdentity: make(map[string]*domain.User),
	}
}

func (r *UserRepository) FindOrCreate(_ context.Context, identity, displayName string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byIdentity[identity]; ok {
		out := *u
		return &out, nil
	}

	now := time.Now()
	u := &domain.User{
		ID:          uuid.NewString(),
		Identity:    identity,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.byID[u.ID] = u
	r.byIdentity[identity] = u

	out := *u
	return &out, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *UserRepository) FindByIdentity(_ context.Context, identity string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byIdentity[identity]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// Delete removes a user. Sessions bound to it stop authenticating.
func (r *UserRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byIdentity, u.Identity)
		delete(r.byID, id)
	}
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
