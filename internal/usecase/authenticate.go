package usecase

import (
	"context"
	"errors"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/ErlanBelekov/magic-auth/internal/metrics"
)

// Authenticate resolves a session token to its user. A token whose user no
// longer exists is rejected.
func (u *AuthUsecase) Authenticate(ctx context.Context, raw string) (*domain.User, error) {
	user, err := u.authenticate(ctx, raw)
	metrics.AuthenticationsTotal.WithLabelValues(domain.Reason(err)).Inc()
	return user, err
}

func (u *AuthUsecase) authenticate(ctx context.Context, raw string) (*domain.User, error) {
	if raw == "" {
		return nil, domain.Unauthenticated(domain.ErrMalformedPayload)
	}

	p, err := u.codec.Verify(raw, domain.TokenTypeSession)
	if err != nil {
		return nil, domain.Unauthenticated(err)
	}

	user, err := u.users.FindByID(ctx, p.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Unauthenticated(err)
		}
		return nil, storeErr("find session user", err)
	}
	return user, nil
}
