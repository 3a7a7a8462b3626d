package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/ErlanBelekov/magic-auth/internal/metrics"
	"github.com/ErlanBelekov/magic-auth/internal/token"
)

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// IssueSessionFor finds or creates the user for identity and mints a session
// token bound to the user's internal id.
func (u *AuthUsecase) IssueSessionFor(ctx context.Context, identity string) (*Session, error) {
	user, err := u.users.FindOrCreate(ctx, identity, domain.DefaultDisplayName(identity))
	if err != nil {
		return nil, storeErr("find or create user", err)
	}

	signed, expiresAt, err := u.codec.Issue(token.Payload{
		Type:     domain.TokenTypeSession,
		Subject:  user.ID,
		Identity: user.Identity,
	}, u.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &Session{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

// DevLogin issues a session without a magic link. Refused in production.
func (u *AuthUsecase) DevLogin(ctx context.Context, rawIdentity string) (*Session, error) {
	if u.production() {
		return nil, domain.ErrDevLoginDisabled
	}
	identity, err := domain.ParseIdentity(rawIdentity)
	if err != nil {
		return nil, err
	}

	sess, err := u.IssueSessionFor(ctx, identity)
	if err != nil {
		return nil, err
	}
	metrics.SessionsIssuedTotal.WithLabelValues("dev_login").Inc()
	u.logger.WarnContext(ctx, "dev login", "identity", identity, "user_id", sess.User.ID)
	return sess, nil
}
