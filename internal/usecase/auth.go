package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/ErlanBelekov/magic-auth/internal/email"
	"github.com/ErlanBelekov/magic-auth/internal/ratelimit"
	"github.com/ErlanBelekov/magic-auth/internal/repository"
	"github.com/ErlanBelekov/magic-auth/internal/token"
)

const (
	defaultMagicLinkTTL    = 15 * time.Minute
	defaultSessionTTL      = 7 * 24 * time.Hour
	defaultRateLimitWindow = time.Hour
	defaultRateLimitQuota  = 3
)

// RateLimiter is satisfied by *ratelimit.Limiter.
type RateLimiter interface {
	Consume(ctx context.Context, identity string, window time.Duration, limit int) (ratelimit.Decision, error)
}

type AuthConfig struct {
	Env             string // local, staging or production
	MagicLinkBase   string
	MagicLinkTTL    time.Duration
	SessionTTL      time.Duration
	RateLimitWindow time.Duration
	RateLimitQuota  int
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.MagicLinkTTL <= 0 {
		c.MagicLinkTTL = defaultMagicLinkTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = defaultRateLimitWindow
	}
	if c.RateLimitQuota <= 0 {
		c.RateLimitQuota = defaultRateLimitQuota
	}
	return c
}

type AuthUsecase struct {
	users   repository.UserRepository
	tokens  repository.TokenStore
	limiter RateLimiter
	codec   *token.Codec
	email   email.Sender
	cfg     AuthConfig
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*AuthUsecase)

// WithClock sets the time source used against the token store. Pass the
// same clock to the codec.
func WithClock(now func() time.Time) Option {
	return func(u *AuthUsecase) { u.now = now }
}

func NewAuthUsecase(
	users repository.UserRepository,
	tokens repository.TokenStore,
	limiter RateLimiter,
	codec *token.Codec,
	sender email.Sender,
	cfg AuthConfig,
	logger *slog.Logger,
	opts ...Option,
) *AuthUsecase {
	u := &AuthUsecase{
		users:   users,
		tokens:  tokens,
		limiter: limiter,
		codec:   codec,
		email:   sender,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "auth_usecase"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *AuthUsecase) local() bool      { return u.cfg.Env == "local" }
func (u *AuthUsecase) production() bool { return u.cfg.Env == "production" }

// SessionTTL is the lifetime of minted session tokens, used for cookie max-age.
func (u *AuthUsecase) SessionTTL() time.Duration { return u.cfg.SessionTTL }

// storeErr maps a repository failure to the API-facing class.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return domain.Unavailable(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
