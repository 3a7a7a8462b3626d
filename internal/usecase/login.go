package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/ErlanBelekov/magic-auth/internal/email"
	"github.com/ErlanBelekov/magic-auth/internal/metrics"
	"github.com/ErlanBelekov/magic-auth/internal/token"
)

type LoginResult struct {
	Delivered bool
	Link      string // only set in ENV=local
}

// RequestLogin rate-limits the identity, issues a magic-link token, stores
// its hash and delivers the link. Outside local the identity must be an
// email address since that is the only delivery channel.
func (u *AuthUsecase) RequestLogin(ctx context.Context, rawIdentity string) (*LoginResult, error) {
	res, err := u.requestLogin(ctx, rawIdentity)
	metrics.LoginRequestsTotal.WithLabelValues(loginOutcome(err)).Inc()
	return res, err
}

func (u *AuthUsecase) requestLogin(ctx context.Context, rawIdentity string) (*LoginResult, error) {
	identity, err := domain.ParseIdentity(rawIdentity)
	if err != nil {
		return nil, err
	}
	if !u.local() && !strings.Contains(identity, "@") {
		return nil, domain.InvalidFormat(errors.New("a magic link can only be sent to an email address"))
	}

	decision, err := u.limiter.Consume(ctx, identity, u.cfg.RateLimitWindow, u.cfg.RateLimitQuota)
	if err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	if !decision.Allowed {
		return nil, &domain.RateLimitedError{RetryAfterSeconds: decision.RetryAfterSeconds()}
	}

	link, hash, expiresAt, err := u.issueLink(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := u.deliver(ctx, identity, link); err != nil {
		// An undeliverable link can never be redeemed; drop it.
		if delErr := u.tokens.Delete(ctx, hash); delErr != nil {
			u.logger.WarnContext(ctx, "delete undelivered magic link", "error", delErr)
		}
		return nil, err
	}

	u.logger.InfoContext(ctx, "magic link issued", "identity", identity, "expires_at", expiresAt, "channel", u.email.Channel())

	res := &LoginResult{Delivered: true}
	if u.local() {
		res.Link = link
	}
	return res, nil
}

// IssueLink stores and returns a magic link for identity without rate
// limiting or delivery. Operator use only.
func (u *AuthUsecase) IssueLink(ctx context.Context, rawIdentity string) (string, time.Time, error) {
	identity, err := domain.ParseIdentity(rawIdentity)
	if err != nil {
		return "", time.Time{}, err
	}
	link, _, expiresAt, err := u.issueLink(ctx, identity)
	if err != nil {
		return "", time.Time{}, err
	}
	u.logger.WarnContext(ctx, "magic link issued out of band", "identity", identity, "expires_at", expiresAt)
	return link, expiresAt, nil
}

func (u *AuthUsecase) issueLink(ctx context.Context, identity string) (string, []byte, time.Time, error) {
	raw, expiresAt, err := u.codec.Issue(token.Payload{
		Type:     domain.TokenTypeMagicLink,
		Subject:  identity,
		Identity: identity,
	}, u.cfg.MagicLinkTTL)
	if err != nil {
		return "", nil, time.Time{}, fmt.Errorf("issue magic link: %w", err)
	}

	hash := domain.HashToken(raw)
	if err := u.tokens.Put(ctx, hash, identity, expiresAt); err != nil {
		return "", nil, time.Time{}, storeErr("store magic link", err)
	}

	link := u.cfg.MagicLinkBase + "/auth/verify?token=" + url.QueryEscape(raw)
	return link, hash, expiresAt, nil
}

func (u *AuthUsecase) deliver(ctx context.Context, identity, link string) error {
	subject, body, err := email.MagicLinkMessage(link, u.cfg.MagicLinkTTL)
	if err != nil {
		return err
	}

	start := time.Now()
	err = u.email.Send(ctx, identity, subject, body)
	metrics.DeliveryDuration.WithLabelValues(u.email.Channel()).Observe(time.Since(start).Seconds())
	if err != nil {
		u.logger.ErrorContext(ctx, "deliver magic link", "identity", identity, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return nil
}

func loginOutcome(err error) string {
	if err == nil {
		return "delivered"
	}
	return domain.Reason(err)
}
