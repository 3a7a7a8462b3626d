package usecase

import (
	"context"
	"errors"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/ErlanBelekov/magic-auth/internal/metrics"
)

// Redeem verifies a magic-link token, claims it exactly once and issues a
// session for its owner. Every rejection wraps ErrUnauthenticated and keeps
// the specific reason reachable through errors.Is.
func (u *AuthUsecase) Redeem(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, u.rejectRedemption(ctx, domain.ErrMalformedPayload)
	}

	hash := domain.HashToken(raw)

	// Signature, expiry and type are checked before the store is consulted.
	if _, err := u.codec.Verify(raw, domain.TokenTypeMagicLink); err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			// The signature held, so the record is ours to drop.
			if delErr := u.tokens.Delete(ctx, hash); delErr != nil {
				u.logger.WarnContext(ctx, "delete expired magic link", "error", delErr)
			}
		}
		return nil, u.rejectRedemption(ctx, err)
	}

	rec, err := u.tokens.GetAndMarkUsedIfValid(ctx, hash, u.now())
	if err != nil {
		return nil, u.rejectRedemption(ctx, err)
	}

	sess, err := u.IssueSessionFor(ctx, rec.OwnerIdentity)
	if err != nil {
		metrics.RedemptionsTotal.WithLabelValues(domain.Reason(err)).Inc()
		u.logger.ErrorContext(ctx, "issue session after redemption", "identity", rec.OwnerIdentity, "error", err)
		return nil, err
	}

	metrics.RedemptionsTotal.WithLabelValues("ok").Inc()
	metrics.SessionsIssuedTotal.WithLabelValues("magic_link").Inc()
	u.logger.InfoContext(ctx, "magic link redeemed", "identity", rec.OwnerIdentity, "user_id", sess.User.ID)
	return sess, nil
}

func (u *AuthUsecase) rejectRedemption(ctx context.Context, reason error) error {
	label := domain.Reason(reason)
	metrics.RedemptionsTotal.WithLabelValues(label).Inc()

	if errors.Is(reason, domain.ErrStoreUnavailable) {
		u.logger.ErrorContext(ctx, "redeem magic link", "error", reason)
		return domain.Unavailable(reason)
	}
	u.logger.InfoContext(ctx, "magic link rejected", "reason", label)
	return domain.Unauthenticated(reason)
}
