package domain

import (
	"time"
)

// TokenType is the discriminant carried in every signed token.
type TokenType string

const (
	TokenTypeMagicLink TokenType = "magic-link"
	TokenTypeSession   TokenType = "session"
)

type User struct {
	ID          string
	Identity    string // email or user-id, unique
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MagicLinkRecord is the redemption state of one issued magic link.
// Only the digest of the raw token is ever stored.
type MagicLinkRecord struct {
	TokenHash     []byte
	OwnerIdentity string
	Used          bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UsedAt        *time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r *MagicLinkRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type RateLimitWindow struct {
	Identity    string
	WindowStart time.Time
	Count       int64
}
