// Package token signs and verifies the compact tokens used for magic links
// and sessions. Tokens are HS256 JWTs carrying a type discriminant so a token
// minted for one purpose cannot be replayed for the other.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "magic-auth"

// Payload is the typed content of a signed token.
type Payload struct {
	Type      domain.TokenType
	Subject   string // identity for magic links, internal user id for sessions
	Identity  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type claims struct {
	Type     domain.TokenType `json:"type"`
	Identity string           `json:"identity,omitempty"`
	jwt.RegisteredClaims
}

type Codec struct {
	key    []byte
	issuer string
	now    func() time.Time
}

type Option func(*Codec)

// WithClock overrides the time source used for iat, exp and verification.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func WithIssuer(issuer string) Option {
	return func(c *Codec) { c.issuer = issuer }
}

func NewCodec(key []byte, opts ...Option) *Codec {
	c := &Codec{key: key, issuer: defaultIssuer, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs p and returns the token together with its expiry.
// IssuedAt and ExpiresAt on p are ignored and derived from the clock.
func (c *Codec) Issue(p Payload, ttl time.Duration) (string, time.Time, error) {
	if p.Type == "" || p.Subject == "" {
		return "", time.Time{}, fmt.Errorf("issue token: %w", domain.ErrMalformedPayload)
	}
	now := c.now()
	exp := now.Add(ttl)
	cl := claims{
		Type:     p.Type,
		Identity: p.Identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, cl.ExpiresAt.Time, nil
}

// Verify checks the signature, then expiry, then that the token carries the
// wanted type. Failures wrap ErrInvalidSignature, ErrTokenExpired,
// ErrMalformedPayload or ErrWrongTokenType.
func (c *Codec) Verify(raw string, want domain.TokenType) (*Payload, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.issuer),
	)
	if err != nil {
		return nil, classify(err)
	}

	if cl.Type == "" || cl.Subject == "" || cl.IssuedAt == nil {
		return nil, domain.ErrMalformedPayload
	}
	if cl.Type != want {
		return nil, fmt.Errorf("%w: got %q, want %q", domain.ErrWrongTokenType, cl.Type, want)
	}

	return &Payload{
		Type:      cl.Type,
		Subject:   cl.Subject,
		Identity:  cl.Identity,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
}
