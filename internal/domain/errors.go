package domain

import (
	"errors"
	"fmt"
)

// Error classes surfaced at the API boundary.
var (
	ErrInvalidCredentialFormat = errors.New("invalid credential format")
	ErrUnauthenticated         = errors.New("unauthenticated")
	ErrRateLimited             = errors.New("too many requests")
	ErrSystemUnavailable       = errors.New("system unavailable")
	ErrDevLoginDisabled        = errors.New("dev login is only available outside production")
	ErrDeliveryFailed          = errors.New("magic link delivery failed")
)

// Internal reasons. They are logged and counted but collapsed into one of
// the classes above before reaching a client.
var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired     = errors.New("token has expired")
	ErrMalformedPayload = errors.New("token payload is malformed")
	ErrWrongTokenType   = errors.New("token type mismatch")
	ErrTokenNotFound    = errors.New("magic link not found")
	ErrTokenAlreadyUsed = errors.New("magic link already used")
	ErrDuplicateToken   = errors.New("magic link already stored")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUserNotFound     = errors.New("user not found")
)

// AuthError pairs an API-facing class with the internal reason.
// errors.Is matches both.
type AuthError struct {
	Class  error
	Reason error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%v: %v", e.Class, e.Reason)
}

func (e *AuthError) Unwrap() []error {
	return []error{e.Class, e.Reason}
}

// Unauthenticated wraps reason in the ErrUnauthenticated class.
func Unauthenticated(reason error) error {
	return &AuthError{Class: ErrUnauthenticated, Reason: reason}
}

// Unavailable wraps reason in the ErrSystemUnavailable class.
func Unavailable(reason error) error {
	return &AuthError{Class: ErrSystemUnavailable, Reason: reason}
}

// InvalidFormat wraps reason in the ErrInvalidCredentialFormat class.
func InvalidFormat(reason error) error {
	return &AuthError{Class: ErrInvalidCredentialFormat, Reason: reason}
}

// RateLimitedError is returned when an identity exhausted its quota for the
// current window.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, retry in %d seconds", e.RetryAfterSeconds)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// Reason returns a short label for the most specific known cause of err,
// used as a metrics label and log attribute.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, ErrWrongTokenType):
		return "wrong_type"
	case errors.Is(err, ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, ErrTokenAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrSystemUnavailable):
		return "unavailable"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidCredentialFormat):
		return "invalid_format"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	default:
		return "error"
	}
}
