package domain

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxIdentityLen = 254

var (
	userIDPattern = regexp.MustCompile(`^[a-z0-9-]{3,64}$`)
	validate      = validator.New()
)

// NormalizeIdentity lowercases and trims an external identity.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// ValidIdentity reports whether a normalized identity is an email address or
// a user-id of 3-64 lowercase letters, digits or hyphens.
func ValidIdentity(identity string) bool {
	if identity == "" || len(identity) > maxIdentityLen {
		return false
	}
	if userIDPattern.MatchString(identity) {
		return true
	}
	return validate.Var(identity, "email") == nil
}

// ParseIdentity normalizes and validates identity in one step.
func ParseIdentity(identity string) (string, error) {
	id := NormalizeIdentity(identity)
	if !ValidIdentity(id) {
		return "", InvalidFormat(fmt.Errorf("identity %q: must be an email or a user id", identity))
	}
	return id, nil
}

// DefaultDisplayName derives a display name from an identity: the local part
// of an email, or the user-id itself.
func DefaultDisplayName(identity string) string {
	if at := strings.IndexByte(identity, '@'); at > 0 {
		return identity[:at]
	}
	return identity
}

// HashToken returns the digest under which a raw magic-link token is stored.
func HashToken(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}
