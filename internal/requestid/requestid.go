package requestid

import (
	"context"
	"regexp"

	"github.com/google/uuid"
)

// Header is the HTTP header carrying the request ID in both directions.
const Header = "X-Request-ID"

type ctxKey struct{}

// Incoming IDs are echoed into logs and response headers, so only a
// conservative charset is accepted.
var validID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// New generates a random UUID v4 request ID.
func New() string {
	return uuid.NewString()
}

// FromHeader returns the client-supplied ID when it is well formed, or a
// fresh one otherwise.
func FromHeader(v string) string {
	if validID.MatchString(v) {
		return v
	}
	return New()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request ID from ctx. Returns "" if absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
