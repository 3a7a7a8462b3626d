package domain_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
)

func TestParseIdentity(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "alice", want: "alice"},
		{in: "  Alice@Example.COM ", want: "alice@example.com"},
		{in: "my-user-01", want: "my-user-01"},
		{in: "ab", wantErr: true},
		{in: "", wantErr: true},
		{in: "has space", wantErr: true},
		{in: "under_score", wantErr: true},
		{in: "not-an-email@", wantErr: true},
	}
	for _, tc := range cases {
		got, err := domain.ParseIdentity(tc.in)
		if tc.wantErr {
			if !errors.Is(err, domain.ErrInvalidCredentialFormat) {
				t.Errorf("ParseIdentity(%q): want ErrInvalidCredentialFormat, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseIdentity(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseIdentity(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDefaultDisplayName(t *testing.T) {
	if got := domain.DefaultDisplayName("bob@example.com"); got != "bob" {
		t.Errorf("email: got %q, want bob", got)
	}
	if got := domain.DefaultDisplayName("alice"); got != "alice" {
		t.Errorf("user id: got %q, want alice", got)
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	a := domain.HashToken("raw-token")
	b := domain.HashToken("raw-token")
	if !bytes.Equal(a, b) {
		t.Fatal("same token hashed differently")
	}
	if bytes.Equal(a, domain.HashToken("other-token")) {
		t.Fatal("different tokens share a hash")
	}
	if len(a) != 32 {
		t.Fatalf("hash length = %d, want 32", len(a))
	}
}

func TestAuthError_MatchesClassAndReason(t *testing.T) {
	err := domain.Unauthenticated(domain.ErrTokenAlreadyUsed)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Error("want class ErrUnauthenticated")
	}
	if !errors.Is(err, domain.ErrTokenAlreadyUsed) {
		t.Error("want reason ErrTokenAlreadyUsed")
	}
	if got := domain.Reason(err); got != "already_used" {
		t.Errorf("Reason = %q, want already_used", got)
	}
}

func TestRateLimitedError_IsErrRateLimited(t *testing.T) {
	var err error = &domain.RateLimitedError{RetryAfterSeconds: 12}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatal("want errors.Is(err, ErrRateLimited)")
	}
	var rl *domain.RateLimitedError
	if !errors.As(err, &rl) || rl.RetryAfterSeconds != 12 {
		t.Fatalf("errors.As failed or wrong retry-after: %+v", rl)
	}
}
