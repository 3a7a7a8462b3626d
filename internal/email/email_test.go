package email_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/email"
)

func TestMagicLinkMessage_EmbedsLinkAndTTL(t *testing.T) {
	link := "http://localhost:8080/auth/verify?token=abc.def.ghi"
	subject, body, err := email.MagicLinkMessage(link, 15*time.Minute)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject == "" {
		t.Error("empty subject")
	}
	if !strings.Contains(body, `href="http://localhost:8080/auth/verify?token=abc.def.ghi"`) {
		t.Errorf("body does not carry link: %s", body)
	}
	if !strings.Contains(body, "15 minutes") {
		t.Errorf("body does not mention ttl: %s", body)
	}
}

func TestNewSender_LocalLogs(t *testing.T) {
	s := email.NewSender("local", "", "", slog.Default())
	if s.Channel() != "log" {
		t.Fatalf("channel = %q, want log", s.Channel())
	}
	if err := s.Send(context.Background(), "a@example.com", "s", "b"); err != nil {
		t.Fatalf("log sender: %v", err)
	}
}

func TestNewSender_ProductionUsesResend(t *testing.T) {
	s := email.NewSender("production", "re_test", "auth@example.com", slog.Default())
	if s.Channel() != "resend" {
		t.Fatalf("channel = %q, want resend", s.Channel())
	}
}
