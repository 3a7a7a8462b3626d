package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
	// Channel names the transport for logs and metrics.
	Channel() string
}

// LogSender logs emails instead of sending them. Used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "email")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "magic link email (local dev)", "to", to, "subject", subject, "body", body)
	return nil
}

func (s *LogSender) Channel() string { return "log" }

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *ResendSender) Channel() string { return "resend" }

// NewSender returns a LogSender for ENV=local, ResendSender otherwise.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return NewLogSender(logger)
	}
	return NewResendSender(apiKey, from)
}

const magicLinkSubject = "Your sign-in link"

var magicLinkTmpl = template.Must(template.New("magic-link").Parse(
	`<p>Click the link below to sign in (expires in {{.Minutes}} minutes):</p>` +
		`<p><a href="{{.Link}}">{{.Link}}</a></p>` +
		`<p>If you didn't request this, you can ignore this email.</p>`,
))

// MagicLinkMessage renders the subject and HTML body for a sign-in email.
func MagicLinkMessage(link string, ttl time.Duration) (string, string, error) {
	var buf bytes.Buffer
	err := magicLinkTmpl.Execute(&buf, struct {
		Link    string
		Minutes int
	}{Link: link, Minutes: int(ttl.Minutes())})
	if err != nil {
		return "", "", fmt.Errorf("render magic link email: %w", err)
	}
	return magicLinkSubject, buf.String(), nil
}
