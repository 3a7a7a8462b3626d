package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/email"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/backend"
	"github.com/ErlanBelekov/magic-auth/internal/ratelimit"
	"github.com/ErlanBelekov/magic-auth/internal/token"
	"github.com/ErlanBelekov/magic-auth/internal/usecase"
	"github.com/spf13/cobra"
)

func newLinkCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "link <identity>",
		Short: "Issue a magic link without sending it",
		Long: `Stores a fresh magic link for identity and prints it. The link is subject to
the normal TTL and single-use rules but not to the login rate limit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withUsecase(cmd.Context(), func(uc *usecase.AuthUsecase) error {
				link, expiresAt, err := uc.IssueLink(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", link, expiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
}

func newSessionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "session <identity>",
		Short: "Mint a session token for identity (refused in production)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withUsecase(cmd.Context(), func(uc *usecase.AuthUsecase) error {
				sess, err := uc.DevLogin(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\nuser %s expires %s\n",
					sess.Token, sess.User.ID, sess.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
}

func (e *env) withUsecase(ctx context.Context, fn func(*usecase.AuthUsecase) error) error {
	stores, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer stores.Close()

	return fn(e.usecase(stores))
}

func (e *env) usecase(stores *backend.Stores) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(
		stores.Users,
		stores.Tokens,
		ratelimit.New(stores.Limits, e.logger),
		token.NewCodec([]byte(e.cfg.JWTSecret)),
		email.NewLogSender(e.logger),
		usecase.AuthConfig{
			Env:             e.cfg.Env,
			MagicLinkBase:   e.cfg.MagicLinkBase,
			MagicLinkTTL:    e.cfg.MagicLinkTTL,
			SessionTTL:      e.cfg.SessionTTL,
			RateLimitWindow: e.cfg.RateLimitWindow,
			RateLimitQuota:  e.cfg.RateLimitQuota,
		},
		e.logger,
	)
}
