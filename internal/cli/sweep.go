package cli

import (
	"fmt"

	"github.com/ErlanBelekov/magic-auth/internal/sweeper"
	"github.com/spf13/cobra"
)

func newSweepCmd(e *env) *cobra.Command {
	var tokens, limits bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired magic links and old rate-limit windows once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("tokens") && !cmd.Flags().Changed("rate-limits") {
				tokens, limits = true, true
			}

			stores, err := e.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer stores.Close()

			sw := sweeper.New(stores.Tokens, stores.Limits, e.cfg.RateLimitRetention, e.logger)
			out := cmd.OutOrStdout()

			if tokens {
				n, err := sw.SweepTokens(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "magic links deleted: %d\n", n)
			}
			if limits {
				n, err := sw.SweepRateLimits(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "rate limit windows deleted: %d\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tokens, "tokens", false, "sweep expired magic links")
	cmd.Flags().BoolVar(&limits, "rate-limits", false, "sweep rate-limit windows older than RATE_LIMIT_RETENTION")
	return cmd
}
