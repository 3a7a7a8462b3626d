// Package cli implements authctl, the operator command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ErlanBelekov/magic-auth/config"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/backend"
	ctxlog "github.com/ErlanBelekov/magic-auth/internal/log"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// env holds what every subcommand needs. It is filled in PersistentPreRunE.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "authctl",
		Short: "Operate the magic-link auth service",
		Long: `authctl runs maintenance tasks against the stores configured through the
same environment variables as the server (STORE_BACKEND, DATABASE_URL, ...).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = slog.New(ctxlog.NewContextHandler(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
				Level: cfg.SlogLevel(),
			})))
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(e),
		newSweepCmd(e),
		newLinkCmd(e),
		newSessionCmd(e),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (e *env) open(ctx context.Context, migrate bool) (*backend.Stores, error) {
	stores, err := backend.Open(ctx, e.cfg, e.logger, migrate)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	return stores, nil
}
