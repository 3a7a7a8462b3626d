package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if e.cfg.StoreBackend == "memory" {
				return errors.New("migrate needs a Postgres-backed STORE_BACKEND")
			}
			stores, err := e.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer stores.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
