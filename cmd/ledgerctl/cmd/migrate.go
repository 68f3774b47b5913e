package cmd

import (
	"fmt"

	"github.com/simpleaccounts/ledger-core/internal/migration"
	"github.com/simpleaccounts/ledger-core/internal/platform/config"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var steps int

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.LedgerStore != config.StorePostgres {
				fmt.Fprintln(cmd.OutOrStdout(), "bolt store creates its buckets on open; nothing to migrate")
				return nil
			}
			version, err := migration.Up(opts.cfg.DatabaseURL, opts.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.LedgerStore != config.StorePostgres {
				return fmt.Errorf("migrate down requires the postgres store")
			}
			return migration.Down(opts.cfg.DatabaseURL, steps, opts.logger)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(upCmd, downCmd)
	return migrateCmd
}
