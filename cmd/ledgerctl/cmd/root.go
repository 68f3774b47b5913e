// Package cmd provides the ledgerctl commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/simpleaccounts/ledger-core/internal/platform/config"
	"github.com/simpleaccounts/ledger-core/internal/platform/logging"
	"github.com/spf13/cobra"
)

// rootOptions are the global flags and the state PersistentPreRunE prepares for subcommands.
type rootOptions struct {
	store    string
	boltPath string
	debug    bool
	userID   string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the ledgerctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the double-entry ledger core",
		Long: `ledgerctl posts journals, reverses them and reports on the ledger.

Storage is chosen with LEDGER_STORE (postgres or bolt) or --store.

Example:
  ledgerctl seed --user admin
  ledgerctl post opening-balance 01-01-001 500 --user admin
  ledgerctl trial-balance`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.store, "store", "", "storage engine: postgres or bolt (overrides LEDGER_STORE)")
	rootCmd.PersistentFlags().StringVar(&opts.boltPath, "bolt-path", "", "bolt database file (overrides BOLT_PATH)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.userID, "user", "", "user recorded in audit columns")

	rootCmd.AddCommand(
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newCategoryCmd(opts),
		newRateCmd(opts),
		newPostCmd(opts),
		newReverseCmd(opts),
		newJournalCmd(opts),
		newTrialBalanceCmd(opts),
		newVerifyCmd(opts),
		newLedgerCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command with the process arguments.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func (o *rootOptions) prepare(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.store != "" {
		cfg.LedgerStore = o.store
	}
	if o.boltPath != "" {
		cfg.BoltPath = o.boltPath
	}
	switch cfg.LedgerStore {
	case config.StorePostgres, config.StoreBolt:
	default:
		return fmt.Errorf("invalid --store %q: expected %q or %q", cfg.LedgerStore, config.StorePostgres, config.StoreBolt)
	}

	level := cfg.LogLevel
	if o.debug {
		level = "debug"
	}
	o.logger = logging.NewLogger(cmd.ErrOrStderr(), level, cfg.IsProduction)
	slog.SetDefault(o.logger)
	o.cfg = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithCorrelationID(ctx, o.logger, cmd.CommandPath()))
	return nil
}

// requireUser returns the --user flag or an error naming the command that needs it.
func (o *rootOptions) requireUser(cmd *cobra.Command) (string, error) {
	if o.userID == "" {
		return "", fmt.Errorf("%s requires --user", cmd.CommandPath())
	}
	return o.userID, nil
}
