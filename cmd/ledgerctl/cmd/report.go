package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/spf13/cobra"
)

func newJournalCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "journal JOURNAL_ID",
		Short: "Show a posted journal with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			journalID, err := parseJournalID(args[0])
			if err != nil {
				return err
			}
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				journal, err := l.svc.Ledger.GetJournal(cmd.Context(), journalID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.ToJournalResponse(journal))
			})
		},
	}
}

func newTrialBalanceCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	trialBalanceCmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "List every category balance on its debit or credit column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				report, err := l.svc.Ledger.TrialBalance(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), report)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(w, "CODE\tNAME\tDEBIT\tCREDIT\t")
				for _, row := range report.Rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", row.Code, row.Name, row.Debit.StringFixed(2), row.Credit.StringFixed(2))
				}
				fmt.Fprintf(w, "\tTOTAL\t%s\t%s\t\n", report.TotalDebit.StringFixed(2), report.TotalCredit.StringFixed(2))
				if err := w.Flush(); err != nil {
					return err
				}
				if !report.Balanced() {
					fmt.Fprintln(cmd.OutOrStdout(), "warning: trial balance does not balance")
				}
				return nil
			})
		},
	}
	trialBalanceCmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return trialBalanceCmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [CODE...]",
		Short: "Recompute running balances from posted lines",
		Long:  "Recompute running balances from posted lines. Without codes every live category is checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				codes := make([]domain.CategoryCode, 0, len(args))
				for _, a := range args {
					codes = append(codes, domain.CategoryCode(a))
				}
				if len(codes) == 0 {
					categories, err := l.svc.Categories.ListCategories(cmd.Context())
					if err != nil {
						return err
					}
					for _, c := range categories {
						codes = append(codes, c.Code)
					}
				}

				checks := make([]*domain.BalanceVerification, 0, len(codes))
				inconsistent := 0
				for _, code := range codes {
					check, err := l.svc.Ledger.VerifyCategoryBalance(cmd.Context(), code)
					if err != nil {
						return err
					}
					if !check.Consistent() {
						inconsistent++
					}
					checks = append(checks, check)
				}
				if err := printJSON(cmd.OutOrStdout(), checks); err != nil {
					return err
				}
				if inconsistent > 0 {
					return fmt.Errorf("%d of %d categories have inconsistent balances", inconsistent, len(checks))
				}
				return nil
			})
		},
	}
}

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	var (
		limit     int
		nextToken string
	)
	ledgerCmd := &cobra.Command{
		Use:   "ledger CODE",
		Short: "Page through a category's statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := dto.ListLedgerParams{Limit: limit}
			if nextToken != "" {
				params.NextToken = &nextToken
			}
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				page, err := l.svc.Ledger.ListCategoryLedger(cmd.Context(), domain.CategoryCode(args[0]), params)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), page)
			})
		},
	}
	ledgerCmd.Flags().IntVar(&limit, "limit", 0, "lines per page (default 50)")
	ledgerCmd.Flags().StringVar(&nextToken, "next-token", "", "token from the previous page")
	return ledgerCmd
}
