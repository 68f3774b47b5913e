package cmd

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/spf13/cobra"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default system categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser(cmd)
			if err != nil {
				return err
			}
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				created, err := l.svc.Categories.SeedSystemCategories(cmd.Context(), userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d of %d system categories\n", created, len(domain.SystemCategories))
				return nil
			})
		},
	}
}

func newCategoryCmd(opts *rootOptions) *cobra.Command {
	categoryCmd := &cobra.Command{
		Use:   "category",
		Short: "Inspect and maintain transaction categories",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List live categories ordered by code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				categories, err := l.svc.Categories.ListCategories(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), categories)
			})
		},
	}

	var (
		ownerKind      string
		ownerID        int64
		parent         string
		parentCategory string
		name           string
		openingBalance string
	)
	createCmd := &cobra.Command{
		Use:   "create-owner",
		Short: "Create (or fetch) the sub-ledger category of an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser(cmd)
			if err != nil {
				return err
			}
			opening := decimal.Zero
			if openingBalance != "" {
				if opening, err = parseAmount(openingBalance); err != nil {
					return err
				}
			}
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				category, err := l.svc.Categories.CreateForOwner(cmd.Context(), dto.CreateOwnerCategoryRequest{
					OwnerKind:          domain.OwnerKind(ownerKind),
					OwnerID:            ownerID,
					ParentCode:         domain.ChartOfAccountCode(parent),
					ParentCategoryCode: domain.CategoryCode(parentCategory),
					Name:               name,
					OpeningBalance:     opening,
					UserID:             userID,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), category)
			})
		},
	}
	createCmd.Flags().StringVar(&ownerKind, "kind", "", "owner kind: CONTACT, EMPLOYEE, PAYROLL_COMPONENT or BANK_ACCOUNT")
	createCmd.Flags().Int64Var(&ownerID, "owner-id", 0, "owner identifier")
	createCmd.Flags().StringVar(&parent, "parent", "", "chart of account code, e.g. 01-03")
	createCmd.Flags().StringVar(&parentCategory, "parent-category", "", "parent category code; defaults to the chart's control category")
	createCmd.Flags().StringVar(&name, "name", "", "category name")
	createCmd.Flags().StringVar(&openingBalance, "opening-balance", "", "opening balance in base currency, posted against the opening balance offset")

	deleteCmd := &cobra.Command{
		Use:   "delete CODE",
		Short: "Soft delete an editable category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser(cmd)
			if err != nil {
				return err
			}
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				if err := l.svc.Categories.SoftDelete(cmd.Context(), domain.CategoryCode(args[0]), userID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", strconv.Quote(args[0]))
				return nil
			})
		},
	}

	categoryCmd.AddCommand(listCmd, createCmd, deleteCmd)
	return categoryCmd
}
