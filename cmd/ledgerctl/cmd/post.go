package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/spf13/cobra"
)

// journalFile is the document accepted by "post journal".
type journalFile struct {
	dto.JournalEvent
	Lines []journalFileLine `json:"lines"`
}

type journalFileLine struct {
	CategoryCode  domain.CategoryCode         `json:"categoryCode"`
	Amount        decimal.Decimal             `json:"amount"`
	ReferenceID   int64                       `json:"referenceID"`
	ReferenceType domain.PostingReferenceType `json:"referenceType"`
}

func newPostCmd(opts *rootOptions) *cobra.Command {
	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Post journals to the ledger",
	}

	var (
		obDate string
		obRef  int64
	)
	openingCmd := &cobra.Command{
		Use:   "opening-balance CODE AMOUNT",
		Short: "Post an opening balance against the matching offset category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser(cmd)
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			date, err := parseOptionalDate(obDate)
			if err != nil {
				return err
			}
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				posted, err := l.svc.Postings.PostOpeningBalance(cmd.Context(), dto.OpeningBalanceRequest{
					CategoryCode:    domain.CategoryCode(args[0]),
					Amount:          amount,
					TransactionDate: date,
					ReferenceID:     obRef,
					UserID:          userID,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.ToJournalResponse(&posted.Journal))
			})
		},
	}
	openingCmd.Flags().StringVar(&obDate, "date", "", "transaction date (YYYY-MM-DD, default today)")
	openingCmd.Flags().Int64Var(&obRef, "ref", 0, "source document id")

	var file string
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Build and post a journal described in a JSON file",
		Long: `Build and post a journal described in a JSON file.

Line amounts are signed changes in each category's own convention:
positive increases the balance, negative decreases it.

Example file:
  {
    "postingReferenceType": "INVOICE",
    "referenceID": 42,
    "description": "Invoice INV-42",
    "lines": [
      {"categoryCode": "01-03-001", "amount": "300"},
      {"categoryCode": "04-01-001", "amount": "300"}
    ]
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser(cmd)
			if err != nil {
				return err
			}
			doc, err := readJournalFile(file)
			if err != nil {
				return err
			}
			doc.UserID = userID

			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				lines := make([]dto.JournalLine, len(doc.Lines))
				for i, line := range doc.Lines {
					category, err := l.svc.Categories.Resolve(cmd.Context(), line.CategoryCode)
					if err != nil {
						return fmt.Errorf("line %d: %w", i+1, err)
					}
					lines[i] = dto.JournalLine{
						Category:      *category,
						Amount:        line.Amount,
						ReferenceID:   line.ReferenceID,
						ReferenceType: line.ReferenceType,
					}
				}
				journal, err := l.svc.Builder.BuildJournal(doc.JournalEvent, lines)
				if err != nil {
					return err
				}
				posted, err := l.svc.Poster.Post(cmd.Context(), *journal)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.ToJournalResponse(&posted.Journal))
			})
		},
	}
	journalCmd.Flags().StringVarP(&file, "file", "f", "", "journal JSON file")
	_ = journalCmd.MarkFlagRequired("file")

	postCmd.AddCommand(openingCmd, journalCmd)
	return postCmd
}

func readJournalFile(path string) (*journalFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}
	var doc journalFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse journal file %s: %w", path, err)
	}
	return &doc, nil
}

func newReverseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse JOURNAL_ID",
		Short: "Post the mirror image of a journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser(cmd)
			if err != nil {
				return err
			}
			journalID, err := parseJournalID(args[0])
			if err != nil {
				return err
			}
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				posted, err := l.svc.Reversal.Reverse(cmd.Context(), journalID, userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.ToJournalResponse(&posted.Journal))
			})
		},
	}
}

func parseJournalID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid journal id %q", s)
	}
	return id, nil
}
