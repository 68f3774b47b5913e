package cmd

import (
	"strings"
	"time"

	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/spf13/cobra"
)

func newRateCmd(opts *rootOptions) *cobra.Command {
	rateCmd := &cobra.Command{
		Use:   "rate",
		Short: "Record and look up exchange rates",
	}

	var setDate string
	setCmd := &cobra.Command{
		Use:   "set FROM TO RATE",
		Short: "Record how many units of TO one unit of FROM buys",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.requireUser(cmd)
			if err != nil {
				return err
			}
			rate, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			effective := time.Now().UTC()
			if d, err := parseOptionalDate(setDate); err != nil {
				return err
			} else if d != nil {
				effective = *d
			}
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				saved, err := l.svc.ExchangeRate.SaveExchangeRate(cmd.Context(), dto.CreateExchangeRateRequest{
					FromCurrencyCode: strings.ToUpper(args[0]),
					ToCurrencyCode:   strings.ToUpper(args[1]),
					Rate:             rate,
					DateEffective:    effective,
					UserID:           userID,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), saved)
			})
		},
	}
	setCmd.Flags().StringVar(&setDate, "date", "", "effective date (YYYY-MM-DD, default today)")

	var getDate string
	getCmd := &cobra.Command{
		Use:   "get FROM TO",
		Short: "Show the rate in effect for a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now().UTC()
			if d, err := parseOptionalDate(getDate); err != nil {
				return err
			} else if d != nil {
				asOf = *d
			}
			return opts.withLedger(cmd.Context(), func(l *ledger) error {
				rate, err := l.svc.ExchangeRate.RateFor(cmd.Context(), args[0], args[1], asOf)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"from": strings.ToUpper(args[0]),
					"to":   strings.ToUpper(args[1]),
					"asOf": asOf.Format(dateLayout),
					"rate": rate,
				})
			})
		},
	}
	getCmd.Flags().StringVar(&getDate, "date", "", "as-of date (YYYY-MM-DD, default today)")

	rateCmd.AddCommand(setCmd, getCmd)
	return rateCmd
}
