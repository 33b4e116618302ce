package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/service"
)

func balanceCmd() *cobra.Command {
	var (
		asOf        string
		accountID   int64
		envelopeID  int64
		clearedOnly bool
		currency    string
	)

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Report a point-in-time balance",
		Long: `Compute a balance as of a date: the overall ledger, a single account,
or a single envelope. Balances include every transaction dated on or
before the as-of date.`,
		Example: `  budgeteer balance
  budgeteer balance --as-of 2018-09-02 --account 2
  budgeteer balance --envelope 3 --cleared`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			day := model.Day(time.Now())
			if asOf != "" {
				var err error
				if day, err = parseDay(asOf); err != nil {
					return err
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			query := service.BalanceQuery{
				AsOf:       day,
				AccountID:  accountID,
				EnvelopeID: envelopeID,
			}
			if clearedOnly {
				cleared := true
				query.Cleared = &cleared
			}
			if currency != "" {
				if query.CurrencyID, err = resolveCurrency(ctx, store, currency); err != nil {
					return err
				}
			}

			balance, err := store.GetBalance(ctx, query)
			if err != nil {
				return fmt.Errorf("failed to compute balance: %w", err)
			}

			label := "Overall"
			switch {
			case accountID != 0:
				account, err := store.GetAccount(ctx, accountID)
				if err != nil {
					return fmt.Errorf("failed to get account: %w", err)
				}
				label = account.Name
			case envelopeID != 0:
				envelope, err := store.GetEnvelope(ctx, envelopeID)
				if err != nil {
					return fmt.Errorf("failed to get envelope: %w", err)
				}
				label = envelope.Name
			}

			fmt.Printf("%s as of %s: %s\n", label, day.Format("2006-01-02"), formatSigned(balance))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "balance date (YYYY-MM-DD, default: today)")
	cmd.Flags().Int64Var(&accountID, "account", 0, "account ID")
	cmd.Flags().Int64Var(&envelopeID, "envelope", 0, "envelope ID")
	cmd.Flags().BoolVar(&clearedOnly, "cleared", false, "count only cleared account splits")
	cmd.Flags().StringVar(&currency, "currency", "", "currency for the overall balance (default: USD)")
	return cmd
}
