package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/budgeteer-dev/budgeteer/internal/cli"
	"github.com/budgeteer-dev/budgeteer/internal/model"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage transactions",
		Long: `Record, list, and delete ledger transactions. Every transaction must
balance: its account splits and envelope splits sum to the same amount.`,
	}

	cmd.AddCommand(addTxCmd())
	cmd.AddCommand(listTxCmd())
	cmd.AddCommand(showTxCmd())
	cmd.AddCommand(deleteTxCmd())

	return cmd
}

func addTxCmd() *cobra.Command {
	var (
		date           string
		payee          string
		accountID      int64
		envelopeID     int64
		amount         string
		memo           string
		cleared        bool
		accountSplits  []string
		envelopeSplits []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record a transaction. The simple form takes one account, one envelope,
and one amount. Multi-split transactions use repeated --account-split and
--envelope-split flags in the form ID:AMOUNT.`,
		Example: `  budgeteer tx add --date 2018-09-01 --payee grocer --account 2 --envelope 3 --amount -12.75
  budgeteer tx add --date 2018-08-31 --payee paycheck --account-split 2:100 --envelope-split 3:60 --envelope-split 4:40`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			day, err := parseDay(date)
			if err != nil {
				return err
			}
			if payee == "" {
				return fmt.Errorf("--payee is required")
			}

			txn := &model.Transaction{Date: day, Payee: payee}

			if accountID != 0 || envelopeID != 0 || amount != "" {
				if accountID == 0 || envelopeID == 0 || amount == "" {
					return fmt.Errorf("--account, --envelope, and --amount must be used together")
				}
				m, err := model.ParseMoney(amount, "")
				if err != nil {
					return err
				}
				txn.AccountSplits = append(txn.AccountSplits, model.AccountTransaction{
					AccountID: accountID, Amount: m, Memo: memo, Cleared: cleared,
				})
				txn.EnvelopeSplits = append(txn.EnvelopeSplits, model.EnvelopeTransaction{
					EnvelopeID: envelopeID, Amount: m,
				})
			}

			for _, raw := range accountSplits {
				id, m, err := parseSplit(raw)
				if err != nil {
					return err
				}
				txn.AccountSplits = append(txn.AccountSplits, model.AccountTransaction{
					AccountID: id, Amount: m, Cleared: cleared,
				})
			}
			for _, raw := range envelopeSplits {
				id, m, err := parseSplit(raw)
				if err != nil {
					return err
				}
				txn.EnvelopeSplits = append(txn.EnvelopeSplits, model.EnvelopeTransaction{
					EnvelopeID: id, Amount: m,
				})
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.CreateTransaction(ctx, txn); err != nil {
				return fmt.Errorf("failed to create transaction: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %q (ID %d)", txn.Payee, txn.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&payee, "payee", "", "payee")
	cmd.Flags().Int64Var(&accountID, "account", 0, "account ID (simple form)")
	cmd.Flags().Int64Var(&envelopeID, "envelope", 0, "envelope ID (simple form)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (simple form)")
	cmd.Flags().StringVar(&memo, "memo", "", "memo for the account split")
	cmd.Flags().BoolVar(&cleared, "cleared", false, "mark account splits as cleared")
	cmd.Flags().StringArrayVar(&accountSplits, "account-split", nil, "account split as ID:AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&envelopeSplits, "envelope-split", nil, "envelope split as ID:AMOUNT (repeatable)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func listTxCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions in a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			fromDay, toDay, err := parseRange(from, to)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			txns, err := store.GetTransactions(ctx, fromDay, toDay)
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}

			if len(txns) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No transactions in range."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.BoldStyle.Render("ID"),
				cli.BoldStyle.Render("Date"),
				cli.BoldStyle.Render("Payee"),
				cli.BoldStyle.Render("Amount"))
			for _, txn := range txns {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					txn.ID,
					txn.Date.Format("2006-01-02"),
					txn.Payee,
					formatTxAmount(&txn))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD, default: 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD, default: today)")
	return cmd
}

func showTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transaction with its splits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			txn, err := store.GetTransaction(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get transaction: %w", err)
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%s  %s", txn.Date.Format("2006-01-02"), txn.Payee)))
			for _, split := range txn.AccountSplits {
				line := fmt.Sprintf("  account %d  %s", split.AccountID, formatSigned(split.Amount))
				if split.Cleared {
					line += " " + cli.SuccessStyle.Render(cli.SuccessIcon)
				}
				if split.Memo != "" {
					line += "  " + cli.SubtleStyle.Render(split.Memo)
				}
				fmt.Println(line)
			}
			for _, split := range txn.EnvelopeSplits {
				line := fmt.Sprintf("  envelope %d  %s", split.EnvelopeID, formatSigned(split.Amount))
				if split.Memo != "" {
					line += "  " + cli.SubtleStyle.Render(split.Memo)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func deleteTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction and its splits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteTransaction(ctx, id); err != nil {
				return fmt.Errorf("failed to delete transaction: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted transaction %d", id)))
			return nil
		},
	}
}

// parseSplit parses the ID:AMOUNT form of a split flag.
func parseSplit(raw string) (int64, model.Money, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, model.Money{}, fmt.Errorf("invalid split %q (expected ID:AMOUNT)", raw)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, model.Money{}, fmt.Errorf("invalid split ID %q", parts[0])
	}
	m, err := model.ParseMoney(parts[1], "")
	if err != nil {
		return 0, model.Money{}, err
	}
	return id, m, nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	now := model.Day(time.Now())
	fromDay := now.AddDate(0, 0, -30)
	toDay := now

	var err error
	if from != "" {
		if fromDay, err = parseDay(from); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if to != "" {
		if toDay, err = parseDay(to); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return fromDay, toDay, nil
}

// formatTxAmount summarizes a transaction's magnitude from whichever side
// has a single split.
func formatTxAmount(txn *model.Transaction) string {
	var total model.Money
	switch {
	case len(txn.AccountSplits) > 0:
		total = txn.AccountSplits[0].Amount
		for _, split := range txn.AccountSplits[1:] {
			if sum, err := total.Add(split.Amount); err == nil {
				total = sum
			}
		}
	case len(txn.EnvelopeSplits) > 0:
		total = txn.EnvelopeSplits[0].Amount
		for _, split := range txn.EnvelopeSplits[1:] {
			if sum, err := total.Add(split.Amount); err == nil {
				total = sum
			}
		}
	}
	return formatSigned(total)
}

func formatSigned(m model.Money) string {
	return cli.FormatAmount(formatMoney(m), m.ScaledAmount() < 0)
}
