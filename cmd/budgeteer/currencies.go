package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/budgeteer-dev/budgeteer/internal/cli"
	"github.com/budgeteer-dev/budgeteer/internal/model"
)

func currenciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "currencies",
		Short: "Manage currencies",
		Long:  `List, add, and delete the currencies accounts and envelopes are denominated in.`,
	}

	cmd.AddCommand(listCurrenciesCmd())
	cmd.AddCommand(addCurrencyCmd())
	cmd.AddCommand(deleteCurrencyCmd())

	return cmd
}

func listCurrenciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all currencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			currencies, err := store.GetCurrencies(ctx)
			if err != nil {
				return fmt.Errorf("failed to get currencies: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.BoldStyle.Render("ID"),
				cli.BoldStyle.Render("Code"),
				cli.BoldStyle.Render(""))
			for _, c := range currencies {
				note := ""
				if c.IsDefault() {
					note = cli.SubtleStyle.Render("(default)")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Code, note)
			}
			return nil
		},
	}
}

func addCurrencyCmd() *cobra.Command {
	var externalID string

	cmd := &cobra.Command{
		Use:   "add <code>",
		Short: "Add a new currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			currency := &model.Currency{
				Code:       strings.ToUpper(args[0]),
				ExternalID: externalID,
			}
			if err := store.CreateCurrency(ctx, currency); err != nil {
				return fmt.Errorf("failed to create currency: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created currency %s (ID %d)", currency.Code, currency.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&externalID, "external-id", "", "external identifier")
	return cmd
}

func deleteCurrencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a currency",
		Long: `Delete a currency. Accounts and envelopes using it are reassigned to
the default currency. The default currency cannot be deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid currency ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteCurrency(ctx, id); err != nil {
				return fmt.Errorf("failed to delete currency: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted currency %d", id)))
			return nil
		},
	}
}
