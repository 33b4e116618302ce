package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/budgeteer-dev/budgeteer/internal/cli"
	"github.com/budgeteer-dev/budgeteer/internal/importer"
	"github.com/budgeteer-dev/budgeteer/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import transactions",
		Long:  `Import transactions from CSV files or OFX/QFX bank exports.`,
	}

	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importOFXCmd())

	return cmd
}

func importCSVCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Import transactions from a CSV file",
		Long: `Import rows in the format date,payee,account,envelope,amount,memo,cleared.
Accounts and envelopes are created under the root on first reference.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer file.Close()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			bar := importBar("Importing transactions...")
			imp := importer.NewCSVImporter(store)
			result, err := imp.Import(ctx, bufio.NewReader(file), importer.Options{
				DryRun:   dryRun,
				Progress: func() { _ = bar.Add(1) },
			})
			if err != nil {
				return err
			}
			_ = bar.Finish()
			fmt.Println()

			reportImport(result, dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without committing")
	return cmd
}

func importOFXCmd() *cobra.Command {
	var (
		accountID  int64
		envelopeID int64
		cleared    bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "ofx <file>",
		Short: "Import transactions from an OFX/QFX export",
		Long: `Import bank or credit card statement files. Each statement entry becomes
an account split against the target account with a counter split against
the chosen envelope. Without --account, statements are matched to the
account whose external ID equals the statement's account number.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer file.Close()

			statements, err := ofx.NewParser().ParseFile(ctx, bufio.NewReader(file))
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			bar := importBar("Importing statements...")
			imp := importer.NewOFXImporter(store)
			result, err := imp.Import(ctx, statements, importer.OFXOptions{
				AccountID:   accountID,
				EnvelopeID:  envelopeID,
				MarkCleared: cleared,
				DryRun:      dryRun,
				Progress:    func() { _ = bar.Add(1) },
			})
			if err != nil {
				return err
			}
			_ = bar.Finish()
			fmt.Println()

			reportImport(result, dryRun)
			return nil
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "target account ID (default: match by external ID)")
	cmd.Flags().Int64Var(&envelopeID, "envelope", 0, "counter envelope ID")
	cmd.Flags().BoolVar(&cleared, "cleared", false, "mark imported splits as cleared")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without committing")
	_ = cmd.MarkFlagRequired("envelope")
	return cmd
}

func importBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
	)
}

func reportImport(result *importer.Result, dryRun bool) {
	summary := fmt.Sprintf("Imported %d transactions", result.Imported)
	if dryRun {
		summary = fmt.Sprintf("Validated %d transactions (dry run)", result.Imported)
	}
	fmt.Println(cli.FormatSuccess(summary))

	if result.Skipped > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Skipped %d rows:", result.Skipped)))
		for _, rowErr := range result.Errors {
			fmt.Println("  " + cli.SubtleStyle.Render(rowErr.Error()))
		}
	}
}
