package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/budgeteer-dev/budgeteer/internal/cli"
	"github.com/budgeteer-dev/budgeteer/internal/model"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Manage account reconciliations",
		Long: `Record statement periods against accounts and link cleared splits to
them. Linking a split marks it cleared; deleting a reconciliation keeps
the splits and clears only the link.`,
	}

	cmd.AddCommand(createReconciliationCmd())
	cmd.AddCommand(listReconciliationsCmd())
	cmd.AddCommand(deleteReconciliationCmd())
	cmd.AddCommand(linkSplitCmd())
	cmd.AddCommand(unlinkSplitCmd())

	return cmd
}

func createReconciliationCmd() *cobra.Command {
	var (
		accountID    int64
		beginDate    string
		endDate      string
		beginBalance string
		endBalance   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a statement period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			begin, err := parseDay(beginDate)
			if err != nil {
				return err
			}
			end, err := parseDay(endDate)
			if err != nil {
				return err
			}
			beginAmount, err := model.ParseMoney(beginBalance, "")
			if err != nil {
				return err
			}
			endAmount, err := model.ParseMoney(endBalance, "")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rec := &model.Reconciliation{
				AccountID:        accountID,
				BeginningDate:    begin,
				BeginningBalance: beginAmount,
				EndingDate:       end,
				EndingBalance:    endAmount,
			}
			if err := store.CreateReconciliation(ctx, rec); err != nil {
				return fmt.Errorf("failed to create reconciliation: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded reconciliation %d", rec.ID)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account ID")
	cmd.Flags().StringVar(&beginDate, "begin", "", "statement start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "statement end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&beginBalance, "begin-balance", "", "statement opening balance")
	cmd.Flags().StringVar(&endBalance, "end-balance", "", "statement closing balance")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("begin")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("begin-balance")
	_ = cmd.MarkFlagRequired("end-balance")
	return cmd
}

func listReconciliationsCmd() *cobra.Command {
	var accountID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reconciliations for an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.GetReconciliations(ctx, accountID)
			if err != nil {
				return fmt.Errorf("failed to get reconciliations: %w", err)
			}

			if len(recs) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No reconciliations recorded."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.BoldStyle.Render("ID"),
				cli.BoldStyle.Render("Begin"),
				cli.BoldStyle.Render("End"),
				cli.BoldStyle.Render("Opening"),
				cli.BoldStyle.Render("Closing"))
			for _, rec := range recs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					rec.ID,
					rec.BeginningDate.Format("2006-01-02"),
					rec.EndingDate.Format("2006-01-02"),
					formatSigned(rec.BeginningBalance),
					formatSigned(rec.EndingBalance))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account ID")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func deleteReconciliationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a reconciliation",
		Long:  `Delete a statement period. Linked splits survive with their link cleared.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reconciliation ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteReconciliation(ctx, id); err != nil {
				return fmt.Errorf("failed to delete reconciliation: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted reconciliation %d", id)))
			return nil
		},
	}
}

func linkSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <split-id> <reconciliation-id>",
		Short: "Link an account split to a reconciliation",
		Long:  `Link an account split to a statement period, marking it cleared.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			splitID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid split ID %q", args[0])
			}
			recID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reconciliation ID %q", args[1])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.LinkAccountTransaction(ctx, splitID, recID); err != nil {
				return fmt.Errorf("failed to link split: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Linked split %d to reconciliation %d", splitID, recID)))
			return nil
		},
	}
}

func unlinkSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <split-id>",
		Short: "Unlink an account split",
		Long:  `Remove a split's reconciliation link and cleared flag.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			splitID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid split ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.LinkAccountTransaction(ctx, splitID, 0); err != nil {
				return fmt.Errorf("failed to unlink split: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Unlinked split %d", splitID)))
			return nil
		},
	}
}
