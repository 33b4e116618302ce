package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/budgeteer-dev/budgeteer/internal/cli"
	"github.com/budgeteer-dev/budgeteer/internal/model"
)

func envelopesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envelopes",
		Short: "Manage the envelope tree",
		Long:  `List, add, update, and delete the envelopes that allocate your money.`,
	}

	cmd.AddCommand(listEnvelopesCmd())
	cmd.AddCommand(addEnvelopeCmd())
	cmd.AddCommand(updateEnvelopeCmd())
	cmd.AddCommand(deleteEnvelopeCmd())

	return cmd
}

func listEnvelopesCmd() *cobra.Command {
	var leavesOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all envelopes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if leavesOnly {
				leaves, err := store.GetLeafEnvelopes(ctx)
				if err != nil {
					return fmt.Errorf("failed to get envelopes: %w", err)
				}
				for _, e := range leaves {
					printNodeLine(e.ID, e.Name, e.Archived, 0)
				}
				return nil
			}

			envelopes, err := store.GetEnvelopes(ctx)
			if err != nil {
				return fmt.Errorf("failed to get envelopes: %w", err)
			}

			fmt.Println(cli.FormatTitle("Envelopes"))
			printTree(envelopeNodes(envelopes), model.RootEnvelopeID, 0)
			return nil
		},
	}

	cmd.Flags().BoolVar(&leavesOnly, "leaves", false, "show only leaf envelopes")
	return cmd
}

func addEnvelopeCmd() *cobra.Command {
	var (
		parentID   int64
		currency   string
		externalID string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			envelope := &model.Envelope{
				Name:       args[0],
				ParentID:   parentID,
				ExternalID: externalID,
			}
			if currency != "" {
				currencyID, err := resolveCurrency(ctx, store, currency)
				if err != nil {
					return err
				}
				envelope.CurrencyID = currencyID
			}

			if err := store.CreateEnvelope(ctx, envelope); err != nil {
				return fmt.Errorf("failed to create envelope: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created envelope %q (ID %d)", envelope.Name, envelope.ID)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&parentID, "parent", 0, "parent envelope ID (default: root)")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code (default: USD)")
	cmd.Flags().StringVar(&externalID, "external-id", "", "external identifier")
	return cmd
}

func updateEnvelopeCmd() *cobra.Command {
	var (
		name      string
		parentID  int64
		currency  string
		archive   bool
		unarchive bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an envelope",
		Long:  `Rename, move, archive, or reassign the currency of an envelope.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid envelope ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			envelope, err := store.GetEnvelope(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get envelope: %w", err)
			}

			if name != "" {
				envelope.Name = name
			}
			if cmd.Flags().Changed("parent") {
				envelope.ParentID = parentID
			}
			if currency != "" {
				currencyID, err := resolveCurrency(ctx, store, currency)
				if err != nil {
					return err
				}
				envelope.CurrencyID = currencyID
			}
			if archive {
				envelope.Archived = true
			}
			if unarchive {
				envelope.Archived = false
			}

			if err := store.UpdateEnvelope(ctx, envelope); err != nil {
				return fmt.Errorf("failed to update envelope: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated envelope %q", envelope.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "new parent envelope ID")
	cmd.Flags().StringVar(&currency, "currency", "", "new currency code")
	cmd.Flags().BoolVar(&archive, "archive", false, "archive the envelope")
	cmd.Flags().BoolVar(&unarchive, "unarchive", false, "unarchive the envelope")
	return cmd
}

func deleteEnvelopeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an envelope and its children",
		Long: `Delete an envelope subtree. Fails if any envelope in the subtree is
referenced by a transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid envelope ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteEnvelope(ctx, id); err != nil {
				return fmt.Errorf("failed to delete envelope: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted envelope %d", id)))
			return nil
		},
	}
}

func envelopeNodes(envelopes []model.Envelope) []treeNode {
	nodes := make([]treeNode, 0, len(envelopes))
	for _, e := range envelopes {
		nodes = append(nodes, treeNode{id: e.ID, parentID: e.ParentID, name: e.Name, archived: e.Archived})
	}
	return nodes
}
