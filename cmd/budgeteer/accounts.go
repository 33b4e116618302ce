package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/budgeteer-dev/budgeteer/internal/cli"
	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/service"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the account tree",
		Long:  `List, add, update, and delete the accounts that hold your money.`,
	}

	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(addAccountCmd())
	cmd.AddCommand(updateAccountCmd())
	cmd.AddCommand(deleteAccountCmd())

	return cmd
}

func listAccountsCmd() *cobra.Command {
	var leavesOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Long:  `Display the account hierarchy, or just the leaf accounts that can carry balances.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if leavesOnly {
				leaves, err := store.GetLeafAccounts(ctx)
				if err != nil {
					return fmt.Errorf("failed to get accounts: %w", err)
				}
				for _, a := range leaves {
					printNodeLine(a.ID, a.Name, a.Archived, 0)
				}
				return nil
			}

			accounts, err := store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to get accounts: %w", err)
			}

			fmt.Println(cli.FormatTitle("Accounts"))
			printTree(accountNodes(accounts), model.RootAccountID, 0)
			return nil
		},
	}

	cmd.Flags().BoolVar(&leavesOnly, "leaves", false, "show only leaf accounts")
	return cmd
}

func addAccountCmd() *cobra.Command {
	var (
		parentID   int64
		currency   string
		externalID string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			account := &model.Account{
				Name:       args[0],
				ParentID:   parentID,
				ExternalID: externalID,
			}
			if currency != "" {
				currencyID, err := resolveCurrency(ctx, store, currency)
				if err != nil {
					return err
				}
				account.CurrencyID = currencyID
			}

			if err := store.CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created account %q (ID %d)", account.Name, account.ID)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&parentID, "parent", 0, "parent account ID (default: root)")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code (default: USD)")
	cmd.Flags().StringVar(&externalID, "external-id", "", "institution account identifier")
	return cmd
}

func updateAccountCmd() *cobra.Command {
	var (
		name       string
		parentID   int64
		currency   string
		externalID string
		archive    bool
		unarchive  bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an account",
		Long:  `Rename, move, archive, or reassign the currency of an account.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			account, err := store.GetAccount(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get account: %w", err)
			}

			if name != "" {
				account.Name = name
			}
			if cmd.Flags().Changed("parent") {
				account.ParentID = parentID
			}
			if cmd.Flags().Changed("external-id") {
				account.ExternalID = externalID
			}
			if currency != "" {
				currencyID, err := resolveCurrency(ctx, store, currency)
				if err != nil {
					return err
				}
				account.CurrencyID = currencyID
			}
			if archive {
				account.Archived = true
			}
			if unarchive {
				account.Archived = false
			}

			if err := store.UpdateAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to update account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated account %q", account.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "new parent account ID")
	cmd.Flags().StringVar(&currency, "currency", "", "new currency code")
	cmd.Flags().StringVar(&externalID, "external-id", "", "institution account identifier")
	cmd.Flags().BoolVar(&archive, "archive", false, "archive the account")
	cmd.Flags().BoolVar(&unarchive, "unarchive", false, "unarchive the account")
	return cmd
}

func deleteAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account and its children",
		Long: `Delete an account subtree. Fails if any account in the subtree is
referenced by a transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteAccount(ctx, id); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted account %d", id)))
			return nil
		},
	}
}

// treeNode is the common shape of account and envelope listings.
type treeNode struct {
	name     string
	id       int64
	parentID int64
	archived bool
}

func accountNodes(accounts []model.Account) []treeNode {
	nodes := make([]treeNode, 0, len(accounts))
	for _, a := range accounts {
		nodes = append(nodes, treeNode{id: a.ID, parentID: a.ParentID, name: a.Name, archived: a.Archived})
	}
	return nodes
}

func printTree(nodes []treeNode, rootID int64, depth int) {
	children := make(map[int64][]treeNode)
	for _, n := range nodes {
		if n.id == rootID {
			continue
		}
		children[n.parentID] = append(children[n.parentID], n)
	}
	for _, siblings := range children {
		sort.Slice(siblings, func(i, j int) bool { return siblings[i].name < siblings[j].name })
	}
	var walk func(id int64, depth int)
	walk = func(id int64, depth int) {
		for _, child := range children[id] {
			printNodeLine(child.id, child.name, child.archived, depth)
			walk(child.id, depth+1)
		}
	}
	walk(rootID, depth)
}

func printNodeLine(id int64, name string, archived bool, depth int) {
	indent := cli.TreeBranchStyle.Render(strings.Repeat("  ", depth))
	label := name
	if archived {
		label = cli.SubtleStyle.Render(name + " " + cli.ArchivedIcon)
	}
	fmt.Printf("%s%s %s\n", indent, label, cli.SubtleStyle.Render(fmt.Sprintf("(%d)", id)))
}

func resolveCurrency(ctx context.Context, store service.Storage, code string) (int64, error) {
	currencies, err := store.GetCurrencies(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get currencies: %w", err)
	}
	for _, c := range currencies {
		if strings.EqualFold(c.Code, code) {
			return c.ID, nil
		}
	}
	return 0, fmt.Errorf("unknown currency %q (add it with 'budgeteer currencies add')", code)
}
