package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/spf13/viper"

	"github.com/budgeteer-dev/budgeteer/internal/common"
	"github.com/budgeteer-dev/budgeteer/internal/config"
	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/service"
	"github.com/budgeteer-dev/budgeteer/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/budgeteer/budgeteer.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("failed to open ledger database at %s", dbPath), err)
	}

	// Run migrations and seed the root nodes
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	return store, nil
}

// formatMoney renders a ledger amount in its currency's display format,
// rounding from the internal 1/10000 scale to the currency's minor unit.
func formatMoney(m model.Money) string {
	cur := money.GetCurrency(m.Currency())
	if cur == nil {
		return m.String()
	}
	minor := m.Decimal().Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, m.Currency()).Display()
}

// parseDay parses a YYYY-MM-DD argument.
func parseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t, nil
}
