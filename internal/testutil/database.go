// Package testutil provides test utilities for ledgercast. It offers
// an isolated in-memory database per test with migrations applied.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ledgercast/ledgercast/internal/model"
	"github.com/ledgercast/ledgercast/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. It automatically
// handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedDailySpend inserts one transaction per day of the given amounts,
// ending on asOf's calendar day. It returns the inserted transactions.
func (db *TestDB) SeedDailySpend(ownerID string, amounts []float64, asOf time.Time) []model.Transaction {
	db.t.Helper()

	start := asOf.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -len(amounts)+1)
	transactions := make([]model.Transaction, 0, len(amounts))
	for i, amount := range amounts {
		txn := model.Transaction{
			ID:          ownerID + "-" + start.AddDate(0, 0, i).Format("2006-01-02"),
			OwnerID:     ownerID,
			Date:        start.AddDate(0, 0, i),
			Amount:      amount,
			Category:    "Groceries",
			Description: "seeded spend",
		}
		txn.Hash = txn.GenerateHash()
		transactions = append(transactions, txn)
	}

	if err := db.Storage.SaveTransactions(context.Background(), transactions); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
	return transactions
}
