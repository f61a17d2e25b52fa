package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/model"
)

// SaveTransactions saves multiple transactions to the database.
// Duplicate transactions (same hash) are ignored.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, owner_id, date, amount, category, description
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		_, err = stmt.ExecContext(ctx,
			txn.ID,
			txn.Hash,
			txn.OwnerID,
			txn.Date,
			txn.Amount,
			txn.Category,
			txn.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactionsByOwner retrieves an owner's transactions within a
// date range, ordered by date ascending.
func (s *SQLiteStorage) GetTransactionsByOwner(ctx context.Context, ownerID string, start, end time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hash, owner_id, date, amount, category, description
		FROM transactions
		WHERE owner_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var category sql.NullString
		var description sql.NullString

		if err := rows.Scan(
			&txn.ID,
			&txn.Hash,
			&txn.OwnerID,
			&txn.Date,
			&txn.Amount,
			&category,
			&description,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if category.Valid {
			txn.Category = category.String
		}
		if description.Valid {
			txn.Description = description.String
		}

		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}

// GetTransactionCount returns the number of transactions for an owner.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context, ownerID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE owner_id = ?
	`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction count: %w", err)
	}

	return count, nil
}

// ListOwners returns the distinct owner IDs that have transactions.
func (s *SQLiteStorage) ListOwners(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT owner_id FROM transactions ORDER BY owner_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}

	return owners, rows.Err()
}

// GetEarliestTransactionDate returns the date of an owner's earliest transaction.
func (s *SQLiteStorage) GetEarliestTransactionDate(ctx context.Context, ownerID string) (time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return time.Time{}, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return time.Time{}, err
	}

	var date sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MIN(date) FROM transactions WHERE owner_id = ?
	`, ownerID).Scan(&date)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get earliest transaction date: %w", err)
	}
	if !date.Valid {
		return time.Time{}, common.ErrNotFound
	}

	return date.Time, nil
}
