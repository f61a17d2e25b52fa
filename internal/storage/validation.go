package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledgercast/ledgercast/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidArtifact    = errors.New("invalid artifact")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.OwnerID == "" {
		return fmt.Errorf("%w: missing owner ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if math.IsNaN(txn.Amount) || math.IsInf(txn.Amount, 0) {
		return fmt.Errorf("%w: non-finite amount", ErrInvalidTransaction)
	}
	return nil
}

// validateArtifact validates a training artifact before persistence.
func validateArtifact(artifact *model.TrainingArtifact) error {
	if artifact == nil {
		return fmt.Errorf("%w: artifact", ErrNilParameter)
	}
	if artifact.OwnerID == "" {
		return fmt.Errorf("%w: missing owner ID", ErrInvalidArtifact)
	}
	if artifact.TrainedAt.IsZero() {
		return fmt.Errorf("%w: missing trained_at", ErrInvalidArtifact)
	}
	if artifact.WindowLength <= 0 {
		return fmt.Errorf("%w: window length must be positive", ErrInvalidArtifact)
	}
	if len(artifact.Weights) == 0 {
		return fmt.Errorf("%w: missing weights", ErrInvalidArtifact)
	}
	if math.IsNaN(artifact.ValidationError) || math.IsInf(artifact.ValidationError, 0) {
		return fmt.Errorf("%w: non-finite validation error", ErrInvalidArtifact)
	}
	return nil
}
