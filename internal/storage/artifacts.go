package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/model"
)

// SaveArtifact publishes a new training artifact version. The insert
// and the pruning of superseded versions happen in one database
// transaction, so readers observe either the previous or the new
// complete artifact, never a partial write.
func (s *SQLiteStorage) SaveArtifact(ctx context.Context, artifact *model.TrainingArtifact) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateArtifact(artifact); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts (
			owner_id, window_length, scaler_min, scaler_max, weights,
			trained_at, validation_error, baseline_error,
			min_required_days, data_days
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		artifact.OwnerID,
		artifact.WindowLength,
		artifact.Scaler.Min,
		artifact.Scaler.Max,
		artifact.Weights,
		artifact.TrainedAt,
		artifact.ValidationError,
		artifact.BaselineError,
		artifact.MinRequiredDays,
		artifact.DataDays,
	)
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}

	// Retain only the most recent version per owner
	_, err = tx.ExecContext(ctx, `
		DELETE FROM artifacts
		WHERE owner_id = ? AND trained_at < ?
	`, artifact.OwnerID, artifact.TrainedAt)
	if err != nil {
		return fmt.Errorf("failed to prune superseded artifacts: %w", err)
	}

	return tx.Commit()
}

// GetLatestArtifact returns the most recent artifact for an owner, or
// common.ErrNotFound when the owner has never been trained.
func (s *SQLiteStorage) GetLatestArtifact(ctx context.Context, ownerID string) (*model.TrainingArtifact, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	var artifact model.TrainingArtifact
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id, window_length, scaler_min, scaler_max, weights,
		       trained_at, validation_error, baseline_error,
		       min_required_days, data_days
		FROM artifacts
		WHERE owner_id = ?
		ORDER BY trained_at DESC
		LIMIT 1
	`, ownerID).Scan(
		&artifact.OwnerID,
		&artifact.WindowLength,
		&artifact.Scaler.Min,
		&artifact.Scaler.Max,
		&artifact.Weights,
		&artifact.TrainedAt,
		&artifact.ValidationError,
		&artifact.BaselineError,
		&artifact.MinRequiredDays,
		&artifact.DataDays,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	return &artifact, nil
}

// MarkRetrainRequested flags an owner for retraining. Flagging an
// already-flagged owner is a no-op.
func (s *SQLiteStorage) MarkRetrainRequested(ctx context.Context, ownerID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO retrain_requests (owner_id) VALUES (?)
	`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to mark retrain request: %w", err)
	}

	return nil
}

// ClearRetrainRequested removes the retrain flag for an owner.
func (s *SQLiteStorage) ClearRetrainRequested(ctx context.Context, ownerID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM retrain_requests WHERE owner_id = ?
	`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to clear retrain request: %w", err)
	}

	return nil
}

// ListRetrainRequested returns the owners currently flagged for retraining.
func (s *SQLiteStorage) ListRetrainRequested(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id FROM retrain_requests ORDER BY requested_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query retrain requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan retrain request: %w", err)
		}
		owners = append(owners, owner)
	}

	return owners, rows.Err()
}
