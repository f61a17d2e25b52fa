// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ledgercast/ledgercast/internal/model"
)

// TransactionStore defines read access to an owner's transaction
// history. The forecast engine never writes transactions; ingestion
// belongs to outer layers.
type TransactionStore interface {
	// GetTransactionsByOwner returns transactions for the owner with
	// dates in [start, end], ordered by date ascending.
	GetTransactionsByOwner(ctx context.Context, ownerID string, start, end time.Time) ([]model.Transaction, error)
	GetTransactionCount(ctx context.Context, ownerID string) (int, error)
	ListOwners(ctx context.Context) ([]string, error)
}

// ArtifactStore defines the persistence contract for trained model
// artifacts. SaveArtifact publishes a new version atomically: readers
// always see either the previous or the new complete artifact.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, artifact *model.TrainingArtifact) error
	// GetLatestArtifact returns the most recent artifact for the
	// owner, or common.ErrNotFound when none exists.
	GetLatestArtifact(ctx context.Context, ownerID string) (*model.TrainingArtifact, error)
	// MarkRetrainRequested flags an owner whose artifact failed to
	// load so the next training sweep picks them up.
	MarkRetrainRequested(ctx context.Context, ownerID string) error
	ClearRetrainRequested(ctx context.Context, ownerID string) error
	ListRetrainRequested(ctx context.Context) ([]string, error)
}

// ForecastRequest identifies one forecast computation.
type ForecastRequest struct {
	AsOf        time.Time
	OwnerID     string
	HorizonDays int
}

// ForecastResponse is the payload handed to the presentation layer.
// The engine exposes plain numeric and metadata fields only; currency
// formatting and chart rendering happen downstream.
type ForecastResponse struct {
	Forecast       *model.Forecast `json:"forecast,omitempty"`
	Message        string          `json:"message"`
	Error          string          `json:"error,omitempty"`
	Method         model.Method    `json:"method,omitempty"`
	TotalPredicted float64         `json:"total_predicted"`
	DailyAverage   float64         `json:"daily_average"`
	Confidence     float64         `json:"confidence"`
	DataPointsUsed int             `json:"data_points_used"`
	Success        bool            `json:"success"`
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
