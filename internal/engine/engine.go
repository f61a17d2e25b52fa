// Package engine wires the forecast pipeline together and exposes the
// single forecast operation consumed by the presentation layer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgercast/ledgercast/internal/cache"
	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/model"
	"github.com/ledgercast/ledgercast/internal/series"
	"github.com/ledgercast/ledgercast/internal/service"
)

// Config holds configuration options for the forecast engine.
type Config struct {
	LookbackDays       int
	DefaultHorizonDays int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		LookbackDays:       series.DefaultLookbackDays,
		DefaultHorizonDays: 30,
	}
}

// ForecastEngine orchestrates transactions → daily series → prediction
// → confidence → cache. It holds no per-request mutable state, so
// requests for different owners run fully independently.
type ForecastEngine struct {
	transactions service.TransactionStore
	predictor    Predictor
	scorer       Scorer
	cache        *cache.PredictionCache
	aggregator   *series.Aggregator
	config       Config
}

// New creates a forecast engine with the given dependencies.
func New(transactions service.TransactionStore, predictor Predictor, scorer Scorer, predictionCache *cache.PredictionCache) *ForecastEngine {
	return NewWithConfig(transactions, predictor, scorer, predictionCache, DefaultConfig())
}

// NewWithConfig creates a forecast engine with custom configuration.
func NewWithConfig(transactions service.TransactionStore, predictor Predictor, scorer Scorer, predictionCache *cache.PredictionCache, config Config) *ForecastEngine {
	if config.LookbackDays <= 0 {
		config.LookbackDays = series.DefaultLookbackDays
	}
	if config.DefaultHorizonDays <= 0 {
		config.DefaultHorizonDays = 30
	}
	return &ForecastEngine{
		transactions: transactions,
		predictor:    predictor,
		scorer:       scorer,
		cache:        predictionCache,
		aggregator:   series.NewAggregator(config.LookbackDays),
		config:       config,
	}
}

// Forecast returns the predicted spending for an owner. Results are
// cached per owner and calendar day; concurrent requests for the same
// owner share one computation. Once the owner has at least one
// historical day a forecast is always produced; an empty history
// yields a Success=false response rather than an error.
func (e *ForecastEngine) Forecast(ctx context.Context, req service.ForecastRequest) (*service.ForecastResponse, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", common.ErrInvalidConfig)
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	horizon := req.HorizonDays
	if horizon <= 0 {
		horizon = e.config.DefaultHorizonDays
	}

	forecast, err := e.cache.GetOrCompute(ctx, req.OwnerID, asOf, func(ctx context.Context) (*model.Forecast, error) {
		return e.compute(ctx, req.OwnerID, asOf, horizon)
	})
	if errors.Is(err, common.ErrInsufficientData) {
		return &service.ForecastResponse{
			Success: false,
			Message: "not enough transaction history to forecast",
			Error:   err.Error(),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &service.ForecastResponse{
		Success:        true,
		Forecast:       forecast,
		Method:         forecast.Method,
		TotalPredicted: forecast.PredictedTotal,
		DailyAverage:   forecast.DailyAverage,
		Confidence:     forecast.Confidence,
		DataPointsUsed: forecast.DataPointsUsed,
		Message:        fmt.Sprintf("forecast for the next %d days from %d days of history", forecast.HorizonDays, forecast.DataPointsUsed),
	}, nil
}

// compute runs the uncached pipeline for one owner.
func (e *ForecastEngine) compute(ctx context.Context, ownerID string, asOf time.Time, horizon int) (*model.Forecast, error) {
	windowStart := asOf.AddDate(0, 0, -e.config.LookbackDays)
	transactions, err := e.transactions.GetTransactionsByOwner(ctx, ownerID, windowStart, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	dailySeries, quality := e.aggregator.Aggregate(ownerID, transactions, asOf)
	if quality.Skipped() > 0 {
		slog.Info("Data quality issues in forecast input",
			"owner", ownerID,
			"skipped", quality.Skipped(),
			"total", quality.TotalTransactions)
	}

	forecast, artifact, err := e.predictor.Predict(ctx, dailySeries, asOf, horizon)
	if err != nil {
		return nil, err
	}

	e.scorer.Score(forecast, dailySeries, artifact)

	slog.Info("Forecast computed",
		"owner", ownerID,
		"method", forecast.Method,
		"horizon_days", forecast.HorizonDays,
		"data_points", forecast.DataPointsUsed,
		"daily_average", forecast.DailyAverage,
		"confidence", forecast.Confidence)

	return forecast, nil
}

// InvalidateOwner drops cached forecasts for an owner. Ingestion
// layers call this after recording new transactions.
func (e *ForecastEngine) InvalidateOwner(ownerID string) {
	e.cache.Invalidate(ownerID)
}
