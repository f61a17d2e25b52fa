// Package predictor produces spending forecasts, choosing between a
// trained sequence model and a statistical fallback.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/feature"
	"github.com/ledgercast/ledgercast/internal/lstm"
	"github.com/ledgercast/ledgercast/internal/model"
	"github.com/ledgercast/ledgercast/internal/service"
)

// Config holds runtime prediction settings.
type Config struct {
	DefaultHorizonDays int
	StalenessThreshold time.Duration
	LatencyBudget      time.Duration
}

// DefaultConfig returns the default prediction configuration.
func DefaultConfig() Config {
	return Config{
		DefaultHorizonDays: 30,
		StalenessThreshold: 30 * 24 * time.Hour,
		LatencyBudget:      500 * time.Millisecond,
	}
}

// ForecastPredictor is the runtime forecast component. It only reads
// artifacts, never writes them; when an artifact turns out to be
// unusable it flags the owner for retraining and degrades to the
// statistical path.
type ForecastPredictor struct {
	artifacts service.ArtifactStore
	config    Config
}

// New creates a predictor reading artifacts from the given store.
func New(artifacts service.ArtifactStore, config Config) *ForecastPredictor {
	if config.DefaultHorizonDays <= 0 {
		config.DefaultHorizonDays = 30
	}
	if config.StalenessThreshold <= 0 {
		config.StalenessThreshold = 30 * 24 * time.Hour
	}
	if config.LatencyBudget <= 0 {
		config.LatencyBudget = 500 * time.Millisecond
	}
	return &ForecastPredictor{artifacts: artifacts, config: config}
}

// Predict produces a forecast for the owner's series. A usable, fresh
// artifact selects the model path; a missing, stale, or corrupt
// artifact, too little history, or a blown latency budget all fall
// through to the statistical method. The returned forecast has
// Confidence unset; the ConfidenceScorer fills it in. The only hard
// failure is an empty series.
//
// The artifact that backed a model-path forecast is returned for
// confidence scoring; it is nil whenever the statistical method ran.
func (p *ForecastPredictor) Predict(ctx context.Context, series *model.DailySeries, asOf time.Time, horizonDays int) (*model.Forecast, *model.TrainingArtifact, error) {
	if series.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: no historical days for owner %s", common.ErrInsufficientData, series.OwnerID)
	}
	if horizonDays <= 0 {
		horizonDays = p.config.DefaultHorizonDays
	}

	forecast := &model.Forecast{
		OwnerID:        series.OwnerID,
		GeneratedAt:    time.Now().UTC(),
		HorizonDays:    horizonDays,
		DataPointsUsed: series.Len(),
		Method:         model.MethodStatistical,
	}

	daily, artifact := p.tryModelPath(ctx, series, asOf, horizonDays)
	if daily != nil {
		forecast.Method = model.MethodLSTM
		forecast.DailyPredictions = daily
	} else {
		artifact = nil
		forecast.DailyPredictions = StatisticalForecast(series, asOf, horizonDays)
	}

	forecast.Finalize()
	return forecast, artifact, nil
}

// tryModelPath attempts model inference, returning the predictions and
// the artifact that produced them. Every failure mode here is
// non-fatal and simply selects the fallback.
func (p *ForecastPredictor) tryModelPath(ctx context.Context, series *model.DailySeries, asOf time.Time, horizonDays int) ([]float64, *model.TrainingArtifact) {
	artifact, err := p.artifacts.GetLatestArtifact(ctx, series.OwnerID)
	if errors.Is(err, common.ErrNotFound) {
		slog.Debug("No trained artifact, using statistical method", "owner", series.OwnerID)
		return nil, nil
	}
	if err != nil {
		common.LogError(err, "Failed to load artifact, using statistical method", common.Fields{"owner": series.OwnerID})
		return nil, nil
	}

	if age := artifact.Age(asOf); age > p.config.StalenessThreshold {
		slog.Info("Artifact is stale, using statistical method",
			"owner", series.OwnerID,
			"age", age,
			"threshold", p.config.StalenessThreshold)
		return nil, nil
	}
	if series.Len() < artifact.MinRequiredDays || series.Len() < artifact.WindowLength {
		slog.Info("Series too short for model inference, using statistical method",
			"owner", series.OwnerID,
			"days", series.Len(),
			"min_required", artifact.MinRequiredDays)
		return nil, nil
	}

	net, err := lstm.Deserialize(artifact.Weights)
	if err != nil {
		// Corrupt weights: flag the owner so the next training sweep
		// replaces the artifact, then degrade gracefully.
		common.LogError(fmt.Errorf("%w: %v", common.ErrModelLoad, err),
			"Artifact weights corrupt, flagging for retraining",
			common.Fields{"owner": series.OwnerID})
		if flagErr := p.artifacts.MarkRetrainRequested(ctx, series.OwnerID); flagErr != nil {
			slog.Warn("Failed to flag owner for retraining", "owner", series.OwnerID, "error", flagErr)
		}
		return nil, nil
	}

	inferCtx, cancel := context.WithTimeout(ctx, p.config.LatencyBudget)
	defer cancel()

	daily, err := RecursiveForecast(inferCtx, net, feature.NewScaler(artifact.Scaler), series.Tail(artifact.WindowLength), horizonDays)
	if err != nil {
		// Timeout or cancellation aborts the model path only; the
		// caller sees method "statistical", never an error.
		slog.Warn("Model inference aborted, using statistical method",
			"owner", series.OwnerID,
			"error", err)
		return nil, nil
	}

	return daily, artifact
}

// RecursiveForecast runs multi-step inference: predict day one from
// the last windowLength real days, feed the prediction back into the
// window, and repeat for the full horizon. It is a pure, deterministic
// function over an explicit window buffer; the context bounds its
// running time.
func RecursiveForecast(ctx context.Context, net *lstm.Network, scaler feature.Scaler, lastDays []float64, horizonDays int) ([]float64, error) {
	window := scaler.TransformSlice(lastDays)
	predictions := make([]float64, 0, horizonDays)

	for day := 0; day < horizonDays; day++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("inference aborted at day %d: %w", day+1, err)
		}

		next := net.Predict(window)
		predictions = append(predictions, scaler.Inverse(next))

		// Slide the window: drop the oldest day, append the prediction
		copy(window, window[1:])
		window[len(window)-1] = next
	}

	return predictions, nil
}
