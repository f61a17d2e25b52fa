// Package trainer implements the offline training job that fits a
// sequence model per owner and publishes versioned artifacts. It is
// never invoked from the forecast request path.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/feature"
	"github.com/ledgercast/ledgercast/internal/lstm"
	"github.com/ledgercast/ledgercast/internal/model"
	"github.com/ledgercast/ledgercast/internal/service"
)

// Config holds training hyperparameters.
type Config struct {
	WindowLength    int
	HiddenSize      int
	MinRequiredDays int
	MaxEpochs       int
	Patience        int
	LearningRate    float64
	TrainFraction   float64
	Seed            int64
}

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return Config{
		WindowLength:    feature.DefaultWindowLength,
		HiddenSize:      lstm.DefaultHiddenSize,
		MinRequiredDays: 60,
		MaxEpochs:       200,
		Patience:        8,
		LearningRate:    0.05,
		TrainFraction:   0.8,
		Seed:            1,
	}
}

// ProgressFunc is called once per completed epoch, for CLI progress
// reporting. It may be nil.
type ProgressFunc func(epoch, maxEpochs int, valError float64)

// Trainer fits per-owner sequence models and persists artifacts.
type Trainer struct {
	artifacts service.ArtifactStore
	config    Config
	progress  ProgressFunc
}

// New creates a trainer that publishes artifacts to the given store.
func New(artifacts service.ArtifactStore, config Config) *Trainer {
	if config.WindowLength <= 0 {
		config.WindowLength = feature.DefaultWindowLength
	}
	if config.MaxEpochs <= 0 {
		config.MaxEpochs = 200
	}
	if config.Patience <= 0 {
		config.Patience = 8
	}
	if config.LearningRate <= 0 {
		config.LearningRate = 0.05
	}
	if config.TrainFraction <= 0 || config.TrainFraction >= 1 {
		config.TrainFraction = 0.8
	}
	return &Trainer{artifacts: artifacts, config: config}
}

// OnProgress registers an epoch progress callback.
func (t *Trainer) OnProgress(fn ProgressFunc) {
	t.progress = fn
}

// Train fits a model on the owner's full daily series and publishes a
// new artifact. It declines with common.ErrInsufficientData when the
// series is too short, and aborts with common.ErrTrainingDivergence
// when the loss becomes non-finite; in both cases nothing is persisted
// and any previous artifact remains authoritative.
func (t *Trainer) Train(ctx context.Context, series *model.DailySeries) (*model.TrainingArtifact, error) {
	days := series.Len()
	if days < t.config.MinRequiredDays {
		return nil, fmt.Errorf("%w: have %d days, need %d", common.ErrInsufficientData, days, t.config.MinRequiredDays)
	}

	// Chronological split: earliest 80% trains, most recent 20%
	// validates. Randomizing here would leak future information into
	// training.
	windower := feature.NewWindower(t.config.WindowLength)
	windows, scaler, err := windower.Prepare(series)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInsufficientData, err)
	}

	splitIdx := int(float64(len(windows)) * t.config.TrainFraction)
	if splitIdx == 0 || splitIdx == len(windows) {
		return nil, fmt.Errorf("%w: %d windows cannot be split for validation", common.ErrInsufficientData, len(windows))
	}
	trainSet := windows[:splitIdx]
	valSet := windows[splitIdx:]

	slog.Info("Starting training run",
		"owner", series.OwnerID,
		"days", days,
		"train_windows", len(trainSet),
		"validation_windows", len(valSet))

	net := lstm.New(t.config.HiddenSize, t.config.Seed)

	bestValError := math.Inf(1)
	var bestWeights []byte
	epochsSinceBest := 0

	for epoch := 1; epoch <= t.config.MaxEpochs; epoch++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var epochLoss float64
		for _, w := range trainSet {
			epochLoss += net.Step(w.Input, w.Label, t.config.LearningRate)
		}
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			slog.Error("Training diverged, aborting run",
				"owner", series.OwnerID,
				"epoch", epoch)
			return nil, fmt.Errorf("%w: non-finite loss at epoch %d", common.ErrTrainingDivergence, epoch)
		}

		valError := validationMAE(net, valSet, scaler)
		if math.IsNaN(valError) || math.IsInf(valError, 0) {
			return nil, fmt.Errorf("%w: non-finite validation error at epoch %d", common.ErrTrainingDivergence, epoch)
		}

		if t.progress != nil {
			t.progress(epoch, t.config.MaxEpochs, valError)
		}

		if valError < bestValError {
			bestValError = valError
			epochsSinceBest = 0
			weights, serErr := net.Serialize()
			if serErr != nil {
				return nil, serErr
			}
			bestWeights = weights
		} else {
			epochsSinceBest++
			if epochsSinceBest >= t.config.Patience {
				slog.Info("Early stopping",
					"owner", series.OwnerID,
					"epoch", epoch,
					"best_validation_error", bestValError)
				break
			}
		}
	}

	artifact := &model.TrainingArtifact{
		OwnerID:         series.OwnerID,
		WindowLength:    t.config.WindowLength,
		Scaler:          scaler.Params(),
		Weights:         bestWeights,
		TrainedAt:       time.Now().UTC(),
		ValidationError: bestValError,
		BaselineError:   naiveBaselineMAE(series, splitIdx+t.config.WindowLength),
		MinRequiredDays: t.config.MinRequiredDays,
		DataDays:        days,
	}

	if err := t.artifacts.SaveArtifact(ctx, artifact); err != nil {
		return nil, fmt.Errorf("failed to publish artifact: %w", err)
	}

	slog.Info("Training run complete",
		"owner", series.OwnerID,
		"validation_error", artifact.ValidationError,
		"baseline_error", artifact.BaselineError,
		"trained_at", artifact.TrainedAt)

	return artifact, nil
}

// validationMAE computes mean absolute error over the validation
// windows in currency units, so it is comparable with the naive
// baseline regardless of the scaler's range.
func validationMAE(net *lstm.Network, valSet []feature.Window, scaler feature.Scaler) float64 {
	if len(valSet) == 0 {
		return math.Inf(1)
	}
	var total float64
	for _, w := range valSet {
		pred := scaler.Inverse(net.Predict(w.Input))
		actual := scaler.Inverse(w.Label)
		total += math.Abs(pred - actual)
	}
	return total / float64(len(valSet))
}

// naiveBaselineMAE is the error of predicting yesterday's value over
// the validation region. The confidence scorer compares the model's
// validation error against this to decide how much the model actually
// learned.
func naiveBaselineMAE(series *model.DailySeries, validationStart int) float64 {
	if validationStart < 1 {
		validationStart = 1
	}
	if validationStart >= series.Len() {
		return 0
	}
	var total float64
	count := 0
	for i := validationStart; i < series.Len(); i++ {
		total += math.Abs(series.Values[i] - series.Values[i-1])
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
