package engine

import (
	"context"
	"time"

	"github.com/ledgercast/ledgercast/internal/model"
)

// Predictor produces an unscored forecast from a daily series, along
// with the artifact that backed it (nil on the statistical path).
type Predictor interface {
	Predict(ctx context.Context, series *model.DailySeries, asOf time.Time, horizonDays int) (*model.Forecast, *model.TrainingArtifact, error)
}

// Scorer fills in a forecast's confidence value.
type Scorer interface {
	Score(forecast *model.Forecast, series *model.DailySeries, artifact *model.TrainingArtifact)
}
