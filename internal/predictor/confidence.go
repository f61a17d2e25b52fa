package predictor

import (
	"math"

	"github.com/ledgercast/ledgercast/internal/model"
)

// Confidence scoring constants. The base score reflects "we produced a
// forecast at all"; data volume and model quality add to it, series
// volatility subtracts, and the statistical method carries a hard
// ceiling reflecting its higher inherent uncertainty.
const (
	confidenceBase      = 50.0
	dataVolumeBonus     = 30.0
	modelQualityBonus   = 20.0
	volatilityPenalty   = 10.0
	statisticalCeiling  = 60.0
	targetDataPoints    = 90
	volatilityTolerance = 0.3
)

// Scorer derives a 0-100 confidence value from data volume, model
// validation error, and series variance.
type Scorer struct {
	TargetDataPoints int
}

// NewScorer creates a scorer with the default data volume target.
func NewScorer() *Scorer {
	return &Scorer{TargetDataPoints: targetDataPoints}
}

// Score fills in the forecast's confidence. The artifact is nil for
// the statistical method.
func (s *Scorer) Score(forecast *model.Forecast, series *model.DailySeries, artifact *model.TrainingArtifact) {
	target := s.TargetDataPoints
	if target <= 0 {
		target = targetDataPoints
	}

	confidence := confidenceBase

	volume := float64(forecast.DataPointsUsed) / float64(target)
	if volume > 1 {
		volume = 1
	}
	confidence += dataVolumeBonus * volume

	if forecast.Method == model.MethodLSTM && artifact != nil {
		confidence += modelQualityBonus * modelQuality(artifact)
	}

	confidence -= volatilityPenalty * volatility(series)

	if forecast.Method == model.MethodStatistical && confidence > statisticalCeiling {
		confidence = statisticalCeiling
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	forecast.Confidence = confidence
}

// modelQuality scales the model bonus by how much the trained model
// beats a naive predict-yesterday baseline. A model no better than the
// baseline earns nothing.
func modelQuality(artifact *model.TrainingArtifact) float64 {
	if artifact.BaselineError <= 0 {
		return 0
	}
	quality := 1 - artifact.ValidationError/artifact.BaselineError
	if quality < 0 {
		return 0
	}
	if quality > 1 {
		return 1
	}
	return quality
}

// volatility maps the series' coefficient of variation onto [0, 1].
// Spending below the tolerance threshold is treated as steady.
func volatility(series *model.DailySeries) float64 {
	m := series.Mean()
	if m <= 0 || series.Len() < 2 {
		return 0
	}

	cv := math.Sqrt(series.Variance()) / m
	if cv <= volatilityTolerance {
		return 0
	}

	scaled := cv - volatilityTolerance
	if scaled > 1 {
		return 1
	}
	return scaled
}
