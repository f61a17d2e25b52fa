package model

import "time"

// Method identifies how a forecast was produced.
type Method string

const (
	// MethodLSTM means a trained sequence model produced the forecast.
	MethodLSTM Method = "lstm"
	// MethodStatistical means the seasonal fallback produced it.
	MethodStatistical Method = "statistical"
)

// Forecast is the engine's output for one owner: HorizonDays of
// predicted daily spend starting the day after GeneratedAt's calendar
// day. Invariants: every daily prediction is >= 0, PredictedTotal is
// the sum of DailyPredictions, and Confidence is within [0, 100].
type Forecast struct {
	GeneratedAt      time.Time `json:"generated_at"`
	OwnerID          string    `json:"owner_id"`
	Method           Method    `json:"method"`
	DailyPredictions []float64 `json:"daily_predictions"`
	HorizonDays      int       `json:"horizon_days"`
	DataPointsUsed   int       `json:"data_points_used"`
	PredictedTotal   float64   `json:"predicted_total"`
	DailyAverage     float64   `json:"daily_average"`
	Confidence       float64   `json:"confidence"`
}

// Finalize clamps every daily prediction to zero or above and derives
// PredictedTotal and DailyAverage from the clamped values. Spending
// cannot be negative, so the clamp applies to every prediction path.
func (f *Forecast) Finalize() {
	var total float64
	for i, v := range f.DailyPredictions {
		if v < 0 {
			f.DailyPredictions[i] = 0
			continue
		}
		total += v
	}
	f.PredictedTotal = total
	if len(f.DailyPredictions) > 0 {
		f.DailyAverage = total / float64(len(f.DailyPredictions))
	}
}
