package predictor

import (
	"time"

	"github.com/ledgercast/ledgercast/internal/model"
)

// Trend blending constants for the statistical fallback. The recent
// window is compared against the longer window and the ratio is
// clamped so a single unusual fortnight cannot swing the whole
// forecast.
const (
	trendRecentDays = 14
	trendLongDays   = 60
	trendFloor      = 0.7
	trendCeiling    = 1.3
)

// StatisticalForecast estimates future daily spend without a trained
// model: day-of-week seasonal averages over the available history,
// adjusted by a short-term trend factor. It is deterministic for a
// given series, which keeps repeated forecasts within a cache TTL
// identical.
func StatisticalForecast(series *model.DailySeries, asOf time.Time, horizonDays int) []float64 {
	var dowTotals [7]float64
	var dowCounts [7]int
	var overall float64

	for i, v := range series.Values {
		dow := series.Date(i).Weekday()
		dowTotals[dow] += v
		dowCounts[dow]++
		overall += v
	}
	overallMean := overall / float64(series.Len())

	trend := trendFactor(series)

	asOfDay := asOf.UTC().Truncate(24 * time.Hour)
	predictions := make([]float64, horizonDays)
	for day := 0; day < horizonDays; day++ {
		future := asOfDay.AddDate(0, 0, day+1)
		dow := future.Weekday()

		base := overallMean
		if dowCounts[dow] > 0 {
			base = dowTotals[dow] / float64(dowCounts[dow])
		}

		pred := base * trend
		if pred < 0 {
			pred = 0
		}
		predictions[day] = pred
	}

	return predictions
}

// trendFactor compares recent average spend against the longer-term
// average. A factor above one means spending is accelerating.
func trendFactor(series *model.DailySeries) float64 {
	if series.Len() < trendRecentDays {
		return 1
	}

	recent := mean(series.Tail(trendRecentDays))
	long := mean(series.Tail(trendLongDays))
	if long <= 0 {
		return 1
	}

	factor := recent / long
	if factor < trendFloor {
		return trendFloor
	}
	if factor > trendCeiling {
		return trendCeiling
	}
	return factor
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
