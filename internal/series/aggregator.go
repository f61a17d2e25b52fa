// Package series converts raw transactions into gap-free daily spend series.
package series

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ledgercast/ledgercast/internal/model"
)

// QualityReport counts records the aggregator rejected. Rejection never
// aborts aggregation; the caller surfaces the counts as a data-quality
// metric.
type QualityReport struct {
	MissingDate       int
	NonFiniteAmount   int
	OutsideWindow     int
	TotalTransactions int
}

// Skipped returns the number of records excluded for quality reasons.
// Records outside the lookback window are windowing, not quality.
func (r QualityReport) Skipped() int {
	return r.MissingDate + r.NonFiniteAmount
}

// Aggregator builds daily spend series from transactions.
type Aggregator struct {
	lookbackDays int
}

// DefaultLookbackDays is the default history window fed to forecasting.
const DefaultLookbackDays = 180

// NewAggregator creates an aggregator with the given lookback window.
// A non-positive lookback falls back to the default.
func NewAggregator(lookbackDays int) *Aggregator {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Aggregator{lookbackDays: lookbackDays}
}

// dayOf truncates a timestamp to its UTC calendar day. All day
// boundaries in the engine use UTC so that same-day sums are stable
// across callers.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Aggregate converts an owner's transactions into a gap-free daily
// series covering [earliest valid day, asOf]. Same-day amounts are
// summed; days with no transactions are zero-filled. Records with a
// missing date or a non-finite amount are skipped and counted, never
// fatal. The sum of the returned series equals the sum of the valid
// transactions inside the window.
func (a *Aggregator) Aggregate(ownerID string, transactions []model.Transaction, asOf time.Time) (*model.DailySeries, QualityReport) {
	report := QualityReport{TotalTransactions: len(transactions)}

	asOfDay := dayOf(asOf)
	windowStart := asOfDay.AddDate(0, 0, -(a.lookbackDays - 1))

	totals := make(map[time.Time]float64)
	for _, txn := range transactions {
		if txn.Date.IsZero() {
			report.MissingDate++
			continue
		}
		if math.IsNaN(txn.Amount) || math.IsInf(txn.Amount, 0) {
			report.NonFiniteAmount++
			continue
		}

		day := dayOf(txn.Date)
		if day.Before(windowStart) || day.After(asOfDay) {
			report.OutsideWindow++
			continue
		}
		totals[day] += txn.Amount
	}

	if report.Skipped() > 0 {
		slog.Warn("Skipped malformed transactions during aggregation",
			"owner", ownerID,
			"missing_date", report.MissingDate,
			"non_finite_amount", report.NonFiniteAmount)
	}

	if len(totals) == 0 {
		return &model.DailySeries{OwnerID: ownerID}, report
	}

	days := make([]time.Time, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	// Zero-fill every day between the first observed day and asOf
	start := days[0]
	n := int(asOfDay.Sub(start).Hours()/24) + 1
	values := make([]float64, n)
	for day, amount := range totals {
		idx := int(day.Sub(start).Hours() / 24)
		values[idx] = amount
	}

	return &model.DailySeries{
		OwnerID: ownerID,
		Start:   start,
		Values:  values,
	}, report
}
