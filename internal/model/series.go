package model

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// DailySeries is a gap-free daily spend series for one owner. Values[i]
// holds the total spend for the calendar day Start+i days; every day in
// the covered range has an entry, days with no transactions hold zero.
type DailySeries struct {
	Start   time.Time
	OwnerID string
	Values  []float64
}

// Len returns the number of days in the series.
func (s *DailySeries) Len() int {
	return len(s.Values)
}

// Date returns the calendar day for index i.
func (s *DailySeries) Date(i int) time.Time {
	return s.Start.AddDate(0, 0, i)
}

// End returns the last calendar day covered by the series. It is the
// zero time for an empty series.
func (s *DailySeries) End() time.Time {
	if len(s.Values) == 0 {
		return time.Time{}
	}
	return s.Date(len(s.Values) - 1)
}

// Sum returns the total spend across the series.
func (s *DailySeries) Sum() float64 {
	var total float64
	for _, v := range s.Values {
		total += v
	}
	return total
}

// Mean returns the average daily spend.
func (s *DailySeries) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance returns the population variance of the daily values.
func (s *DailySeries) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Tail returns the most recent n values. When the series is shorter
// than n the whole series is returned. The returned slice aliases the
// series and must not be mutated.
func (s *DailySeries) Tail(n int) []float64 {
	if n >= len(s.Values) {
		return s.Values
	}
	return s.Values[len(s.Values)-n:]
}
