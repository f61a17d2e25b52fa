// Package feature builds normalized sliding windows for model training
// and inference, and owns the scaler that maps spend amounts to model
// space and back.
package feature

import (
	"fmt"

	"github.com/ledgercast/ledgercast/internal/model"
)

// DefaultWindowLength is the number of past days fed to the sequence
// model per prediction step.
const DefaultWindowLength = 30

// Scaler is a fitted min-max scaler over a single spend series. The
// instance fitted at training time is persisted inside the artifact
// and reused at inference; inference never refits.
type Scaler struct {
	Min float64
	Max float64
}

// FitScaler computes min-max bounds over the given values only.
func FitScaler(values []float64) Scaler {
	if len(values) == 0 {
		return Scaler{Min: 0, Max: 1}
	}
	s := Scaler{Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	return s
}

// NewScaler restores a scaler from persisted artifact parameters.
func NewScaler(params model.ScalerParams) Scaler {
	return Scaler{Min: params.Min, Max: params.Max}
}

// Params returns the scaler bounds for artifact persistence.
func (s Scaler) Params() model.ScalerParams {
	return model.ScalerParams{Min: s.Min, Max: s.Max}
}

// Transform maps a spend amount into [0, 1]. A degenerate range (all
// values identical) maps everything to zero rather than dividing by zero.
func (s Scaler) Transform(v float64) float64 {
	span := s.Max - s.Min
	if span == 0 {
		return 0
	}
	return (v - s.Min) / span
}

// Inverse maps a normalized model output back to a spend amount.
func (s Scaler) Inverse(v float64) float64 {
	return v*(s.Max-s.Min) + s.Min
}

// TransformSlice applies Transform to every value, returning a new slice.
func (s Scaler) TransformSlice(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Transform(v)
	}
	return out
}

// Window is one training example: Input holds L consecutive normalized
// days and Label the normalized value of the following day.
type Window struct {
	Input []float64
	Label float64
}

// Windower slices a normalized series into overlapping fixed-length
// windows paired with next-day labels.
type Windower struct {
	Length int
}

// NewWindower creates a windower with the given window length. A
// non-positive length falls back to the default.
func NewWindower(length int) *Windower {
	if length <= 0 {
		length = DefaultWindowLength
	}
	return &Windower{Length: length}
}

// Windows builds every overlapping window from an already-normalized
// series. A series of n days yields n-L windows; it errors when the
// series is too short to produce even one.
func (w *Windower) Windows(normalized []float64) ([]Window, error) {
	if len(normalized) <= w.Length {
		return nil, fmt.Errorf("series too short for windowing: have %d days, need more than %d", len(normalized), w.Length)
	}

	windows := make([]Window, 0, len(normalized)-w.Length)
	for i := 0; i+w.Length < len(normalized); i++ {
		windows = append(windows, Window{
			Input: normalized[i : i+w.Length],
			Label: normalized[i+w.Length],
		})
	}
	return windows, nil
}

// Prepare fits a scaler over the series, normalizes it, and builds
// windows from the result. This is the training entry point; inference
// reuses the persisted scaler through NewScaler instead.
func (w *Windower) Prepare(series *model.DailySeries) ([]Window, Scaler, error) {
	scaler := FitScaler(series.Values)
	windows, err := w.Windows(scaler.TransformSlice(series.Values))
	if err != nil {
		return nil, scaler, err
	}
	return windows, scaler, nil
}
