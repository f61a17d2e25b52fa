package model

import "time"

// ScalerParams holds the fitted min-max scaler bounds persisted with a
// trained model. The scaler fitted during training must be the one used
// at inference; refitting on a different distribution is a correctness
// bug, so the parameters travel inside the artifact.
type ScalerParams struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// TrainingArtifact is one immutable versioned output of a training run.
// Retraining publishes a new artifact identified by TrainedAt; the store
// keeps only the most recent one per owner and never mutates a
// published version in place.
type TrainingArtifact struct {
	TrainedAt       time.Time    `json:"trained_at"`
	OwnerID         string       `json:"owner_id"`
	Weights         []byte       `json:"weights"`
	Scaler          ScalerParams `json:"scaler"`
	WindowLength    int          `json:"window_length"`
	MinRequiredDays int          `json:"min_required_days"`
	DataDays        int          `json:"data_days"`
	ValidationError float64      `json:"validation_error"`
	BaselineError   float64      `json:"baseline_error"`
}

// Age returns how old the artifact is as of the given time.
func (a *TrainingArtifact) Age(asOf time.Time) time.Duration {
	return asOf.Sub(a.TrainedAt)
}
