package predictor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/feature"
	"github.com/ledgercast/ledgercast/internal/lstm"
	"github.com/ledgercast/ledgercast/internal/model"
	"github.com/ledgercast/ledgercast/internal/trainer"
)

// fakeArtifactStore serves a single canned artifact.
type fakeArtifactStore struct {
	artifact *model.TrainingArtifact
	flagged  map[string]bool
}

func newFakeArtifactStore(artifact *model.TrainingArtifact) *fakeArtifactStore {
	return &fakeArtifactStore{artifact: artifact, flagged: make(map[string]bool)}
}

func (f *fakeArtifactStore) SaveArtifact(_ context.Context, artifact *model.TrainingArtifact) error {
	f.artifact = artifact
	return nil
}

func (f *fakeArtifactStore) GetLatestArtifact(_ context.Context, _ string) (*model.TrainingArtifact, error) {
	if f.artifact == nil {
		return nil, common.ErrNotFound
	}
	return f.artifact, nil
}

func (f *fakeArtifactStore) MarkRetrainRequested(_ context.Context, ownerID string) error {
	f.flagged[ownerID] = true
	return nil
}

func (f *fakeArtifactStore) ClearRetrainRequested(_ context.Context, ownerID string) error {
	delete(f.flagged, ownerID)
	return nil
}

func (f *fakeArtifactStore) ListRetrainRequested(_ context.Context) ([]string, error) {
	var owners []string
	for owner := range f.flagged {
		owners = append(owners, owner)
	}
	return owners, nil
}

func constantSeries(owner string, days int, amount float64) *model.DailySeries {
	values := make([]float64, days)
	for i := range values {
		values[i] = amount
	}
	return &model.DailySeries{
		OwnerID: owner,
		Start:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Values:  values,
	}
}

// trainedArtifact runs a real small training job so the predictor test
// exercises genuine weights rather than fabricated ones.
func trainedArtifact(t *testing.T, series *model.DailySeries) *model.TrainingArtifact {
	t.Helper()

	store := newFakeArtifactStore(nil)
	cfg := trainer.Config{
		WindowLength:    10,
		HiddenSize:      6,
		MinRequiredDays: 30,
		MaxEpochs:       30,
		Patience:        5,
		LearningRate:    0.05,
		TrainFraction:   0.8,
		Seed:            1,
	}
	artifact, err := trainer.New(store, cfg).Train(context.Background(), series)
	require.NoError(t, err)
	return artifact
}

func asOfFor(series *model.DailySeries) time.Time {
	return series.End()
}

func TestPredictEmptySeriesFails(t *testing.T) {
	p := New(newFakeArtifactStore(nil), DefaultConfig())

	_, _, err := p.Predict(context.Background(), &model.DailySeries{OwnerID: "alice"}, time.Now().UTC(), 30)

	assert.ErrorIs(t, err, common.ErrInsufficientData)
}

func TestPredictWithoutArtifactUsesStatistical(t *testing.T) {
	p := New(newFakeArtifactStore(nil), DefaultConfig())
	series := constantSeries("alice", 60, 100)

	forecast, artifact, err := p.Predict(context.Background(), series, asOfFor(series), 30)
	require.NoError(t, err)

	assert.Nil(t, artifact)
	assert.Equal(t, model.MethodStatistical, forecast.Method)
	require.Len(t, forecast.DailyPredictions, 30)
	for _, v := range forecast.DailyPredictions {
		assert.InDelta(t, 100.0, v, 10.0)
	}
	assert.Equal(t, 60, forecast.DataPointsUsed)
}

func TestPredictWithFreshArtifactUsesModel(t *testing.T) {
	series := constantSeries("alice", 60, 100)
	artifact := trainedArtifact(t, series)
	artifact.TrainedAt = asOfFor(series) // fresh

	p := New(newFakeArtifactStore(artifact), DefaultConfig())

	forecast, backing, err := p.Predict(context.Background(), series, asOfFor(series), 30)
	require.NoError(t, err)

	assert.Equal(t, model.MethodLSTM, forecast.Method)
	require.NotNil(t, backing)
	assert.Equal(t, artifact.TrainedAt, backing.TrainedAt)
	require.Len(t, forecast.DailyPredictions, 30)
	for _, v := range forecast.DailyPredictions {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestPredictStaleArtifactFallsBack(t *testing.T) {
	series := constantSeries("alice", 60, 100)
	artifact := trainedArtifact(t, series)
	artifact.TrainedAt = asOfFor(series).AddDate(0, 0, -45)

	p := New(newFakeArtifactStore(artifact), DefaultConfig())

	forecast, backing, err := p.Predict(context.Background(), series, asOfFor(series), 30)
	require.NoError(t, err)

	assert.Nil(t, backing)
	assert.Equal(t, model.MethodStatistical, forecast.Method)
}

func TestPredictShortSeriesFallsBack(t *testing.T) {
	long := constantSeries("alice", 60, 100)
	artifact := trainedArtifact(t, long)

	short := constantSeries("alice", 20, 100)
	artifact.TrainedAt = asOfFor(short)

	p := New(newFakeArtifactStore(artifact), DefaultConfig())

	forecast, backing, err := p.Predict(context.Background(), short, asOfFor(short), 30)
	require.NoError(t, err)

	assert.Nil(t, backing)
	assert.Equal(t, model.MethodStatistical, forecast.Method)
}

func TestPredictCorruptWeightsFlagsRetrain(t *testing.T) {
	series := constantSeries("alice", 60, 100)
	artifact := trainedArtifact(t, series)
	artifact.TrainedAt = asOfFor(series)
	artifact.Weights = []byte("corrupt")

	store := newFakeArtifactStore(artifact)
	p := New(store, DefaultConfig())

	forecast, backing, err := p.Predict(context.Background(), series, asOfFor(series), 30)
	require.NoError(t, err)

	assert.Nil(t, backing)
	assert.Equal(t, model.MethodStatistical, forecast.Method)
	assert.True(t, store.flagged["alice"], "corrupt weights must flag the owner for retraining")
}

func TestPredictHorizonDefaulting(t *testing.T) {
	p := New(newFakeArtifactStore(nil), DefaultConfig())
	series := constantSeries("alice", 60, 100)

	forecast, _, err := p.Predict(context.Background(), series, asOfFor(series), 0)
	require.NoError(t, err)

	assert.Len(t, forecast.DailyPredictions, 30)
	assert.Equal(t, 30, forecast.HorizonDays)
}

func TestRecursiveForecastSlidesWindow(t *testing.T) {
	series := constantSeries("alice", 60, 100)
	artifact := trainedArtifact(t, series)

	net, err := lstm.Deserialize(artifact.Weights)
	require.NoError(t, err)
	scaler := feature.NewScaler(artifact.Scaler)

	daily, err := RecursiveForecast(context.Background(), net, scaler, series.Tail(artifact.WindowLength), 14)
	require.NoError(t, err)

	require.Len(t, daily, 14)
	// A model trained on a constant signal should stay near it when its
	// own predictions are fed back in.
	for _, v := range daily {
		assert.InDelta(t, 100.0, v, 25.0)
	}
}

func TestRecursiveForecastHonorsContext(t *testing.T) {
	series := constantSeries("alice", 60, 100)
	artifact := trainedArtifact(t, series)

	net, err := lstm.Deserialize(artifact.Weights)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = RecursiveForecast(ctx, net, feature.NewScaler(artifact.Scaler), series.Tail(artifact.WindowLength), 30)
	assert.ErrorIs(t, err, context.Canceled)
}
