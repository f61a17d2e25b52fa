package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/model"
)

func setupStore(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleTransaction(owner, id string, date time.Time, amount float64) model.Transaction {
	txn := model.Transaction{
		ID:          id,
		OwnerID:     owner,
		Date:        date,
		Amount:      amount,
		Category:    "Groceries",
		Description: "Grocery Store",
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

func sampleArtifact(owner string, trainedAt time.Time) *model.TrainingArtifact {
	return &model.TrainingArtifact{
		OwnerID:         owner,
		TrainedAt:       trainedAt,
		WindowLength:    30,
		Scaler:          model.ScalerParams{Min: 0, Max: 250},
		Weights:         []byte(`{"hidden":4}`),
		ValidationError: 12.5,
		BaselineError:   18.0,
		MinRequiredDays: 60,
		DataDays:        120,
	}
}

func TestSaveAndGetTransactions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	transactions := []model.Transaction{
		sampleTransaction("alice", "t1", base, 40),
		sampleTransaction("alice", "t2", base.AddDate(0, 0, 2), 60),
		sampleTransaction("bob", "t3", base, 25),
	}

	require.NoError(t, store.SaveTransactions(ctx, transactions))

	got, err := store.GetTransactionsByOwner(ctx, "alice", base.AddDate(0, 0, -1), base.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "t2", got[1].ID)
	assert.Equal(t, 40.0, got[0].Amount)

	count, err := store.GetTransactionCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSaveTransactionsDeduplicates(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	txn := sampleTransaction("alice", "t1", base, 40)

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	// Same hash under a different ID is ignored
	dup := sampleTransaction("alice", "t1-resync", base.Add(2*time.Hour), 40)
	dup.Hash = txn.Hash
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{dup}))

	count, err := store.GetTransactionCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetTransactionsByOwnerValidation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.GetTransactionsByOwner(ctx, "", now.AddDate(0, 0, -7), now)
	assert.ErrorIs(t, err, ErrEmptyString)

	_, err = store.GetTransactionsByOwner(ctx, "alice", now, now.AddDate(0, 0, -7))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestSaveTransactionsValidation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	tests := []struct {
		name         string
		transactions []model.Transaction
	}{
		{"nil slice", nil},
		{"empty slice", []model.Transaction{}},
		{"missing ID", []model.Transaction{{OwnerID: "alice", Date: time.Now(), Amount: 5}}},
		{"missing owner", []model.Transaction{{ID: "t1", Date: time.Now(), Amount: 5}}},
		{"missing date", []model.Transaction{{ID: "t1", OwnerID: "alice", Amount: 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.SaveTransactions(ctx, tt.transactions))
		})
	}
}

func TestListOwners(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		sampleTransaction("carol", "t1", base, 10),
		sampleTransaction("alice", "t2", base, 20),
		sampleTransaction("alice", "t3", base.AddDate(0, 0, 1), 30),
	}))

	owners, err := store.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, owners)
}

func TestGetEarliestTransactionDate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.GetEarliestTransactionDate(ctx, "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)

	base := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		sampleTransaction("alice", "t1", base, 10),
		sampleTransaction("alice", "t2", base.AddDate(0, 0, -10), 20),
	}))

	earliest, err := store.GetEarliestTransactionDate(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, earliest.Equal(base.AddDate(0, 0, -10)))
}

func TestGetLatestArtifactNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetLatestArtifact(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveAndGetArtifact(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	trainedAt := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveArtifact(ctx, sampleArtifact("alice", trainedAt)))

	got, err := store.GetLatestArtifact(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, 30, got.WindowLength)
	assert.Equal(t, model.ScalerParams{Min: 0, Max: 250}, got.Scaler)
	assert.Equal(t, []byte(`{"hidden":4}`), got.Weights)
	assert.Equal(t, 12.5, got.ValidationError)
	assert.Equal(t, 18.0, got.BaselineError)
	assert.Equal(t, 120, got.DataDays)
	assert.True(t, got.TrainedAt.Equal(trainedAt))
}

func TestSaveArtifactSupersedesOlderVersions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	old := sampleArtifact("alice", time.Date(2025, 5, 1, 3, 0, 0, 0, time.UTC))
	require.NoError(t, store.SaveArtifact(ctx, old))

	fresh := sampleArtifact("alice", time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC))
	fresh.ValidationError = 8.0
	require.NoError(t, store.SaveArtifact(ctx, fresh))

	got, err := store.GetLatestArtifact(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 8.0, got.ValidationError)
	assert.True(t, got.TrainedAt.Equal(fresh.TrainedAt))

	// Another owner's artifact is untouched by the pruning
	require.NoError(t, store.SaveArtifact(ctx, sampleArtifact("bob", time.Date(2025, 4, 1, 3, 0, 0, 0, time.UTC))))
	bobs, err := store.GetLatestArtifact(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", bobs.OwnerID)
}

func TestSaveArtifactValidation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	trainedAt := time.Now().UTC()

	tests := []struct {
		name     string
		mutate   func(*model.TrainingArtifact)
		artifact *model.TrainingArtifact
	}{
		{name: "nil artifact"},
		{name: "missing owner", mutate: func(a *model.TrainingArtifact) { a.OwnerID = "" }},
		{name: "missing trained_at", mutate: func(a *model.TrainingArtifact) { a.TrainedAt = time.Time{} }},
		{name: "zero window", mutate: func(a *model.TrainingArtifact) { a.WindowLength = 0 }},
		{name: "empty weights", mutate: func(a *model.TrainingArtifact) { a.Weights = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := tt.artifact
			if tt.mutate != nil {
				artifact = sampleArtifact("alice", trainedAt)
				tt.mutate(artifact)
			}
			assert.Error(t, store.SaveArtifact(ctx, artifact))
		})
	}
}

func TestRetrainRequestLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	owners, err := store.ListRetrainRequested(ctx)
	require.NoError(t, err)
	assert.Empty(t, owners)

	require.NoError(t, store.MarkRetrainRequested(ctx, "alice"))
	require.NoError(t, store.MarkRetrainRequested(ctx, "alice")) // idempotent
	require.NoError(t, store.MarkRetrainRequested(ctx, "bob"))

	owners, err = store.ListRetrainRequested(ctx)
	require.NoError(t, err)
	assert.Len(t, owners, 2)

	require.NoError(t, store.ClearRetrainRequested(ctx, "alice"))

	owners, err = store.ListRetrainRequested(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, owners)

	// Clearing an unflagged owner is a no-op
	require.NoError(t, store.ClearRetrainRequested(ctx, "carol"))
}
