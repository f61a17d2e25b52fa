package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercast/ledgercast/internal/model"
)

func testForecast(owner string) *model.Forecast {
	return &model.Forecast{
		OwnerID:     owner,
		Method:      model.MethodStatistical,
		HorizonDays: 30,
	}
}

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	c := New(time.Hour)
	asOf := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

	var computes int
	compute := func(context.Context) (*model.Forecast, error) {
		computes++
		return testForecast("alice"), nil
	}

	first, err := c.GetOrCompute(context.Background(), "alice", asOf, compute)
	require.NoError(t, err)

	// Same calendar day, different wall clock: still a hit
	second, err := c.GetOrCompute(context.Background(), "alice", asOf.Add(3*time.Hour), compute)
	require.NoError(t, err)

	assert.Equal(t, 1, computes)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrComputeKeysPerOwnerAndDay(t *testing.T) {
	c := New(time.Hour)
	asOf := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	var computes int
	compute := func(context.Context) (*model.Forecast, error) {
		computes++
		return testForecast("x"), nil
	}

	_, _ = c.GetOrCompute(context.Background(), "alice", asOf, compute)
	_, _ = c.GetOrCompute(context.Background(), "bob", asOf, compute)
	_, _ = c.GetOrCompute(context.Background(), "alice", asOf.AddDate(0, 0, 1), compute)

	assert.Equal(t, 3, computes)
	assert.Equal(t, 3, c.Len())
}

func TestGetOrComputeExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	asOf := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	var computes int
	compute := func(context.Context) (*model.Forecast, error) {
		computes++
		return testForecast("alice"), nil
	}

	_, err := c.GetOrCompute(context.Background(), "alice", asOf, compute)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = c.GetOrCompute(context.Background(), "alice", asOf, compute)
	require.NoError(t, err)

	assert.Equal(t, 2, computes)
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := New(time.Hour)
	asOf := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	var computes atomic.Int32
	compute := func(context.Context) (*model.Forecast, error) {
		computes.Add(1)
		time.Sleep(50 * time.Millisecond)
		return testForecast("alice"), nil
	}

	const waiters = 20
	results := make([]*model.Forecast, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			forecast, err := c.GetOrCompute(context.Background(), "alice", asOf, compute)
			assert.NoError(t, err)
			results[i] = forecast
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), computes.Load(), "concurrent callers must share one computation")
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(time.Hour)
	asOf := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	var computes int
	boom := errors.New("transient failure")
	compute := func(context.Context) (*model.Forecast, error) {
		computes++
		if computes == 1 {
			return nil, boom
		}
		return testForecast("alice"), nil
	}

	_, err := c.GetOrCompute(context.Background(), "alice", asOf, compute)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	forecast, err := c.GetOrCompute(context.Background(), "alice", asOf, compute)
	require.NoError(t, err)
	assert.NotNil(t, forecast)
	assert.Equal(t, 2, computes)
}

func TestInvalidateDropsOnlyOwner(t *testing.T) {
	c := New(time.Hour)
	asOf := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	compute := func(owner string) ComputeFunc {
		return func(context.Context) (*model.Forecast, error) {
			return testForecast(owner), nil
		}
	}

	_, _ = c.GetOrCompute(context.Background(), "alice", asOf, compute("alice"))
	_, _ = c.GetOrCompute(context.Background(), "alice", asOf.AddDate(0, 0, -1), compute("alice"))
	_, _ = c.GetOrCompute(context.Background(), "bob", asOf, compute("bob"))
	require.Equal(t, 3, c.Len())

	c.Invalidate("alice")

	assert.Equal(t, 1, c.Len())

	var recomputed bool
	_, _ = c.GetOrCompute(context.Background(), "alice", asOf, func(context.Context) (*model.Forecast, error) {
		recomputed = true
		return testForecast("alice"), nil
	})
	assert.True(t, recomputed)
}
