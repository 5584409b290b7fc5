package exchange

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"satistakip/backend/internal/cache"
	"satistakip/backend/internal/domain"
)

type countingSource struct {
	calls atomic.Int32
	rate  decimal.Decimal
	err   error
}

func (s *countingSource) FetchRate(_ context.Context, _ string, _ string) (decimal.Decimal, error) {
	s.calls.Add(1)
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, string) (*domain.RateEntry, bool, error) {
	return nil, false, errors.New("cache down")
}

func (brokenCache) Set(context.Context, string, string, domain.RateEntry) error {
	return errors.New("cache down")
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestRates(t *testing.T, source RateSource, store cache.RateCache, c *clock) *Rates {
	t.Helper()
	return NewRates(source, store, Options{Now: c.Now, Logger: zaptest.NewLogger(t)})
}

func TestGetRateBaseCurrencyNeverCallsSource(t *testing.T) {
	src := &countingSource{rate: decimal.RequireFromString("41.5")}
	rates := newTestRates(t, src, cache.NewMemoryRateCache(), &clock{now: time.Now()})

	for _, code := range []string{"TRY", "TL", "tl", ""} {
		rate, err := rates.GetRate(context.Background(), code, domain.BaseCurrency)
		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.NewFromInt(1)), "code %q", code)
	}
	assert.EqualValues(t, 0, src.calls.Load())
}

func TestGetRateCachesWithinTTL(t *testing.T) {
	src := &countingSource{rate: decimal.RequireFromString("41.5")}
	c := &clock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	rates := newTestRates(t, src, cache.NewMemoryRateCache(), c)

	first, err := rates.GetRate(context.Background(), "USD", "TRY")
	require.NoError(t, err)
	assert.True(t, first.Equal(decimal.RequireFromString("41.5")))

	src.rate = decimal.RequireFromString("42")
	c.now = c.now.Add(59*time.Minute + 59*time.Second)
	second, err := rates.GetRate(context.Background(), "USD", "TRY")
	require.NoError(t, err)
	assert.True(t, second.Equal(first))
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestGetRateRefreshesAtExactlyTTL(t *testing.T) {
	src := &countingSource{rate: decimal.RequireFromString("41.5")}
	c := &clock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryRateCache()
	rates := newTestRates(t, src, store, c)

	_, err := rates.GetRate(context.Background(), "EUR", "TRY")
	require.NoError(t, err)

	src.rate = decimal.RequireFromString("48.25")
	c.now = c.now.Add(time.Hour)
	rate, err := rates.GetRate(context.Background(), "EUR", "TRY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("48.25")))
	assert.EqualValues(t, 2, src.calls.Load())

	entry, ok, err := store.Get(context.Background(), "EUR", "TRY")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c.now, entry.FetchedAt)
}

func TestGetRateFailureLeavesCacheUntouched(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryRateCache()
	stale := domain.RateEntry{Rate: decimal.RequireFromString("40"), FetchedAt: c.now.Add(-2 * time.Hour)}
	require.NoError(t, store.Set(context.Background(), "USD", "TRY", stale))

	src := &countingSource{err: errors.New("connection refused")}
	rates := newTestRates(t, src, store, c)

	_, err := rates.GetRate(context.Background(), "USD", "TRY")
	require.ErrorIs(t, err, ErrRateUnavailable)

	entry, ok, err := store.Get(context.Background(), "USD", "TRY")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stale.FetchedAt, entry.FetchedAt)
	assert.True(t, entry.Rate.Equal(stale.Rate))
}

func TestGetRateRejectsNonPositiveRate(t *testing.T) {
	store := cache.NewMemoryRateCache()
	src := &countingSource{rate: decimal.Zero}
	rates := newTestRates(t, src, store, &clock{now: time.Now()})

	_, err := rates.GetRate(context.Background(), "USD", "TRY")
	require.ErrorIs(t, err, ErrRateUnavailable)

	_, ok, _ := store.Get(context.Background(), "USD", "TRY")
	assert.False(t, ok)
}

func TestGetRateSurvivesBrokenCache(t *testing.T) {
	src := &countingSource{rate: decimal.RequireFromString("41.5")}
	rates := newTestRates(t, src, brokenCache{}, &clock{now: time.Now()})

	rate, err := rates.GetRate(context.Background(), "USD", "TRY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("41.5")))
}
