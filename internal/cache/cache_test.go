package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satistakip/backend/internal/domain"
)

func TestKeyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, "rate:USD:TRY", Key("usd", "try"))
}

func TestMemoryRateCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryRateCache()

	_, ok, err := c.Get(ctx, "USD", "TRY")
	require.NoError(t, err)
	require.False(t, ok)

	fetched := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	require.NoError(t, c.Set(ctx, "USD", "TRY", domain.RateEntry{Rate: decimal.RequireFromString("41.7"), FetchedAt: fetched}))

	entry, ok, err := c.Get(ctx, "usd", "try")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, entry.Rate.Equal(decimal.RequireFromString("41.7")))
	assert.Equal(t, fetched, entry.FetchedAt)

	_, ok, err = c.Get(ctx, "TRY", "USD")
	require.NoError(t, err)
	assert.False(t, ok, "pairs are directional")
}
