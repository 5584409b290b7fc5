package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"satistakip/backend/internal/cache"
	"satistakip/backend/internal/domain"
)

var ErrRateUnavailable = errors.New("exchange rate unavailable")

const DefaultTTL = time.Hour

// RateSource looks up a live conversion rate for one currency pair.
type RateSource interface {
	FetchRate(ctx context.Context, from string, to string) (decimal.Decimal, error)
}

type Options struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger *zap.Logger
}

// Rates resolves conversion rates through a TTL-bounded cache in front of a
// RateSource. It is safe for concurrent use as long as the cache is.
type Rates struct {
	source RateSource
	cache  cache.RateCache
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewRates(source RateSource, store cache.RateCache, opts Options) *Rates {
	if store == nil {
		store = cache.NewMemoryRateCache()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Rates{
		source: source,
		cache:  store,
		ttl:    opts.TTL,
		now:    opts.Now,
		logger: opts.Logger,
	}
}

// GetRate returns how many units of to one unit of from is worth.
// A base-currency from resolves to 1 without touching the cache or source.
func (r *Rates) GetRate(ctx context.Context, from string, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if domain.IsBaseCurrency(from) || from == to {
		return decimal.NewFromInt(1), nil
	}

	now := r.now()
	entry, ok, err := r.cache.Get(ctx, from, to)
	if err != nil {
		r.logger.Warn("rate cache read failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
	}
	if err == nil && ok && entry.Rate.IsPositive() && now.Sub(entry.FetchedAt) < r.ttl {
		return entry.Rate, nil
	}

	if r.source == nil {
		return decimal.Zero, fmt.Errorf("%w: %s->%s: no rate source", ErrRateUnavailable, from, to)
	}
	rate, err := r.source.FetchRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s->%s: %v", ErrRateUnavailable, from, to, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s->%s: non-positive rate %s", ErrRateUnavailable, from, to, rate)
	}

	if err := r.cache.Set(ctx, from, to, domain.RateEntry{Rate: rate, FetchedAt: now}); err != nil {
		r.logger.Warn("rate cache write failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
	}
	return rate, nil
}
