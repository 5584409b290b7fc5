package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/exchange"
)

// ErrRateUnavailable matches exchange.ErrRateUnavailable as well.
var ErrRateUnavailable = fmt.Errorf("price conversion: %w", exchange.ErrRateUnavailable)

type RateProvider interface {
	GetRate(ctx context.Context, from string, to string) (decimal.Decimal, error)
}

// Resolver is the only place catalog prices are converted into the base
// currency.
type Resolver struct {
	rates RateProvider
}

func NewResolver(rates RateProvider) *Resolver {
	return &Resolver{rates: rates}
}

// Resolve prices one unit of product under tier. Unknown tiers price as
// retail. The returned unit always satisfies
// UnitPriceBase == OriginalPrice * ExchangeRate.
func (r *Resolver) Resolve(ctx context.Context, product domain.Product, tier domain.PriceTier) (domain.PricedUnit, error) {
	original := product.TierPrice(tier)
	currency := domain.NormalizeCurrency(product.Currency)

	if domain.IsBaseCurrency(currency) {
		return domain.PricedUnit{
			UnitPriceBase:    original,
			OriginalCurrency: currency,
			OriginalPrice:    original,
			ExchangeRate:     decimal.NewFromInt(1),
		}, nil
	}

	if r.rates == nil {
		return domain.PricedUnit{}, fmt.Errorf("%w: %s", ErrRateUnavailable, currency)
	}
	rate, err := r.rates.GetRate(ctx, currency, domain.BaseCurrency)
	if err != nil {
		if errors.Is(err, exchange.ErrRateUnavailable) {
			return domain.PricedUnit{}, fmt.Errorf("%w: %s", ErrRateUnavailable, currency)
		}
		return domain.PricedUnit{}, err
	}

	return domain.PricedUnit{
		UnitPriceBase:    original.Mul(rate),
		OriginalCurrency: currency,
		OriginalPrice:    original,
		ExchangeRate:     rate,
	}, nil
}
