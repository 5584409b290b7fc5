package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the local currency every persisted total is expressed in.
// LegacyBaseCurrency is the alias older product rows still carry.
const (
	BaseCurrency       = "TRY"
	LegacyBaseCurrency = "TL"
)

var CurrencySymbols = map[string]string{
	"TL":  "₺",
	"TRY": "₺",
	"USD": "$",
	"EUR": "€",
}

// IsBaseCurrency reports whether code names the base currency. An empty code
// counts as base.
func IsBaseCurrency(code string) bool {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "", BaseCurrency, LegacyBaseCurrency:
		return true
	}
	return false
}

// NormalizeCurrency upper-cases code and maps an empty value to the legacy
// base alias, which is what products are stored with by default.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return LegacyBaseCurrency
	}
	return code
}

type PriceTier string

const (
	TierRetail    PriceTier = "retail"
	TierWholesale PriceTier = "wholesale"
)

func ParsePriceTier(raw string) (PriceTier, bool) {
	switch PriceTier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierRetail:
		return TierRetail, true
	case TierWholesale:
		return TierWholesale, true
	}
	return "", false
}

// TierPrice returns the product's price under tier in its own currency.
// A missing or zero wholesale price falls back to retail.
func (p Product) TierPrice(tier PriceTier) decimal.Decimal {
	if tier == TierWholesale && p.WholesalePrice.Valid && !p.WholesalePrice.Decimal.IsZero() {
		return p.WholesalePrice.Decimal
	}
	return p.UnitPrice
}

// PricedUnit is the outcome of resolving one product at one tier.
type PricedUnit struct {
	UnitPriceBase    decimal.Decimal `json:"unit_price"`
	OriginalCurrency string          `json:"original_currency"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
}

type CartLine struct {
	Product Product `json:"product"`
	PricedUnit
	Quantity int `json:"quantity"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPriceBase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type PreflightResult struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
	Sufficient  bool   `json:"sufficient"`
}

// RateEntry is a cached conversion rate for one currency pair.
type RateEntry struct {
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetched_at"`
}
