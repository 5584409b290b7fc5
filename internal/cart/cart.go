package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"satistakip/backend/internal/domain"
)

// ErrStale is returned by AddItem when the cart was cleared while the new
// line was being priced. The priced line is dropped.
var ErrStale = errors.New("cart changed while item was being priced")

type Pricer interface {
	Resolve(ctx context.Context, product domain.Product, tier domain.PriceTier) (domain.PricedUnit, error)
}

// Cart is an ordered set of lines keyed by product ID under one active price
// tier. The mutex is never held across a Pricer call.
type Cart struct {
	mu         sync.Mutex
	pricer     Pricer
	tier       domain.PriceTier
	lines      []domain.CartLine
	generation uint64
}

func New(pricer Pricer, tier domain.PriceTier) *Cart {
	return &Cart{pricer: pricer, tier: normalizeTier(tier)}
}

// normalizeTier maps anything but wholesale to retail, the tier unknown values
// are priced at.
func normalizeTier(tier domain.PriceTier) domain.PriceTier {
	if tier != domain.TierWholesale {
		return domain.TierRetail
	}
	return tier
}

// AddItem increments the quantity of an existing line without repricing it,
// or prices the product at the active tier and appends a line of quantity 1.
// On a pricing failure the cart is unchanged.
func (c *Cart) AddItem(ctx context.Context, product domain.Product) error {
	c.mu.Lock()
	if c.incrementLocked(product.ID) {
		c.mu.Unlock()
		return nil
	}
	generation := c.generation
	tier := c.tier
	c.mu.Unlock()

	priced, err := c.pricer.Resolve(ctx, product, tier)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != generation {
		return ErrStale
	}
	if c.incrementLocked(product.ID) {
		return nil
	}
	line := domain.CartLine{Product: product, PricedUnit: priced, Quantity: 1}
	if c.tier != tier && domain.IsBaseCurrency(line.OriginalCurrency) {
		line.PricedUnit = basePriced(product, c.tier, line.OriginalCurrency)
	}
	c.lines = append(c.lines, line)
	return nil
}

func (c *Cart) incrementLocked(productID string) bool {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines[i].Quantity++
			return true
		}
	}
	return false
}

func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// SetQuantity reports whether the quantity was applied. Quantities below 1
// are ignored; removal goes through RemoveItem only.
func (c *Cart) SetQuantity(productID string, qty int) bool {
	if qty < 1 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines[i].Quantity = qty
			return true
		}
	}
	return false
}

// SetTier switches the active tier and reprices base-currency lines from
// their product snapshot. Foreign-currency lines keep the price and rate they
// were added with, so a tier toggle never triggers a rate lookup.
func (c *Cart) SetTier(tier domain.PriceTier) {
	tier = normalizeTier(tier)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tier = tier
	for i := range c.lines {
		line := &c.lines[i]
		if !domain.IsBaseCurrency(line.OriginalCurrency) {
			continue
		}
		line.PricedUnit = basePriced(line.Product, tier, line.OriginalCurrency)
	}
}

func basePriced(product domain.Product, tier domain.PriceTier, currency string) domain.PricedUnit {
	price := product.TierPrice(tier)
	return domain.PricedUnit{
		UnitPriceBase:    price,
		OriginalCurrency: currency,
		OriginalPrice:    price,
		ExchangeRate:     decimal.NewFromInt(1),
	}
}

func (c *Cart) Tier() domain.PriceTier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tier
}

// Total is the sum of quantity * unit price in the base currency.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// TotalsByOriginalCurrency sums lines in the currency they were priced in.
// Base-currency lines are left out.
func (c *Cart) TotalsByOriginalCurrency() map[string]decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	totals := make(map[string]decimal.Decimal)
	for _, line := range c.lines {
		if domain.IsBaseCurrency(line.OriginalCurrency) {
			continue
		}
		amount := line.OriginalPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		totals[line.OriginalCurrency] = totals[line.OriginalCurrency].Add(amount)
	}
	return totals
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, line := range c.lines {
		count += line.Quantity
	}
	return count
}

// Clear empties the cart. Any AddItem still pricing against the previous
// contents will return ErrStale.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.generation++
}
