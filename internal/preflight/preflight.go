package preflight

import (
	"context"
	"fmt"

	"satistakip/backend/internal/domain"
)

// StockReader returns on-hand quantities for productIDs in one warehouse.
// Products without a stock row may be omitted from the map.
type StockReader interface {
	GetStockMap(ctx context.Context, warehouseID string, productIDs []string) (map[string]int, error)
}

// Checker compares requested quantities with a fresh stock read. It never
// reserves anything; the commit boundary stays authoritative.
type Checker struct {
	stock StockReader
}

func NewChecker(stock StockReader) *Checker {
	return &Checker{stock: stock}
}

// Check returns one result per line, in line order, reporting every shortage
// rather than stopping at the first.
func (c *Checker) Check(ctx context.Context, lines []domain.CartLine, warehouseID string) ([]domain.PreflightResult, error) {
	if len(lines) == 0 {
		return []domain.PreflightResult{}, nil
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.Product.ID)
	}

	onHand, err := c.stock.GetStockMap(ctx, warehouseID, ids)
	if err != nil {
		return nil, fmt.Errorf("read stock for warehouse %s: %w", warehouseID, err)
	}

	results := make([]domain.PreflightResult, 0, len(lines))
	for _, line := range lines {
		available := onHand[line.Product.ID]
		results = append(results, domain.PreflightResult{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			Available:   available,
			Requested:   line.Quantity,
			Sufficient:  line.Quantity <= available,
		})
	}
	return results, nil
}

func Shortages(results []domain.PreflightResult) []domain.PreflightResult {
	out := make([]domain.PreflightResult, 0)
	for _, r := range results {
		if !r.Sufficient {
			out = append(out, r)
		}
	}
	return out
}
