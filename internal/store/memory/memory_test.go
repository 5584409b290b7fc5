package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/store"
)

var _ store.Repository = (*Store)(nil)

func saleLine(productID string, qty int, unit string) domain.SaleCommitItem {
	return domain.SaleCommitItem{
		ProductID:        productID,
		Quantity:         qty,
		UnitPrice:        decimal.RequireFromString(unit),
		OriginalCurrency: "TL",
		OriginalPrice:    decimal.RequireFromString(unit),
		ExchangeRate:     decimal.NewFromInt(1),
	}
}

func TestCommitSaleDecrementsStockAndTotals(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(zaptest.NewLogger(t))

	id, err := s.CommitSale(ctx, domain.SaleCommitRequest{
		CustomerID:      "cus-ayse",
		SalesLocationID: "loc-magaza",
		WarehouseID:     "wh-merkez",
		Items:           []domain.SaleCommitItem{saleLine("prd-cay", 2, "180"), saleLine("prd-kahve", 1, "95")},
	})
	require.NoError(t, err)

	sale, err := s.GetSale(ctx, id)
	require.NoError(t, err)
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("455")))
	assert.Equal(t, "Ayşe Yılmaz", sale.CustomerName)
	assert.Equal(t, "Kadıköy Mağaza", sale.SalesLocationName)
	require.Len(t, sale.Items, 2)

	stock, err := s.GetStockMap(ctx, "wh-merkez", []string{"prd-cay", "prd-kahve"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"prd-cay": 38, "prd-kahve": 24}, stock)
}

func TestCommitSaleInsufficientStockLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(zaptest.NewLogger(t))

	_, err := s.CommitSale(ctx, domain.SaleCommitRequest{
		SalesLocationID: "loc-magaza",
		WarehouseID:     "wh-merkez",
		Items:           []domain.SaleCommitItem{saleLine("prd-cay", 1, "180"), saleLine("prd-defter", 4, "45")},
	})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	stock, err := s.GetStockMap(ctx, "wh-merkez", []string{"prd-cay", "prd-defter"})
	require.NoError(t, err)
	assert.Equal(t, 40, stock["prd-cay"])
	assert.Equal(t, 3, stock["prd-defter"])

	sales, err := s.ListSales(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestCommitSaleRejectsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(zaptest.NewLogger(t))

	_, err := s.CommitSale(ctx, domain.SaleCommitRequest{
		SalesLocationID: "loc-nowhere",
		WarehouseID:     "wh-merkez",
		Items:           []domain.SaleCommitItem{saleLine("prd-cay", 1, "180")},
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.CommitSale(ctx, domain.SaleCommitRequest{SalesLocationID: "loc-magaza", WarehouseID: "wh-merkez"})
	require.ErrorIs(t, err, store.ErrInvalidTransaction)
}

func TestCommitSaleRejectsMalformedLines(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(zaptest.NewLogger(t))

	zeroRate := saleLine("prd-cay", 1, "180")
	zeroRate.ExchangeRate = decimal.Zero
	negativeRate := saleLine("prd-cay", 1, "180")
	negativeRate.ExchangeRate = decimal.NewFromInt(-1)
	noProduct := saleLine("", 1, "180")

	for _, line := range []domain.SaleCommitItem{zeroRate, negativeRate, noProduct, saleLine("prd-cay", 0, "180"), saleLine("prd-cay", 1, "-1")} {
		_, err := s.CommitSale(ctx, domain.SaleCommitRequest{
			SalesLocationID: "loc-magaza",
			WarehouseID:     "wh-merkez",
			Items:           []domain.SaleCommitItem{line},
		})
		require.ErrorIs(t, err, store.ErrInvalidTransaction)
	}

	sales, err := s.ListSales(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestCommitStockMovementKinds(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(zaptest.NewLogger(t))

	_, err := s.CommitStockMovement(ctx, domain.StockMovement{ProductID: "prd-defter", Type: domain.MovementIn, ToWarehouseID: "wh-anadolu", Quantity: 5})
	require.NoError(t, err)

	_, err = s.CommitStockMovement(ctx, domain.StockMovement{ProductID: "prd-defter", Type: domain.MovementTransfer, FromWarehouseID: "wh-merkez", ToWarehouseID: "wh-anadolu", Quantity: 2})
	require.NoError(t, err)

	_, err = s.CommitStockMovement(ctx, domain.StockMovement{ProductID: "prd-defter", Type: domain.MovementOut, FromWarehouseID: "wh-merkez", Quantity: 2})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	_, err = s.CommitStockMovement(ctx, domain.StockMovement{ProductID: "prd-defter", Type: domain.MovementTransfer, FromWarehouseID: "wh-merkez", ToWarehouseID: "wh-merkez", Quantity: 1})
	require.ErrorIs(t, err, store.ErrInvalidTransaction)

	_, err = s.CommitStockMovement(ctx, domain.StockMovement{ProductID: "prd-defter", Type: domain.MovementIn, ToWarehouseID: "wh-merkez", Quantity: 0})
	require.ErrorIs(t, err, store.ErrInvalidTransaction)

	merkez, _ := s.GetStockMap(ctx, "wh-merkez", []string{"prd-defter"})
	anadolu, _ := s.GetStockMap(ctx, "wh-anadolu", []string{"prd-defter"})
	assert.Equal(t, 1, merkez["prd-defter"])
	assert.Equal(t, 7, anadolu["prd-defter"])

	movements, err := s.ListStockMovements(ctx, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, domain.MovementTransfer, movements[0].Type, "newest first")
	assert.Equal(t, "Kareli Defter", movements[0].ProductName)
}

func TestListSalesBetweenIsInclusiveAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(zaptest.NewLogger(t))

	base := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	stamps := []time.Time{base.Add(5 * time.Hour), base, base.Add(24*time.Hour - time.Millisecond), base.Add(24 * time.Hour)}
	for _, at := range stamps {
		at := at
		s.SetClock(func() time.Time { return at })
		_, err := s.CommitSale(ctx, domain.SaleCommitRequest{
			SalesLocationID: "loc-magaza",
			WarehouseID:     "wh-merkez",
			Items:           []domain.SaleCommitItem{saleLine("prd-cay", 1, "180")},
		})
		require.NoError(t, err)
	}

	records, err := s.ListSalesBetween(ctx, base, base.Add(24*time.Hour-time.Millisecond))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, base, records[0].CreatedAt)
	assert.Equal(t, base.Add(5*time.Hour), records[1].CreatedAt)
	assert.Equal(t, "Siyah Çay 1kg", records[0].Items[0].ProductName)
	assert.True(t, records[0].Items[0].PurchasePrice.Decimal.Equal(decimal.RequireFromString("120")))
}

func TestDeleteRules(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(zaptest.NewLogger(t))

	_, err := s.CommitSale(ctx, domain.SaleCommitRequest{
		CustomerID:      "cus-ayse",
		SalesLocationID: "loc-magaza",
		WarehouseID:     "wh-merkez",
		Items:           []domain.SaleCommitItem{saleLine("prd-cay", 1, "180")},
	})
	require.NoError(t, err)

	require.ErrorIs(t, s.DeleteProduct(ctx, "prd-cay"), store.ErrConflict)
	require.ErrorIs(t, s.DeleteWarehouse(ctx, "wh-merkez"), store.ErrConflict)
	require.ErrorIs(t, s.DeleteSalesLocation(ctx, "loc-magaza"), store.ErrConflict)
	require.ErrorIs(t, s.DeleteProduct(ctx, "missing"), store.ErrNotFound)

	require.NoError(t, s.DeleteCustomer(ctx, "cus-ayse"))
	sales, err := s.ListSales(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sales[0].CustomerID)

	require.NoError(t, s.DeleteProduct(ctx, "prd-defter"))
	levels, err := s.ListStockLevels(ctx, "wh-merkez")
	require.NoError(t, err)
	for _, level := range levels {
		assert.NotEqual(t, "prd-defter", level.ProductID)
	}
}

func TestDuplicateSKUConflicts(t *testing.T) {
	s := NewSeeded(zaptest.NewLogger(t))
	_, err := s.CreateProduct(context.Background(), domain.Product{Name: "Kopya", SKU: "8690000000011", UnitPrice: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestLowStock(t *testing.T) {
	s := NewSeeded(zaptest.NewLogger(t))
	low, err := s.ListLowStock(context.Background(), store.LowStockThreshold, 5)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "prd-defter", low[0].ProductID)
	assert.Equal(t, "prd-matkap", low[1].ProductID)
}
