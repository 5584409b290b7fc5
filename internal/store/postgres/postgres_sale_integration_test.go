package postgres

import (
	"context"
	"fmt"
	"os"
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

func openTestStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("SATISTAKIP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SATISTAKIP_TEST_DATABASE_URL to run postgres integration test")
	}

	logger := zaptest.NewLogger(t)
	require.NoError(t, Migrate(databaseURL, logger))

	s, err := New(context.Background(), databaseURL, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type fixture struct {
	productID   string
	warehouseID string
	locationID  string
	customerID  string
}

func seedFixture(t *testing.T, s *Store, stock int) fixture {
	t.Helper()
	ctx := context.Background()
	stamp := time.Now().UnixNano()
	f := fixture{
		productID:   fmt.Sprintf("prd-it-%d", stamp),
		warehouseID: fmt.Sprintf("wh-it-%d", stamp),
		locationID:  fmt.Sprintf("loc-it-%d", stamp),
		customerID:  fmt.Sprintf("cus-it-%d", stamp),
	}

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE warehouse_id = $1`, f.warehouseID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, f.productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM warehouses WHERE id = $1`, f.warehouseID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales_locations WHERE id = $1`, f.locationID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, f.customerID)
	})

	_, err := s.CreateProduct(ctx, domain.Product{
		ID:            f.productID,
		Name:          "Entegrasyon Ürünü",
		SKU:           fmt.Sprintf("IT-%d", stamp),
		UnitPrice:     decimal.RequireFromString("12.5"),
		PurchasePrice: decimal.NewNullDecimal(decimal.RequireFromString("7.25")),
		Currency:      "TL",
	})
	require.NoError(t, err)
	_, err = s.CreateWarehouse(ctx, domain.Warehouse{ID: f.warehouseID, Name: "IT Depo"})
	require.NoError(t, err)
	_, err = s.CreateSalesLocation(ctx, domain.SalesLocation{ID: f.locationID, Name: "IT Mağaza", Type: "store"})
	require.NoError(t, err)
	_, err = s.CreateCustomer(ctx, domain.Customer{ID: f.customerID, Name: "IT Müşteri", Type: "individual"})
	require.NoError(t, err)

	_, err = s.CommitStockMovement(ctx, domain.StockMovement{
		ProductID:     f.productID,
		Type:          domain.MovementIn,
		ToWarehouseID: f.warehouseID,
		Quantity:      stock,
	})
	require.NoError(t, err)
	return f
}

func TestCommitSaleDecrementsStock(t *testing.T) {
	s := openTestStore(t)
	f := seedFixture(t, s, 10)
	ctx := context.Background()

	from := time.Now().Add(-time.Minute)
	saleID, err := s.CommitSale(ctx, domain.SaleCommitRequest{
		CustomerID:      f.customerID,
		SalesLocationID: f.locationID,
		WarehouseID:     f.warehouseID,
		Items: []domain.SaleCommitItem{{
			ProductID:        f.productID,
			Quantity:         4,
			UnitPrice:        decimal.RequireFromString("12.5"),
			OriginalCurrency: "TL",
			OriginalPrice:    decimal.RequireFromString("12.5"),
			ExchangeRate:     decimal.NewFromInt(1),
		}},
	})
	require.NoError(t, err)

	stock, err := s.GetStockMap(ctx, f.warehouseID, []string{f.productID})
	require.NoError(t, err)
	assert.Equal(t, 6, stock[f.productID])

	sale, err := s.GetSale(ctx, saleID)
	require.NoError(t, err)
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, "IT Müşteri", sale.CustomerName)
	require.Len(t, sale.Items, 1)

	records, err := s.ListSalesBetween(ctx, from, time.Now().Add(time.Minute))
	require.NoError(t, err)
	var found *domain.SaleRecord
	for i := range records {
		if records[i].ID == saleID {
			found = &records[i]
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Items, 1)
	assert.True(t, found.Items[0].PurchasePrice.Decimal.Equal(decimal.RequireFromString("7.25")))
}

func TestCommitSaleInsufficientStockRollsBack(t *testing.T) {
	s := openTestStore(t)
	f := seedFixture(t, s, 2)
	ctx := context.Background()

	_, err := s.CommitSale(ctx, domain.SaleCommitRequest{
		SalesLocationID: f.locationID,
		WarehouseID:     f.warehouseID,
		Items: []domain.SaleCommitItem{{
			ProductID:        f.productID,
			Quantity:         3,
			UnitPrice:        decimal.RequireFromString("12.5"),
			OriginalCurrency: "TL",
			OriginalPrice:    decimal.RequireFromString("12.5"),
			ExchangeRate:     decimal.NewFromInt(1),
		}},
	})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	stock, err := s.GetStockMap(ctx, f.warehouseID, []string{f.productID})
	require.NoError(t, err)
	assert.Equal(t, 2, stock[f.productID])

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT count(*) FROM sales WHERE warehouse_id = $1`, f.warehouseID).Scan(&count))
	assert.Zero(t, count)
}
