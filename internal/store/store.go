package store

import (
	"context"
	"errors"
	"time"

	"satistakip/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrConflict           = errors.New("conflict")
)

// ValidateSaleCommit checks the shape of a commit request before any
// reference or stock is read. Every Repository runs it first.
func ValidateSaleCommit(req domain.SaleCommitRequest) error {
	if len(req.Items) == 0 || req.SalesLocationID == "" || req.WarehouseID == "" {
		return ErrInvalidTransaction
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.UnitPrice.IsNegative() || !item.ExchangeRate.IsPositive() {
			return ErrInvalidTransaction
		}
	}
	return nil
}

// LowStockThreshold is the quantity below which a stock row counts as low.
const LowStockThreshold = 10

type Repository interface {
	ListProducts(ctx context.Context, search string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	ListWarehouses(ctx context.Context) ([]domain.Warehouse, error)
	GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error)
	CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error)
	UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id string) error

	ListSalesLocations(ctx context.Context) ([]domain.SalesLocation, error)
	GetSalesLocation(ctx context.Context, id string) (*domain.SalesLocation, error)
	CreateSalesLocation(ctx context.Context, location domain.SalesLocation) (*domain.SalesLocation, error)
	UpdateSalesLocation(ctx context.Context, location domain.SalesLocation) (*domain.SalesLocation, error)
	DeleteSalesLocation(ctx context.Context, id string) error

	GetStockMap(ctx context.Context, warehouseID string, productIDs []string) (map[string]int, error)
	ListStockLevels(ctx context.Context, warehouseID string) ([]domain.StockLevel, error)
	ListLowStock(ctx context.Context, threshold int, limit int) ([]domain.StockLevel, error)
	TotalStock(ctx context.Context) (int, error)
	ListStockMovements(ctx context.Context, limit int) ([]domain.StockMovement, error)
	CommitStockMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, error)

	CommitSale(ctx context.Context, req domain.SaleCommitRequest) (string, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleRecord, error)

	CountCustomers(ctx context.Context) (int, error)
	CountProducts(ctx context.Context) (int, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
