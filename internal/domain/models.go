package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	SKU            string              `json:"sku_or_barcode"`
	Category       string              `json:"category"`
	Brand          string              `json:"brand"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	WholesalePrice decimal.NullDecimal `json:"wholesale_price"`
	PurchasePrice  decimal.NullDecimal `json:"purchase_price"`
	Currency       string              `json:"currency"`
	CreatedAt      time.Time           `json:"created_at"`
}

type ProductRequest struct {
	Name           string              `json:"name"`
	SKU            string              `json:"sku_or_barcode"`
	Category       string              `json:"category"`
	Brand          string              `json:"brand"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	WholesalePrice decimal.NullDecimal `json:"wholesale_price"`
	PurchasePrice  decimal.NullDecimal `json:"purchase_price"`
	Currency       string              `json:"currency"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Warehouse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type WarehouseRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type SalesLocation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type SalesLocationRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
}

type StockLevel struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	SKU           string `json:"sku_or_barcode"`
	WarehouseID   string `json:"warehouse_id"`
	WarehouseName string `json:"warehouse_name"`
	Quantity      int    `json:"quantity"`
}

type StockMovement struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	ProductName     string    `json:"product_name,omitempty"`
	Type            string    `json:"type"`
	FromWarehouseID string    `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   string    `json:"to_warehouse_id,omitempty"`
	Quantity        int       `json:"quantity"`
	Note            string    `json:"note"`
	CreatedAt       time.Time `json:"created_at"`
}

type StockMovementRequest struct {
	ProductID       string `json:"product_id"`
	Type            string `json:"type"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int    `json:"quantity"`
	Note            string `json:"note"`
}

// SaleCommitItem is one priced line handed to the sale commit boundary.
// UnitPrice is always in the base currency.
type SaleCommitItem struct {
	ProductID        string          `json:"product_id"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	OriginalCurrency string          `json:"original_currency"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
}

type SaleCommitRequest struct {
	CustomerID      string           `json:"customer_id,omitempty"`
	SalesLocationID string           `json:"sales_location_id"`
	WarehouseID     string           `json:"warehouse_id"`
	Items           []SaleCommitItem `json:"items"`
}

type SaleItem struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SKU              string          `json:"sku_or_barcode"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	OriginalCurrency string          `json:"original_currency"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
}

type Sale struct {
	ID                string          `json:"id"`
	CustomerID        string          `json:"customer_id,omitempty"`
	CustomerName      string          `json:"customer_name,omitempty"`
	SalesLocationID   string          `json:"sales_location_id"`
	SalesLocationName string          `json:"sales_location_name"`
	WarehouseID       string          `json:"warehouse_id"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	CreatedAt         time.Time       `json:"created_at"`
	Items             []SaleItem      `json:"items,omitempty"`
}

// SaleRecord is the reporting read model: a sale with its lines and each
// line's product cost.
type SaleRecord struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`
	CustomerID   string           `json:"customer_id,omitempty"`
	CustomerName string           `json:"customer_name,omitempty"`
	Items        []SaleRecordItem `json:"items"`
}

type SaleRecordItem struct {
	Quantity      int                 `json:"quantity"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	ProductName   string              `json:"product_name,omitempty"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type DashboardPoint struct {
	Date    string          `json:"date"`
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Dashboard struct {
	CustomerCount int              `json:"customer_count"`
	ProductCount  int              `json:"product_count"`
	StockCount    int              `json:"stock_count"`
	TodaySales    decimal.Decimal  `json:"today_sales"`
	LastSevenDays []DashboardPoint `json:"last_seven_days"`
	LowStock      []StockLevel     `json:"low_stock"`
	RecentSales   []Sale           `json:"recent_sales"`
}

const (
	MovementIn       = "in"
	MovementOut      = "out"
	MovementTransfer = "transfer"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)
