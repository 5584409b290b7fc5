package domain

import "github.com/shopspring/decimal"

type DailyPoint struct {
	Date    string          `json:"date"`
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type ProductRollup struct {
	Name    string          `json:"name"`
	Qty     int             `json:"qty"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type CustomerRollup struct {
	Name  string          `json:"name"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// ReportAggregate holds base-currency metrics for one date range.
type ReportAggregate struct {
	TotalRevenue    decimal.Decimal  `json:"total_revenue"`
	TotalProfit     decimal.Decimal  `json:"total_profit"`
	TotalSalesCount int              `json:"total_sales_count"`
	TotalItemsSold  int              `json:"total_items_sold"`
	MarginPercent   decimal.Decimal  `json:"margin_percent"`
	DailySeries     []DailyPoint     `json:"daily_series"`
	TopProducts     []ProductRollup  `json:"top_products"`
	TopCustomers    []CustomerRollup `json:"top_customers"`
}
