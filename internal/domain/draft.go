package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleDraft is the read view of an in-progress sale held by the server.
type SaleDraft struct {
	ID               string                     `json:"id"`
	Tier             PriceTier                  `json:"tier"`
	CustomerID       string                     `json:"customer_id,omitempty"`
	SalesLocationID  string                     `json:"sales_location_id,omitempty"`
	WarehouseID      string                     `json:"warehouse_id,omitempty"`
	Lines            []SaleDraftLine            `json:"lines"`
	ItemCount        int                        `json:"item_count"`
	Total            decimal.Decimal            `json:"total"`
	TotalsByCurrency map[string]decimal.Decimal `json:"totals_by_currency"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
	// Busy marks a draft listed while another action runs on it; its other
	// fields are the state after the previous action.
	Busy bool `json:"busy,omitempty"`
}

type SaleDraftLine struct {
	CartLine
	LineTotal decimal.Decimal `json:"line_total"`
}

type SaleDraftCreateRequest struct {
	Tier string `json:"tier"`
}

// SaleDraftSelectionRequest updates only the fields that are present. An
// empty customer ID turns the draft into a guest sale.
type SaleDraftSelectionRequest struct {
	CustomerID      *string `json:"customer_id"`
	SalesLocationID *string `json:"sales_location_id"`
	WarehouseID     *string `json:"warehouse_id"`
}

type SaleDraftTierRequest struct {
	Tier string `json:"tier"`
}

type SaleDraftItemRequest struct {
	ProductID string `json:"product_id"`
}

type SaleDraftQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CheckoutResult reports one checkout attempt on a draft.
type CheckoutResult struct {
	State     string            `json:"state"`
	Trail     []string          `json:"trail"`
	SaleID    string            `json:"sale_id,omitempty"`
	Shortages []PreflightResult `json:"shortages,omitempty"`
	Error     string            `json:"error,omitempty"`
	Draft     SaleDraft         `json:"draft"`
}
