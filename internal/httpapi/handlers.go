package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"satistakip/backend/internal/checkout"
	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/report"
	"satistakip/backend/internal/service"
	"satistakip/backend/internal/store"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.ListCustomers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := a.service.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	customer, err := a.service.CreateCustomer(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (a *API) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	customer, err := a.service.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (a *API) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := a.service.ListWarehouses(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"warehouses": warehouses})
}

func (a *API) handleGetWarehouse(w http.ResponseWriter, r *http.Request) {
	warehouse, err := a.service.GetWarehouse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, warehouse)
}

func (a *API) handleCreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req domain.WarehouseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	warehouse, err := a.service.CreateWarehouse(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, warehouse)
}

func (a *API) handleUpdateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req domain.WarehouseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	warehouse, err := a.service.UpdateWarehouse(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, warehouse)
}

func (a *API) handleDeleteWarehouse(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteWarehouse(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListSalesLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := a.service.ListSalesLocations(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales_locations": locations})
}

func (a *API) handleGetSalesLocation(w http.ResponseWriter, r *http.Request) {
	location, err := a.service.GetSalesLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (a *API) handleCreateSalesLocation(w http.ResponseWriter, r *http.Request) {
	var req domain.SalesLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	location, err := a.service.CreateSalesLocation(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, location)
}

func (a *API) handleUpdateSalesLocation(w http.ResponseWriter, r *http.Request) {
	var req domain.SalesLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	location, err := a.service.UpdateSalesLocation(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (a *API) handleDeleteSalesLocation(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteSalesLocation(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleStockLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := a.service.ListStockLevels(r.Context(), r.URL.Query().Get("warehouse_id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock_levels": levels})
}

func (a *API) handleListStockMovements(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
	movements, err := a.service.ListStockMovements(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock_movements": movements})
}

func (a *API) handleRecordStockMovement(w http.ResponseWriter, r *http.Request) {
	var req domain.StockMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	movement, err := a.service.RecordStockMovement(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, movement)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
	sales, err := a.service.ListSales(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sale_drafts": a.service.ListDrafts(r.Context())})
}

func (a *API) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleDraftCreateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	draft, err := a.service.CreateDraft(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (a *API) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := a.service.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (a *API) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DiscardDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDraftSelection(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleDraftSelectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	draft, err := a.service.UpdateDraftSelection(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (a *API) handleDraftTier(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleDraftTierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	draft, err := a.service.SetDraftTier(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (a *API) handleAddDraftItem(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleDraftItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	draft, err := a.service.AddDraftItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (a *API) handleSetDraftItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleDraftQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	draft, err := a.service.SetDraftItemQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (a *API) handleRemoveDraftItem(w http.ResponseWriter, r *http.Request) {
	draft, err := a.service.RemoveDraftItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// handleCheckoutDraft always answers with the attempt's result body when the
// draft exists, so clients can show shortages and the state trail.
func (a *API) handleCheckoutDraft(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.CheckoutDraft(r.Context(), chi.URLParam(r, "id"))
	if err == nil {
		writeJSON(w, http.StatusCreated, result)
		return
	}
	if result.State == "" {
		a.writeServiceError(w, err)
		return
	}

	status := statusFor(err)
	if errors.Is(err, checkout.ErrCommitFailure) && !errors.Is(err, store.ErrInsufficientStock) {
		a.logger.Error("checkout commit failed", zap.String("draft_id", result.Draft.ID), zap.Error(err))
		result.Error = checkout.ErrCommitFailure.Error()
	} else if status >= 500 {
		a.logger.Error("checkout failed", zap.String("draft_id", result.Draft.ID), zap.Error(err))
		result.Error = "internal server error"
	}
	writeJSON(w, status, result)
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := service.ReportQuery{
		Range: query.Get("range"),
		Start: query.Get("start"),
		End:   query.Get("end"),
	}

	format := strings.ToLower(strings.TrimSpace(query.Get("format")))
	switch format {
	case "", "json":
		a.writeReportJSON(w, r, q)
	case string(service.ExportCSV), string(service.ExportXLSX):
		a.writeReportExport(w, r, q, service.ExportFormat(format))
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown report format %q", format))
	}
}

// writeReportJSON serves the previous aggregate for the same window, marked
// stale, when the sales query fails.
func (a *API) writeReportJSON(w http.ResponseWriter, r *http.Request, q service.ReportQuery) {
	result, err := a.service.SalesReport(r.Context(), q)
	if err != nil {
		if errors.Is(err, report.ErrQueryFailure) && result.Stale {
			a.logger.Warn("serving stale sales report", zap.String("range", string(result.Range.Kind)), zap.Error(err))
			writeJSON(w, http.StatusOK, map[string]any{
				"report": result,
				"error":  report.ErrQueryFailure.Error(),
			})
			return
		}
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": result})
}

func (a *API) writeReportExport(w http.ResponseWriter, r *http.Request, q service.ReportQuery, format service.ExportFormat) {
	var buf bytes.Buffer
	if err := a.service.ExportSalesReport(r.Context(), q, format, &buf); err != nil {
		a.writeServiceError(w, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == service.ExportXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	rangeName := strings.ToLower(strings.TrimSpace(q.Range))
	if rangeName == "" {
		rangeName = string(report.RangeMonth)
	}
	filename := fmt.Sprintf("satis-raporu-%s.%s", rangeName, format)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := a.service.Dashboard(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
