package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/exchange"
	"satistakip/backend/internal/service"
	"satistakip/backend/internal/store/memory"
)

type usdOnlyRates struct{}

func (usdOnlyRates) GetRate(_ context.Context, from string, _ string) (decimal.Decimal, error) {
	if from == "USD" {
		return decimal.NewFromInt(40), nil
	}
	return decimal.Zero, exchange.ErrRateUnavailable
}

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	logger := zaptest.NewLogger(t)
	repo := memory.NewSeeded(logger)
	svc := service.New(repo, usdOnlyRates{}, service.Options{Location: time.UTC, Logger: logger})
	auth := NewAuthManager(context.Background(), testSecret, time.Hour, repo, logger)

	return New(svc, auth, "*", logger)
}

func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func login(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var payload domain.LoginResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.NotEmpty(t, payload.AccessToken)
	return payload.AccessToken
}

func call(t *testing.T, handler http.Handler, token string, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out), res.Body.String())
	return out
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	res := call(t, handler, "", http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := decodeBody[map[string]any](t, res)
	assert.Equal(t, true, body["ok"])
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	handler := newTestAPI(t).Handler()

	res := call(t, handler, "", http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Username: "admin", Password: "wrongpassword"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestProductsRequireAuth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	res := call(t, handler, "", http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = call(t, handler, "not-a-token", http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestProductSearchAndAdminOnlyCreate(t *testing.T) {
	handler := newTestAPI(t).Handler()
	staff := login(t, handler, "staff", "staff123")
	admin := login(t, handler, "admin", "admin123")

	res := call(t, handler, staff, http.MethodGet, "/api/v1/products?search=kahve", nil)
	require.Equal(t, http.StatusOK, res.Code)
	listed := decodeBody[map[string][]domain.Product](t, res)
	require.Len(t, listed["products"], 1)
	assert.Equal(t, "prd-kahve", listed["products"][0].ID)

	req := map[string]any{"name": "Zeytinyağı 1L", "unit_price": "320.50", "currency": "try"}
	res = call(t, handler, staff, http.MethodPost, "/api/v1/products", req)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = call(t, handler, admin, http.MethodPost, "/api/v1/products", req)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	created := decodeBody[domain.Product](t, res)
	assert.Equal(t, "TRY", created.Currency)
	assert.True(t, created.UnitPrice.Equal(decimal.RequireFromString("320.5")))

	res = call(t, handler, admin, http.MethodPost, "/api/v1/products", map[string]any{"name": " ", "unit_price": 1})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = call(t, handler, staff, http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = call(t, handler, staff, http.MethodGet, "/api/v1/products/prd-none", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestDeleteProductWithSalesConflicts(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")

	draft := openDraft(t, handler, admin)
	res := call(t, handler, admin, http.MethodPost, "/api/v1/sale-drafts/"+draft.ID+"/items", domain.SaleDraftItemRequest{ProductID: "prd-cay"})
	require.Equal(t, http.StatusOK, res.Code)
	res = call(t, handler, admin, http.MethodPost, "/api/v1/sale-drafts/"+draft.ID+"/checkout", nil)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	res = call(t, handler, admin, http.MethodDelete, "/api/v1/products/prd-cay", nil)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = call(t, handler, admin, http.MethodDelete, "/api/v1/products/prd-defter", nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
}

func openDraft(t *testing.T, handler http.Handler, token string) domain.SaleDraft {
	t.Helper()
	res := call(t, handler, token, http.MethodPost, "/api/v1/sale-drafts", nil)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	draft := decodeBody[domain.SaleDraft](t, res)

	res = call(t, handler, token, http.MethodPatch, "/api/v1/sale-drafts/"+draft.ID+"/selection", map[string]string{
		"sales_location_id": "loc-magaza",
		"warehouse_id":      "wh-merkez",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	return decodeBody[domain.SaleDraft](t, res)
}

func TestSaleDraftFlow(t *testing.T) {
	handler := newTestAPI(t).Handler()
	staff := login(t, handler, "staff", "staff123")
	draft := openDraft(t, handler, staff)
	base := "/api/v1/sale-drafts/" + draft.ID

	res := call(t, handler, staff, http.MethodPost, base+"/items", domain.SaleDraftItemRequest{ProductID: "prd-kulaklik"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = call(t, handler, staff, http.MethodPost, base+"/items", domain.SaleDraftItemRequest{ProductID: "prd-matkap"})
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Contains(t, res.Body.String(), "exchange rate unavailable")

	res = call(t, handler, staff, http.MethodPut, base+"/items/prd-kulaklik", domain.SaleDraftQuantityRequest{Quantity: 2})
	require.Equal(t, http.StatusOK, res.Code)
	current := decodeBody[domain.SaleDraft](t, res)
	require.Len(t, current.Lines, 1)
	assert.True(t, current.Total.Equal(decimal.RequireFromString("3992")), current.Total.String())

	res = call(t, handler, staff, http.MethodPut, base+"/items/prd-kulaklik", domain.SaleDraftQuantityRequest{Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = call(t, handler, staff, http.MethodPost, base+"/checkout", nil)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	result := decodeBody[domain.CheckoutResult](t, res)
	assert.Equal(t, "committed", result.State)
	require.NotEmpty(t, result.SaleID)

	res = call(t, handler, staff, http.MethodGet, "/api/v1/sales/"+result.SaleID, nil)
	require.Equal(t, http.StatusOK, res.Code)
	sale := decodeBody[domain.Sale](t, res)
	assert.Equal(t, "Kadıköy Mağaza", sale.SalesLocationName)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 2, sale.Items[0].Quantity)

	res = call(t, handler, staff, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
	res = call(t, handler, staff, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestCheckoutBlockedReturnsShortages(t *testing.T) {
	handler := newTestAPI(t).Handler()
	staff := login(t, handler, "staff", "staff123")
	draft := openDraft(t, handler, staff)
	base := "/api/v1/sale-drafts/" + draft.ID

	res := call(t, handler, staff, http.MethodPost, base+"/items", domain.SaleDraftItemRequest{ProductID: "prd-defter"})
	require.Equal(t, http.StatusOK, res.Code)
	res = call(t, handler, staff, http.MethodPut, base+"/items/prd-defter", domain.SaleDraftQuantityRequest{Quantity: 4})
	require.Equal(t, http.StatusOK, res.Code)

	res = call(t, handler, staff, http.MethodPost, base+"/checkout", nil)
	require.Equal(t, http.StatusConflict, res.Code, res.Body.String())
	result := decodeBody[domain.CheckoutResult](t, res)
	assert.Equal(t, "blocked", result.State)
	require.Len(t, result.Shortages, 1)
	assert.Equal(t, "prd-defter", result.Shortages[0].ProductID)
	assert.Contains(t, result.Error, "Kareli Defter")
}

func TestCheckoutValidationFailure(t *testing.T) {
	handler := newTestAPI(t).Handler()
	staff := login(t, handler, "staff", "staff123")

	res := call(t, handler, staff, http.MethodPost, "/api/v1/sale-drafts", domain.SaleDraftCreateRequest{Tier: "wholesale"})
	require.Equal(t, http.StatusCreated, res.Code)
	draft := decodeBody[domain.SaleDraft](t, res)
	assert.Equal(t, domain.TierWholesale, draft.Tier)

	res = call(t, handler, staff, http.MethodPost, "/api/v1/sale-drafts/"+draft.ID+"/checkout", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
	result := decodeBody[domain.CheckoutResult](t, res)
	assert.Equal(t, []string{"idle", "failed"}, result.Trail)
}

func TestStockMovementEndpoints(t *testing.T) {
	handler := newTestAPI(t).Handler()
	staff := login(t, handler, "staff", "staff123")

	res := call(t, handler, staff, http.MethodPost, "/api/v1/stock-movements", domain.StockMovementRequest{
		ProductID: "prd-matkap", Type: "out", FromWarehouseID: "wh-merkez", Quantity: 7,
	})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = call(t, handler, staff, http.MethodPost, "/api/v1/stock-movements", domain.StockMovementRequest{
		ProductID: "prd-matkap", Type: "in", ToWarehouseID: "wh-anadolu", Quantity: 3,
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	res = call(t, handler, staff, http.MethodGet, "/api/v1/stock-levels?warehouse_id=wh-anadolu", nil)
	require.Equal(t, http.StatusOK, res.Code)
	levels := decodeBody[map[string][]domain.StockLevel](t, res)
	assert.Len(t, levels["stock_levels"], 2)

	res = call(t, handler, staff, http.MethodGet, "/api/v1/stock-movements?limit=5", nil)
	require.Equal(t, http.StatusOK, res.Code)
	movements := decodeBody[map[string][]domain.StockMovement](t, res)
	require.Len(t, movements["stock_movements"], 1)
	assert.Equal(t, "Akülü Matkap", movements["stock_movements"][0].ProductName)
}

func TestSalesReportFormats(t *testing.T) {
	handler := newTestAPI(t).Handler()
	staff := login(t, handler, "staff", "staff123")

	res := call(t, handler, staff, http.MethodGet, "/api/v1/reports/sales?range=week", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"total_sales_count":0`)

	res = call(t, handler, staff, http.MethodGet, "/api/v1/reports/sales?range=week&format=csv", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "text/csv; charset=utf-8", res.Header().Get("Content-Type"))
	assert.Contains(t, res.Header().Get("Content-Disposition"), "satis-raporu-week.csv")
	assert.True(t, strings.HasPrefix(res.Body.String(), "section,name,metric,value"))

	res = call(t, handler, staff, http.MethodGet, "/api/v1/reports/sales?range=year&format=xlsx", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, strings.HasPrefix(res.Body.String(), "PK"))

	res = call(t, handler, staff, http.MethodGet, "/api/v1/reports/sales?range=custom&start=2026-10-01", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = call(t, handler, staff, http.MethodGet, "/api/v1/reports/sales?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDashboardEndpoint(t *testing.T) {
	handler := newTestAPI(t).Handler()
	staff := login(t, handler, "staff", "staff123")

	res := call(t, handler, staff, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, res.Code)
	dash := decodeBody[domain.Dashboard](t, res)
	assert.Equal(t, 5, dash.ProductCount)
	assert.Len(t, dash.LastSevenDays, 7)
	assert.Len(t, dash.LowStock, 2)
}
