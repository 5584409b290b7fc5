package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/store"
	"satistakip/backend/internal/xid"
)

type stockKey struct {
	productID   string
	warehouseID string
}

type Store struct {
	mu              sync.RWMutex
	now             func() time.Time
	products        map[string]domain.Product
	customers       map[string]domain.Customer
	warehouses      map[string]domain.Warehouse
	locations       map[string]domain.SalesLocation
	stock           map[stockKey]int
	movements       []domain.StockMovement
	sales           []domain.Sale
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		now:             func() time.Time { return time.Now().UTC() },
		products:        map[string]domain.Product{},
		customers:       map[string]domain.Customer{},
		warehouses:      map[string]domain.Warehouse{},
		locations:       map[string]domain.SalesLocation{},
		stock:           map[stockKey]int{},
		usersByUsername: map[string]domain.UserAccount{},
	}
}

// SetClock replaces the time source used for created_at stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// seedUsers builds the dev/demo accounts. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD, with dev defaults when unset.
func seedUsers(logger *zap.Logger) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		logger.Warn("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal("hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func price(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func optional(v string) decimal.NullDecimal { return decimal.NewNullDecimal(price(v)) }

// NewSeeded returns a store with demo catalog data, stock and users.
func NewSeeded(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := New()
	now := s.now()

	warehouses := []domain.Warehouse{
		{ID: "wh-merkez", Name: "Merkez Depo", Location: "İstanbul", Description: "Ana depo"},
		{ID: "wh-anadolu", Name: "Anadolu Depo", Location: "Ankara"},
	}
	for _, w := range warehouses {
		w.CreatedAt = now
		s.warehouses[w.ID] = w
	}

	locations := []domain.SalesLocation{
		{ID: "loc-magaza", Name: "Kadıköy Mağaza", Type: "store", Address: "Kadıköy, İstanbul"},
		{ID: "loc-online", Name: "Online Satış", Type: "online"},
	}
	for _, l := range locations {
		l.CreatedAt = now
		s.locations[l.ID] = l
	}

	customers := []domain.Customer{
		{ID: "cus-ayse", Name: "Ayşe Yılmaz", Type: "individual", Phone: "+90 532 000 0001"},
		{ID: "cus-demir", Name: "Demir Yapı Ltd.", Type: "corporate", Email: "satinalma@demiryapi.example"},
	}
	for _, c := range customers {
		c.CreatedAt = now
		s.customers[c.ID] = c
	}

	products := []domain.Product{
		{ID: "prd-cay", Name: "Siyah Çay 1kg", SKU: "8690000000011", Category: "gıda", Brand: "Rize", UnitPrice: price("180"), WholesalePrice: optional("150"), PurchasePrice: optional("120"), Currency: "TL"},
		{ID: "prd-kahve", Name: "Türk Kahvesi 250g", SKU: "8690000000028", Category: "gıda", UnitPrice: price("95"), WholesalePrice: optional("0"), PurchasePrice: optional("60"), Currency: "TL"},
		{ID: "prd-matkap", Name: "Akülü Matkap", SKU: "4000000000013", Category: "hırdavat", Brand: "Bosch", UnitPrice: price("120"), WholesalePrice: optional("105"), PurchasePrice: optional("80"), Currency: "EUR"},
		{ID: "prd-kulaklik", Name: "Kablosuz Kulaklık", SKU: "0190000000017", Category: "elektronik", UnitPrice: price("49.90"), PurchasePrice: optional("30"), Currency: "USD"},
		{ID: "prd-defter", Name: "Kareli Defter", SKU: "8690000000035", Category: "kırtasiye", UnitPrice: price("45"), Currency: "TRY"},
	}
	for _, p := range products {
		p.CreatedAt = now
		s.products[p.ID] = p
	}

	for key, qty := range map[stockKey]int{
		{"prd-cay", "wh-merkez"}:      40,
		{"prd-kahve", "wh-merkez"}:    25,
		{"prd-matkap", "wh-merkez"}:   6,
		{"prd-kulaklik", "wh-merkez"}: 12,
		{"prd-defter", "wh-merkez"}:   3,
		{"prd-cay", "wh-anadolu"}:     15,
	} {
		s.stock[key] = qty
	}

	s.usersByUsername = seedUsers(logger)
	return s
}

func (s *Store) ListProducts(_ context.Context, search string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.SKU), needle) {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSKULocked(product.ID, product.SKU); err != nil {
		return nil, err
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = s.now()
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := s.checkSKULocked(product.ID, product.SKU); err != nil {
		return nil, err
	}
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) checkSKULocked(id string, sku string) error {
	if sku == "" {
		return nil
	}
	for _, p := range s.products {
		if p.ID != id && strings.EqualFold(p.SKU, sku) {
			return fmt.Errorf("%w: sku %s already exists", store.ErrConflict, sku)
		}
	}
	return nil
}

// DeleteProduct drops the product with its stock rows and movements. A
// product that appears on a sale cannot be deleted.
func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		for _, item := range sale.Items {
			if item.ProductID == id {
				return fmt.Errorf("%w: product %s has sales", store.ErrConflict, id)
			}
		}
	}
	delete(s.products, id)
	for key := range s.stock {
		if key.productID == id {
			delete(s.stock, key)
		}
	}
	s.movements = slices.DeleteFunc(s.movements, func(m domain.StockMovement) bool {
		return m.ProductID == id
	})
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = s.now()
	}
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer.CreatedAt = existing.CreatedAt
	s.customers[customer.ID] = customer
	return &customer, nil
}

// DeleteCustomer turns the customer's past sales into guest sales.
func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.customers, id)
	for i := range s.sales {
		if s.sales[i].CustomerID == id {
			s.sales[i].CustomerID = ""
		}
	}
	return nil
}

func (s *Store) ListWarehouses(_ context.Context) ([]domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	warehouses := make([]domain.Warehouse, 0, len(s.warehouses))
	for _, w := range s.warehouses {
		warehouses = append(warehouses, w)
	}
	slices.SortFunc(warehouses, func(a, b domain.Warehouse) int {
		return strings.Compare(a.Name, b.Name)
	})
	return warehouses, nil
}

func (s *Store) GetWarehouse(_ context.Context, id string) (*domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.warehouses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (s *Store) CreateWarehouse(_ context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if warehouse.ID == "" {
		warehouse.ID = xid.New("wh")
	}
	if warehouse.CreatedAt.IsZero() {
		warehouse.CreatedAt = s.now()
	}
	s.warehouses[warehouse.ID] = warehouse
	return &warehouse, nil
}

func (s *Store) UpdateWarehouse(_ context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.warehouses[warehouse.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	warehouse.CreatedAt = existing.CreatedAt
	s.warehouses[warehouse.ID] = warehouse
	return &warehouse, nil
}

func (s *Store) DeleteWarehouse(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.warehouses[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.WarehouseID == id {
			return fmt.Errorf("%w: warehouse %s has sales", store.ErrConflict, id)
		}
	}
	delete(s.warehouses, id)
	for key := range s.stock {
		if key.warehouseID == id {
			delete(s.stock, key)
		}
	}
	return nil
}

func (s *Store) ListSalesLocations(_ context.Context) ([]domain.SalesLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locations := make([]domain.SalesLocation, 0, len(s.locations))
	for _, l := range s.locations {
		locations = append(locations, l)
	}
	slices.SortFunc(locations, func(a, b domain.SalesLocation) int {
		return strings.Compare(a.Name, b.Name)
	})
	return locations, nil
}

func (s *Store) GetSalesLocation(_ context.Context, id string) (*domain.SalesLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.locations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (s *Store) CreateSalesLocation(_ context.Context, location domain.SalesLocation) (*domain.SalesLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if location.ID == "" {
		location.ID = xid.New("loc")
	}
	if location.CreatedAt.IsZero() {
		location.CreatedAt = s.now()
	}
	s.locations[location.ID] = location
	return &location, nil
}

func (s *Store) UpdateSalesLocation(_ context.Context, location domain.SalesLocation) (*domain.SalesLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.locations[location.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	location.CreatedAt = existing.CreatedAt
	s.locations[location.ID] = location
	return &location, nil
}

func (s *Store) DeleteSalesLocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.SalesLocationID == id {
			return fmt.Errorf("%w: sales location %s has sales", store.ErrConflict, id)
		}
	}
	delete(s.locations, id)
	return nil
}

func (s *Store) GetStockMap(_ context.Context, warehouseID string, productIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stockMap := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		stockMap[id] = s.stock[stockKey{productID: id, warehouseID: warehouseID}]
	}
	return stockMap, nil
}

func (s *Store) ListStockLevels(_ context.Context, warehouseID string) ([]domain.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels := make([]domain.StockLevel, 0, len(s.stock))
	for key, qty := range s.stock {
		if warehouseID != "" && key.warehouseID != warehouseID {
			continue
		}
		levels = append(levels, s.stockLevelLocked(key, qty))
	}
	sortStockLevels(levels)
	return levels, nil
}

func (s *Store) ListLowStock(_ context.Context, threshold int, limit int) ([]domain.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels := make([]domain.StockLevel, 0)
	for key, qty := range s.stock {
		if qty < threshold {
			levels = append(levels, s.stockLevelLocked(key, qty))
		}
	}
	slices.SortFunc(levels, func(a, b domain.StockLevel) int {
		if a.Quantity != b.Quantity {
			return a.Quantity - b.Quantity
		}
		return strings.Compare(a.ProductName, b.ProductName)
	})
	if limit > 0 && len(levels) > limit {
		levels = levels[:limit]
	}
	return levels, nil
}

func (s *Store) TotalStock(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, qty := range s.stock {
		total += qty
	}
	return total, nil
}

func (s *Store) stockLevelLocked(key stockKey, qty int) domain.StockLevel {
	p := s.products[key.productID]
	return domain.StockLevel{
		ProductID:     key.productID,
		ProductName:   p.Name,
		SKU:           p.SKU,
		WarehouseID:   key.warehouseID,
		WarehouseName: s.warehouses[key.warehouseID].Name,
		Quantity:      qty,
	}
}

func sortStockLevels(levels []domain.StockLevel) {
	slices.SortFunc(levels, func(a, b domain.StockLevel) int {
		if c := strings.Compare(a.WarehouseName, b.WarehouseName); c != 0 {
			return c
		}
		return strings.Compare(a.ProductName, b.ProductName)
	})
}

func (s *Store) ListStockMovements(_ context.Context, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockMovement, 0, len(s.movements))
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		m.ProductName = s.products[m.ProductID].Name
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// CommitStockMovement applies an in, out or transfer movement atomically.
func (s *Store) CommitStockMovement(_ context.Context, movement domain.StockMovement) (*domain.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if movement.Quantity < 1 {
		return nil, store.ErrInvalidTransaction
	}
	if _, ok := s.products[movement.ProductID]; !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, movement.ProductID)
	}

	from, to := movement.FromWarehouseID, movement.ToWarehouseID
	switch movement.Type {
	case domain.MovementIn:
		if to == "" || from != "" {
			return nil, store.ErrInvalidTransaction
		}
	case domain.MovementOut:
		if from == "" || to != "" {
			return nil, store.ErrInvalidTransaction
		}
	case domain.MovementTransfer:
		if from == "" || to == "" || from == to {
			return nil, store.ErrInvalidTransaction
		}
	default:
		return nil, store.ErrInvalidTransaction
	}
	for _, id := range []string{from, to} {
		if id == "" {
			continue
		}
		if _, ok := s.warehouses[id]; !ok {
			return nil, fmt.Errorf("%w: warehouse %s", store.ErrNotFound, id)
		}
	}

	if from != "" {
		key := stockKey{productID: movement.ProductID, warehouseID: from}
		if s.stock[key] < movement.Quantity {
			return nil, store.ErrInsufficientStock
		}
		s.stock[key] -= movement.Quantity
	}
	if to != "" {
		s.stock[stockKey{productID: movement.ProductID, warehouseID: to}] += movement.Quantity
	}

	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	movement.CreatedAt = s.now()
	s.movements = append(s.movements, movement)

	movement.ProductName = s.products[movement.ProductID].Name
	return &movement, nil
}

// CommitSale validates every line against current stock before touching
// anything, so a failed commit leaves no partial state.
func (s *Store) CommitSale(_ context.Context, req domain.SaleCommitRequest) (string, error) {
	if err := store.ValidateSaleCommit(req); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	location, ok := s.locations[req.SalesLocationID]
	if !ok {
		return "", fmt.Errorf("%w: sales location %s", store.ErrNotFound, req.SalesLocationID)
	}
	if _, ok := s.warehouses[req.WarehouseID]; !ok {
		return "", fmt.Errorf("%w: warehouse %s", store.ErrNotFound, req.WarehouseID)
	}
	customerName := ""
	if req.CustomerID != "" {
		customer, ok := s.customers[req.CustomerID]
		if !ok {
			return "", fmt.Errorf("%w: customer %s", store.ErrNotFound, req.CustomerID)
		}
		customerName = customer.Name
	}

	requested := map[string]int{}
	items := make([]domain.SaleItem, 0, len(req.Items))
	total := decimal.Zero
	for _, line := range req.Items {
		product, ok := s.products[line.ProductID]
		if !ok {
			return "", fmt.Errorf("%w: product %s", store.ErrNotFound, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
		if s.stock[stockKey{productID: line.ProductID, warehouseID: req.WarehouseID}] < requested[line.ProductID] {
			return "", fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
		items = append(items, domain.SaleItem{
			ProductID:        line.ProductID,
			ProductName:      product.Name,
			SKU:              product.SKU,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			OriginalCurrency: line.OriginalCurrency,
			OriginalPrice:    line.OriginalPrice,
			ExchangeRate:     line.ExchangeRate,
		})
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	for productID, qty := range requested {
		s.stock[stockKey{productID: productID, warehouseID: req.WarehouseID}] -= qty
	}

	sale := domain.Sale{
		ID:                xid.New("sale"),
		CustomerID:        req.CustomerID,
		CustomerName:      customerName,
		SalesLocationID:   req.SalesLocationID,
		SalesLocationName: location.Name,
		WarehouseID:       req.WarehouseID,
		TotalAmount:       total,
		CreatedAt:         s.now(),
		Items:             items,
	}
	s.sales = append(s.sales, sale)
	return sale.ID, nil
}

// ListSales returns newest sales first, without items.
func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.sales))
	for i := len(s.sales) - 1; i >= 0; i-- {
		sale := s.decorateLocked(s.sales[i])
		sale.Items = nil
		out = append(out, sale)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sale := range s.sales {
		if sale.ID == id {
			dup := s.decorateLocked(sale)
			dup.Items = slices.Clone(sale.Items)
			return &dup, nil
		}
	}
	return nil, store.ErrNotFound
}

// decorateLocked refreshes display names from current reference data.
func (s *Store) decorateLocked(sale domain.Sale) domain.Sale {
	sale.CustomerName = ""
	if c, ok := s.customers[sale.CustomerID]; ok {
		sale.CustomerName = c.Name
	}
	if l, ok := s.locations[sale.SalesLocationID]; ok {
		sale.SalesLocationName = l.Name
	}
	return sale
}

// ListSalesBetween returns sales with from <= created_at <= to, oldest first,
// with each item's current product name and purchase price.
func (s *Store) ListSalesBetween(_ context.Context, from time.Time, to time.Time) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.SaleRecord, 0)
	for _, sale := range s.sales {
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		rec := domain.SaleRecord{
			ID:          sale.ID,
			CreatedAt:   sale.CreatedAt,
			TotalAmount: sale.TotalAmount,
			CustomerID:  sale.CustomerID,
			Items:       make([]domain.SaleRecordItem, 0, len(sale.Items)),
		}
		if c, ok := s.customers[sale.CustomerID]; ok {
			rec.CustomerName = c.Name
		}
		for _, item := range sale.Items {
			ri := domain.SaleRecordItem{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
			if p, ok := s.products[item.ProductID]; ok {
				ri.ProductName = p.Name
				ri.PurchasePrice = p.PurchasePrice
			}
			rec.Items = append(rec.Items, ri)
		}
		records = append(records, rec)
	}
	slices.SortStableFunc(records, func(a, b domain.SaleRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return records, nil
}

func (s *Store) CountCustomers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers), nil
}

func (s *Store) CountProducts(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products), nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidTransaction
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidTransaction
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
