package postgres

import (
	"context"
	"database/sql"
	"errors"

	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/store"
	"satistakip/backend/internal/xid"
)

const productColumns = `id, name, sku_or_barcode, category, brand, unit_price, wholesale_price, purchase_price, currency, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &p.Brand, &p.UnitPrice, &p.WholesalePrice, &p.PurchasePrice, &p.Currency, &p.CreatedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR sku_or_barcode ILIKE '%' || $1 || '%'
		ORDER BY name
	`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	ids = uniqueIDs(ids)
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, sku_or_barcode, category, brand, unit_price, wholesale_price, purchase_price, currency, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
		RETURNING created_at
	`, product.ID, product.Name, product.SKU, product.Category, product.Brand,
		product.UnitPrice, product.WholesalePrice, product.PurchasePrice, product.Currency,
	).Scan(&product.CreatedAt)
	if err != nil {
		return nil, mapWriteErr(err, "product sku")
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, sku_or_barcode = $3, category = $4, brand = $5, unit_price = $6,
			wholesale_price = $7, purchase_price = $8, currency = $9, updated_at = now()
		WHERE id = $1
		RETURNING created_at
	`, product.ID, product.Name, product.SKU, product.Category, product.Brand,
		product.UnitPrice, product.WholesalePrice, product.PurchasePrice, product.Currency,
	).Scan(&product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapWriteErr(err, "product sku")
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM products WHERE id = $1`, id, "product")
}

func (s *Store) deleteByID(ctx context.Context, query string, id string, what string) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapWriteErr(err, what)
	}
	return expectAffected(res)
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, email, phone, address, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Email, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, email, phone, address, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Type, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (id, name, type, email, phone, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())
		RETURNING created_at
	`, customer.ID, customer.Name, customer.Type, customer.Email, customer.Phone, customer.Address).Scan(&customer.CreatedAt)
	if err != nil {
		return nil, mapWriteErr(err, "customer")
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, type = $3, email = $4, phone = $5, address = $6, updated_at = now()
		WHERE id = $1
		RETURNING created_at
	`, customer.ID, customer.Name, customer.Type, customer.Email, customer.Phone, customer.Address).Scan(&customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM customers WHERE id = $1`, id, "customer")
}

func (s *Store) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, location, description, created_at
		FROM warehouses
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	warehouses := make([]domain.Warehouse, 0, 8)
	for rows.Next() {
		var w domain.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Location, &w.Description, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.CreatedAt = w.CreatedAt.UTC()
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (s *Store) GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error) {
	var w domain.Warehouse
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, location, description, created_at
		FROM warehouses
		WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Location, &w.Description, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	w.CreatedAt = w.CreatedAt.UTC()
	return &w, nil
}

func (s *Store) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error) {
	if warehouse.ID == "" {
		warehouse.ID = xid.New("wh")
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO warehouses (id, name, location, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,now(),now())
		RETURNING created_at
	`, warehouse.ID, warehouse.Name, warehouse.Location, warehouse.Description).Scan(&warehouse.CreatedAt)
	if err != nil {
		return nil, mapWriteErr(err, "warehouse")
	}
	warehouse.CreatedAt = warehouse.CreatedAt.UTC()
	return &warehouse, nil
}

func (s *Store) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE warehouses
		SET name = $2, location = $3, description = $4, updated_at = now()
		WHERE id = $1
		RETURNING created_at
	`, warehouse.ID, warehouse.Name, warehouse.Location, warehouse.Description).Scan(&warehouse.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	warehouse.CreatedAt = warehouse.CreatedAt.UTC()
	return &warehouse, nil
}

func (s *Store) DeleteWarehouse(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM warehouses WHERE id = $1`, id, "warehouse")
}

func (s *Store) ListSalesLocations(ctx context.Context) ([]domain.SalesLocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, address, created_at
		FROM sales_locations
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]domain.SalesLocation, 0, 8)
	for rows.Next() {
		var l domain.SalesLocation
		if err := rows.Scan(&l.ID, &l.Name, &l.Type, &l.Address, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.CreatedAt = l.CreatedAt.UTC()
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (s *Store) GetSalesLocation(ctx context.Context, id string) (*domain.SalesLocation, error) {
	var l domain.SalesLocation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, address, created_at
		FROM sales_locations
		WHERE id = $1
	`, id).Scan(&l.ID, &l.Name, &l.Type, &l.Address, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return &l, nil
}

func (s *Store) CreateSalesLocation(ctx context.Context, location domain.SalesLocation) (*domain.SalesLocation, error) {
	if location.ID == "" {
		location.ID = xid.New("loc")
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sales_locations (id, name, type, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,now(),now())
		RETURNING created_at
	`, location.ID, location.Name, location.Type, location.Address).Scan(&location.CreatedAt)
	if err != nil {
		return nil, mapWriteErr(err, "sales location")
	}
	location.CreatedAt = location.CreatedAt.UTC()
	return &location, nil
}

func (s *Store) UpdateSalesLocation(ctx context.Context, location domain.SalesLocation) (*domain.SalesLocation, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE sales_locations
		SET name = $2, type = $3, address = $4, updated_at = now()
		WHERE id = $1
		RETURNING created_at
	`, location.ID, location.Name, location.Type, location.Address).Scan(&location.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	location.CreatedAt = location.CreatedAt.UTC()
	return &location, nil
}

func (s *Store) DeleteSalesLocation(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM sales_locations WHERE id = $1`, id, "sales location")
}
