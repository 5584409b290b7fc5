package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/store"
	"satistakip/backend/internal/xid"
)

// CommitSale inserts the sale and its items and decrements stock in one
// serializable transaction. Stock rows are locked FOR UPDATE before they are
// compared, so a lost race surfaces as store.ErrInsufficientStock.
func (s *Store) CommitSale(ctx context.Context, req domain.SaleCommitRequest) (string, error) {
	if err := store.ValidateSaleCommit(req); err != nil {
		return "", err
	}

	requested := make(map[string]int, len(req.Items))
	productIDs := make([]string, 0, len(req.Items))
	total := decimal.Zero
	for _, item := range req.Items {
		requested[item.ProductID] += item.Quantity
		productIDs = append(productIDs, item.ProductID)
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	productIDs = uniqueIDs(productIDs)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM sales_locations WHERE id = $1)`, req.SalesLocationID, "sales location"); err != nil {
		return "", err
	}
	if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM warehouses WHERE id = $1)`, req.WarehouseID, "warehouse"); err != nil {
		return "", err
	}
	if req.CustomerID != "" {
		if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, req.CustomerID, "customer"); err != nil {
			return "", err
		}
	}

	names := make(map[string]string, len(productIDs))
	productRows, err := tx.QueryContext(ctx, `SELECT id, name FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return "", err
	}
	for productRows.Next() {
		var id, name string
		if err := productRows.Scan(&id, &name); err != nil {
			_ = productRows.Close()
			return "", err
		}
		names[id] = name
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return "", err
	}
	_ = productRows.Close()
	for _, id := range productIDs {
		if _, ok := names[id]; !ok {
			return "", fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
	}

	stockRows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM stock_levels
		WHERE warehouse_id = $1 AND product_id = ANY($2)
		FOR UPDATE
	`, req.WarehouseID, productIDs)
	if err != nil {
		return "", err
	}
	onHand := make(map[string]int, len(productIDs))
	for stockRows.Next() {
		var id string
		var qty int
		if err := stockRows.Scan(&id, &qty); err != nil {
			_ = stockRows.Close()
			return "", err
		}
		onHand[id] = qty
	}
	if err := stockRows.Err(); err != nil {
		_ = stockRows.Close()
		return "", err
	}
	_ = stockRows.Close()

	for _, id := range productIDs {
		if onHand[id] < requested[id] {
			return "", fmt.Errorf("%w: %s", store.ErrInsufficientStock, names[id])
		}
	}

	saleID := xid.New("sale")
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, sales_location_id, warehouse_id, total_amount, created_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, saleID, nullIfEmpty(req.CustomerID), req.SalesLocationID, req.WarehouseID, total); err != nil {
		return "", err
	}

	for _, item := range req.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, original_currency, original_price, exchange_rate)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, saleID, item.ProductID, item.Quantity, item.UnitPrice, domain.NormalizeCurrency(item.OriginalCurrency), item.OriginalPrice, item.ExchangeRate); err != nil {
			return "", err
		}
	}

	for _, id := range productIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE stock_levels
			SET quantity = quantity - $3, updated_at = now()
			WHERE product_id = $1 AND warehouse_id = $2
		`, id, req.WarehouseID, requested[id]); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return saleID, nil
}

func requireRow(ctx context.Context, tx *sql.Tx, query string, id string, what string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s %s", store.ErrNotFound, what, id)
	}
	return nil
}

const saleHeaderSelect = `
	SELECT s.id, COALESCE(s.customer_id, ''), COALESCE(c.name, ''), s.sales_location_id, l.name,
		s.warehouse_id, s.total_amount, s.created_at
	FROM sales s
	JOIN sales_locations l ON l.id = s.sales_location_id
	LEFT JOIN customers c ON c.id = s.customer_id
`

func scanSaleHeader(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.CustomerID, &sale.CustomerName, &sale.SalesLocationID, &sale.SalesLocationName,
		&sale.WarehouseID, &sale.TotalAmount, &sale.CreatedAt)
	sale.CreatedAt = sale.CreatedAt.UTC()
	return sale, err
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, saleHeaderSelect+`
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		sale, err := scanSaleHeader(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSaleHeader(s.db.QueryRowContext(ctx, saleHeaderSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT si.product_id, p.name, p.sku_or_barcode, si.quantity, si.unit_price,
			si.original_currency, si.original_price, si.exchange_rate
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = $1
		ORDER BY si.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sale.Items = make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.SKU, &item.Quantity, &item.UnitPrice,
			&item.OriginalCurrency, &item.OriginalPrice, &item.ExchangeRate); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSalesBetween returns sales with from <= created_at <= to, oldest
// first, each with its items and the item's product cost.
func (s *Store) ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, s.total_amount, COALESCE(s.customer_id, ''), COALESCE(c.name, ''),
			si.quantity, si.unit_price, p.name, p.purchase_price
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		LEFT JOIN sale_items si ON si.sale_id = s.id
		LEFT JOIN products p ON p.id = si.product_id
		WHERE s.created_at >= $1 AND s.created_at <= $2
		ORDER BY s.created_at ASC, s.id ASC, si.id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.SaleRecord, 0, 64)
	for rows.Next() {
		var (
			rec       domain.SaleRecord
			qty       sql.NullInt64
			unitPrice decimal.NullDecimal
			name      sql.NullString
			cost      decimal.NullDecimal
		)
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.TotalAmount, &rec.CustomerID, &rec.CustomerName,
			&qty, &unitPrice, &name, &cost); err != nil {
			return nil, err
		}
		if n := len(records); n == 0 || records[n-1].ID != rec.ID {
			rec.CreatedAt = rec.CreatedAt.UTC()
			rec.Items = []domain.SaleRecordItem{}
			records = append(records, rec)
		}
		if !qty.Valid {
			continue
		}
		last := &records[len(records)-1]
		last.Items = append(last.Items, domain.SaleRecordItem{
			Quantity:      int(qty.Int64),
			UnitPrice:     unitPrice.Decimal,
			ProductName:   name.String,
			PurchasePrice: cost,
		})
	}
	return records, rows.Err()
}
