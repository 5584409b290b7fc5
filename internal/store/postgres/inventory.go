package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/store"
	"satistakip/backend/internal/xid"
)

func (s *Store) GetStockMap(ctx context.Context, warehouseID string, productIDs []string) (map[string]int, error) {
	stockMap := make(map[string]int, len(productIDs))
	if len(productIDs) == 0 {
		return stockMap, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM stock_levels
		WHERE warehouse_id = $1 AND product_id = ANY($2)
	`, warehouseID, uniqueIDs(productIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		stockMap[id] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range productIDs {
		if _, ok := stockMap[id]; !ok {
			stockMap[id] = 0
		}
	}
	return stockMap, nil
}

const stockLevelSelect = `
	SELECT sl.product_id, p.name, p.sku_or_barcode, sl.warehouse_id, w.name, sl.quantity
	FROM stock_levels sl
	JOIN products p ON p.id = sl.product_id
	JOIN warehouses w ON w.id = sl.warehouse_id
`

func (s *Store) ListStockLevels(ctx context.Context, warehouseID string) ([]domain.StockLevel, error) {
	return s.queryStockLevels(ctx, stockLevelSelect+`
		WHERE $1 = '' OR sl.warehouse_id = $1
		ORDER BY w.name, p.name
	`, warehouseID)
}

func (s *Store) ListLowStock(ctx context.Context, threshold int, limit int) ([]domain.StockLevel, error) {
	if limit < 1 {
		limit = 5
	}
	return s.queryStockLevels(ctx, stockLevelSelect+`
		WHERE sl.quantity < $1
		ORDER BY sl.quantity ASC, p.name ASC
		LIMIT $2
	`, threshold, limit)
}

func (s *Store) queryStockLevels(ctx context.Context, query string, args ...any) ([]domain.StockLevel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := make([]domain.StockLevel, 0, 32)
	for rows.Next() {
		var l domain.StockLevel
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.SKU, &l.WarehouseID, &l.WarehouseName, &l.Quantity); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

func (s *Store) TotalStock(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock_levels`)
}

func (s *Store) ListStockMovements(ctx context.Context, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.product_id, p.name, m.type, COALESCE(m.from_warehouse_id, ''), COALESCE(m.to_warehouse_id, ''),
			m.quantity, m.note, m.created_at
		FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Type, &m.FromWarehouseID, &m.ToWarehouseID, &m.Quantity, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// CommitStockMovement records the movement and adjusts stock rows in one
// serializable transaction. The source row is locked before it is checked.
func (s *Store) CommitStockMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, error) {
	if movement.Quantity < 1 {
		return nil, store.ErrInvalidTransaction
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, `SELECT name FROM products WHERE id = $1`, movement.ProductID).Scan(&movement.ProductName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, movement.ProductID)
		}
		return nil, err
	}
	for _, id := range []string{from, to} {
		if id == "" {
			continue
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM warehouses WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: warehouse %s", store.ErrNotFound, id)
		}
	}

	if from != "" {
		var onHand int
		err := tx.QueryRowContext(ctx, `
			SELECT quantity FROM stock_levels
			WHERE product_id = $1 AND warehouse_id = $2
			FOR UPDATE
		`, movement.ProductID, from).Scan(&onHand)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if onHand < movement.Quantity {
			return nil, store.ErrInsufficientStock
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE stock_levels SET quantity = quantity - $3, updated_at = now()
			WHERE product_id = $1 AND warehouse_id = $2
		`, movement.ProductID, from, movement.Quantity); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_levels (product_id, warehouse_id, quantity, updated_at)
			VALUES ($1,$2,$3,now())
			ON CONFLICT (product_id, warehouse_id)
			DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity, updated_at = now()
		`, movement.ProductID, to, movement.Quantity); err != nil {
			return nil, err
		}
	}

	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO stock_movements (id, product_id, type, from_warehouse_id, to_warehouse_id, quantity, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
		RETURNING created_at
	`, movement.ID, movement.ProductID, movement.Type, nullIfEmpty(from), nullIfEmpty(to), movement.Quantity, movement.Note,
	).Scan(&movement.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	movement.CreatedAt = movement.CreatedAt.UTC()
	return &movement, nil
}
