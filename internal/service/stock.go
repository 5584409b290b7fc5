package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"satistakip/backend/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func clampLimit(limit int) int {
	if limit < 1 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// ListStockLevels returns every stock row, or only one warehouse's rows when
// warehouseID is set.
func (s *Service) ListStockLevels(ctx context.Context, warehouseID string) ([]domain.StockLevel, error) {
	return s.repo.ListStockLevels(ctx, strings.TrimSpace(warehouseID))
}

func (s *Service) ListStockMovements(ctx context.Context, limit int) ([]domain.StockMovement, error) {
	return s.repo.ListStockMovements(ctx, clampLimit(limit))
}

func (s *Service) RecordStockMovement(ctx context.Context, req domain.StockMovementRequest) (domain.StockMovement, error) {
	movement := domain.StockMovement{
		ProductID:       strings.TrimSpace(req.ProductID),
		Type:            strings.ToLower(strings.TrimSpace(req.Type)),
		FromWarehouseID: strings.TrimSpace(req.FromWarehouseID),
		ToWarehouseID:   strings.TrimSpace(req.ToWarehouseID),
		Quantity:        req.Quantity,
		Note:            strings.TrimSpace(req.Note),
	}
	if movement.ProductID == "" {
		return domain.StockMovement{}, invalid("product is required")
	}
	if movement.Quantity < 1 {
		return domain.StockMovement{}, invalid("quantity must be at least 1")
	}

	switch movement.Type {
	case domain.MovementIn:
		if movement.ToWarehouseID == "" {
			return domain.StockMovement{}, invalid("target warehouse is required")
		}
		movement.FromWarehouseID = ""
	case domain.MovementOut:
		if movement.FromWarehouseID == "" {
			return domain.StockMovement{}, invalid("source warehouse is required")
		}
		movement.ToWarehouseID = ""
	case domain.MovementTransfer:
		if movement.FromWarehouseID == "" || movement.ToWarehouseID == "" {
			return domain.StockMovement{}, invalid("transfer needs source and target warehouses")
		}
		if movement.FromWarehouseID == movement.ToWarehouseID {
			return domain.StockMovement{}, invalid("transfer source and target must differ")
		}
	default:
		return domain.StockMovement{}, invalid("movement type must be in, out or transfer")
	}

	saved, err := s.repo.CommitStockMovement(ctx, movement)
	if err != nil {
		return domain.StockMovement{}, err
	}
	s.logger.Info("stock movement recorded",
		zap.String("movement_id", saved.ID),
		zap.String("type", saved.Type),
		zap.String("product_id", saved.ProductID),
		zap.Int("quantity", saved.Quantity),
	)
	return *saved, nil
}

// ListSales returns the newest sales first, without their items.
func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, clampLimit(limit))
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}
