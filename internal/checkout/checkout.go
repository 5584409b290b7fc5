package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"satistakip/backend/internal/cart"
	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/preflight"
	"satistakip/backend/internal/store"
)

type State string

const (
	StateIdle       State = "idle"
	StateChecking   State = "checking"
	StateBlocked    State = "blocked"
	StateSubmitting State = "submitting"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

var (
	ErrValidation        = errors.New("checkout validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCommitFailure     = errors.New("sale commit failed")
)

const DefaultCommitTimeout = 15 * time.Second

// Committer is the atomic sale commit boundary. It returns the new sale ID.
type Committer interface {
	CommitSale(ctx context.Context, req domain.SaleCommitRequest) (string, error)
}

type Selection struct {
	CustomerID      string
	SalesLocationID string
	WarehouseID     string
}

// Outcome describes one checkout attempt. Trail lists every state the attempt
// passed through, ending with State.
type Outcome struct {
	State     State
	Trail     []State
	SaleID    string
	Shortages []domain.PreflightResult
	Err       error
}

type Options struct {
	CommitTimeout time.Duration
	Logger        *zap.Logger
}

type Coordinator struct {
	checker       *preflight.Checker
	committer     Committer
	commitTimeout time.Duration
	logger        *zap.Logger
}

func NewCoordinator(checker *preflight.Checker, committer Committer, opts Options) *Coordinator {
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = DefaultCommitTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Coordinator{
		checker:       checker,
		committer:     committer,
		commitTimeout: opts.CommitTimeout,
		logger:        opts.Logger,
	}
}

// Checkout runs one attempt: validate, preflight, then commit exactly once.
// The cart is cleared only when the commit succeeds. A failed attempt is
// never retried here.
func (co *Coordinator) Checkout(ctx context.Context, c *cart.Cart, sel Selection) Outcome {
	out := Outcome{State: StateIdle, Trail: []State{StateIdle}}

	if err := validate(c, sel); err != nil {
		return out.to(StateFailed, err)
	}

	out = out.to(StateChecking, nil)
	lines := c.Lines()
	results, err := co.checker.Check(ctx, lines, sel.WarehouseID)
	if err != nil {
		return out.to(StateFailed, err)
	}
	if short := preflight.Shortages(results); len(short) > 0 {
		out.Shortages = short
		return out.to(StateBlocked, fmt.Errorf("%w: %s", ErrInsufficientStock, shortageNames(short)))
	}

	out = out.to(StateSubmitting, nil)
	req := buildRequest(lines, sel)

	commitCtx, cancel := context.WithTimeout(ctx, co.commitTimeout)
	defer cancel()

	saleID, err := co.committer.CommitSale(commitCtx, req)
	if err == nil && saleID == "" {
		err = errors.New("commit returned no sale id")
	}
	if err != nil {
		co.logger.Warn("sale commit failed",
			zap.String("warehouse_id", sel.WarehouseID),
			zap.Int("lines", len(req.Items)),
			zap.Error(err),
		)
		if errors.Is(err, store.ErrInsufficientStock) {
			return out.to(StateFailed, fmt.Errorf("%w: %w: %w", ErrCommitFailure, ErrInsufficientStock, err))
		}
		return out.to(StateFailed, fmt.Errorf("%w: %w", ErrCommitFailure, err))
	}

	c.Clear()
	out.SaleID = saleID
	co.logger.Info("sale committed", zap.String("sale_id", saleID), zap.Int("lines", len(req.Items)))
	return out.to(StateCommitted, nil)
}

func (o Outcome) to(state State, err error) Outcome {
	o.State = state
	o.Trail = append(o.Trail, state)
	if err != nil {
		o.Err = err
	}
	return o
}

// validate checks preconditions in a fixed order: cart, sales location,
// warehouse.
func validate(c *cart.Cart, sel Selection) error {
	if c == nil || c.Len() == 0 {
		return fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	if strings.TrimSpace(sel.SalesLocationID) == "" {
		return fmt.Errorf("%w: sales location is required", ErrValidation)
	}
	if strings.TrimSpace(sel.WarehouseID) == "" {
		return fmt.Errorf("%w: warehouse is required", ErrValidation)
	}
	return nil
}

func buildRequest(lines []domain.CartLine, sel Selection) domain.SaleCommitRequest {
	items := make([]domain.SaleCommitItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.SaleCommitItem{
			ProductID:        line.Product.ID,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPriceBase,
			OriginalCurrency: line.OriginalCurrency,
			OriginalPrice:    line.OriginalPrice,
			ExchangeRate:     line.ExchangeRate,
		})
	}
	return domain.SaleCommitRequest{
		CustomerID:      strings.TrimSpace(sel.CustomerID),
		SalesLocationID: strings.TrimSpace(sel.SalesLocationID),
		WarehouseID:     strings.TrimSpace(sel.WarehouseID),
		Items:           items,
	}
}

func shortageNames(short []domain.PreflightResult) string {
	parts := make([]string, 0, len(short))
	for _, s := range short {
		name := s.ProductName
		if name == "" {
			name = s.ProductID
		}
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", name, s.Requested, s.Available))
	}
	return strings.Join(parts, ", ")
}
