package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"satistakip/backend/internal/cart"
	"satistakip/backend/internal/checkout"
	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/store"
	"satistakip/backend/internal/xid"
)

// draft is an in-memory sale under construction. busy admits one action at a
// time; a second concurrent action fails fast instead of queueing. snap holds
// the view published after the last action and is what listings read.
type draft struct {
	busy      sync.Mutex
	id        string
	cart      *cart.Cart
	sel       checkout.Selection
	createdAt time.Time
	updatedAt time.Time

	snapMu sync.Mutex
	snap   domain.SaleDraft
}

func (s *Service) CreateDraft(ctx context.Context, req domain.SaleDraftCreateRequest) (domain.SaleDraft, error) {
	tier := domain.TierRetail
	if strings.TrimSpace(req.Tier) != "" {
		parsed, ok := domain.ParsePriceTier(req.Tier)
		if !ok {
			return domain.SaleDraft{}, invalid("unknown price tier %q", req.Tier)
		}
		tier = parsed
	}

	now := s.now()
	d := &draft{
		id:        xid.New("draft"),
		cart:      cart.New(s.resolver, tier),
		createdAt: now,
		updatedAt: now,
	}
	view := d.publish()

	s.draftsMu.Lock()
	s.evictIdleDraftsLocked(now)
	s.drafts[d.id] = d
	s.draftsMu.Unlock()

	actor, _ := ActorFromContext(ctx)
	s.logger.Debug("sale draft created", zap.String("draft_id", d.id), zap.String("actor", actor.Username))
	return view, nil
}

// ListDrafts returns open drafts oldest first. A draft in the middle of an
// action is listed with Busy set and the state its previous action left.
func (s *Service) ListDrafts(_ context.Context) []domain.SaleDraft {
	s.draftsMu.Lock()
	s.evictIdleDraftsLocked(s.now())
	drafts := make([]*draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		drafts = append(drafts, d)
	}
	s.draftsMu.Unlock()

	out := make([]domain.SaleDraft, 0, len(drafts))
	for _, d := range drafts {
		view := d.snapshot()
		if d.busy.TryLock() {
			d.busy.Unlock()
		} else {
			view.Busy = true
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Service) GetDraft(_ context.Context, id string) (domain.SaleDraft, error) {
	var view domain.SaleDraft
	err := s.withDraft(id, func(d *draft) error {
		view = d.view()
		return nil
	})
	return view, err
}

// UpdateDraftSelection sets the customer, sales location or warehouse of a
// draft. Referenced entities must exist.
func (s *Service) UpdateDraftSelection(ctx context.Context, id string, req domain.SaleDraftSelectionRequest) (domain.SaleDraft, error) {
	var view domain.SaleDraft
	err := s.withDraft(id, func(d *draft) error {
		sel := d.sel
		if req.CustomerID != nil {
			sel.CustomerID = strings.TrimSpace(*req.CustomerID)
			if sel.CustomerID != "" {
				if _, err := s.repo.GetCustomer(ctx, sel.CustomerID); err != nil {
					return referenceError("customer", sel.CustomerID, err)
				}
			}
		}
		if req.SalesLocationID != nil {
			sel.SalesLocationID = strings.TrimSpace(*req.SalesLocationID)
			if sel.SalesLocationID != "" {
				if _, err := s.repo.GetSalesLocation(ctx, sel.SalesLocationID); err != nil {
					return referenceError("sales location", sel.SalesLocationID, err)
				}
			}
		}
		if req.WarehouseID != nil {
			sel.WarehouseID = strings.TrimSpace(*req.WarehouseID)
			if sel.WarehouseID != "" {
				if _, err := s.repo.GetWarehouse(ctx, sel.WarehouseID); err != nil {
					return referenceError("warehouse", sel.WarehouseID, err)
				}
			}
		}
		d.sel = sel
		d.touch(s.now())
		view = d.view()
		return nil
	})
	return view, err
}

func referenceError(kind string, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return invalid("unknown %s %s", kind, id)
	}
	return err
}

func (s *Service) SetDraftTier(_ context.Context, id string, req domain.SaleDraftTierRequest) (domain.SaleDraft, error) {
	tier, ok := domain.ParsePriceTier(req.Tier)
	if !ok {
		return domain.SaleDraft{}, invalid("unknown price tier %q", req.Tier)
	}
	var view domain.SaleDraft
	err := s.withDraft(id, func(d *draft) error {
		d.cart.SetTier(tier)
		d.touch(s.now())
		view = d.view()
		return nil
	})
	return view, err
}

// AddDraftItem adds one unit of a product. The product is read fresh from the
// repository and that snapshot is what the line is priced from.
func (s *Service) AddDraftItem(ctx context.Context, id string, req domain.SaleDraftItemRequest) (domain.SaleDraft, error) {
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return domain.SaleDraft{}, invalid("product is required")
	}

	var view domain.SaleDraft
	err := s.withDraft(id, func(d *draft) error {
		product, err := s.repo.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := d.cart.AddItem(ctx, *product); err != nil {
			if errors.Is(err, cart.ErrStale) {
				return fmt.Errorf("%w: %w", ErrDraftBusy, err)
			}
			return err
		}
		d.touch(s.now())
		view = d.view()
		return nil
	})
	return view, err
}

func (s *Service) RemoveDraftItem(_ context.Context, id string, productID string) (domain.SaleDraft, error) {
	var view domain.SaleDraft
	err := s.withDraft(id, func(d *draft) error {
		d.cart.RemoveItem(strings.TrimSpace(productID))
		d.touch(s.now())
		view = d.view()
		return nil
	})
	return view, err
}

func (s *Service) SetDraftItemQuantity(_ context.Context, id string, productID string, req domain.SaleDraftQuantityRequest) (domain.SaleDraft, error) {
	if req.Quantity < 1 {
		return domain.SaleDraft{}, invalid("quantity must be at least 1")
	}
	var view domain.SaleDraft
	err := s.withDraft(id, func(d *draft) error {
		if !d.cart.SetQuantity(strings.TrimSpace(productID), req.Quantity) {
			return fmt.Errorf("%w: draft line %s", store.ErrNotFound, productID)
		}
		d.touch(s.now())
		view = d.view()
		return nil
	})
	return view, err
}

// CheckoutDraft runs one checkout attempt. The returned error is the
// attempt's failure, if any; the result is filled in either way. A committed
// draft stays open with an empty cart and its selection kept.
func (s *Service) CheckoutDraft(ctx context.Context, id string) (domain.CheckoutResult, error) {
	var result domain.CheckoutResult
	var outcomeErr error
	err := s.withDraft(id, func(d *draft) error {
		outcome := s.coordinator.Checkout(ctx, d.cart, d.sel)
		d.touch(s.now())

		result = domain.CheckoutResult{
			State:     string(outcome.State),
			Trail:     make([]string, 0, len(outcome.Trail)),
			SaleID:    outcome.SaleID,
			Shortages: outcome.Shortages,
			Draft:     d.view(),
		}
		for _, st := range outcome.Trail {
			result.Trail = append(result.Trail, string(st))
		}
		if outcome.Err != nil {
			result.Error = outcome.Err.Error()
			outcomeErr = outcome.Err
		}
		return nil
	})
	if err != nil {
		return domain.CheckoutResult{}, err
	}
	return result, outcomeErr
}

func (s *Service) DiscardDraft(_ context.Context, id string) error {
	return s.withDraft(id, func(d *draft) error {
		s.draftsMu.Lock()
		delete(s.drafts, d.id)
		s.draftsMu.Unlock()
		return nil
	})
}

func (s *Service) withDraft(id string, fn func(d *draft) error) error {
	id = strings.TrimSpace(id)
	s.draftsMu.Lock()
	d, ok := s.drafts[id]
	s.draftsMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: sale draft %s", store.ErrNotFound, id)
	}

	if !d.busy.TryLock() {
		return ErrDraftBusy
	}
	defer d.busy.Unlock()

	s.draftsMu.Lock()
	_, live := s.drafts[id]
	if live && s.idle(d, s.now()) {
		delete(s.drafts, id)
		live = false
	}
	s.draftsMu.Unlock()
	if !live {
		return fmt.Errorf("%w: sale draft %s", store.ErrNotFound, id)
	}

	defer d.publish()
	return fn(d)
}

func (s *Service) idle(d *draft, now time.Time) bool {
	return now.Sub(d.updatedAt) > s.draftIdleTTL
}

// evictIdleDraftsLocked drops drafts untouched for longer than the idle TTL.
// Drafts busy with an action are skipped. draftsMu must be held.
func (s *Service) evictIdleDraftsLocked(now time.Time) {
	evicted := 0
	for id, d := range s.drafts {
		if !d.busy.TryLock() {
			continue
		}
		if s.idle(d, now) {
			delete(s.drafts, id)
			evicted++
		}
		d.busy.Unlock()
	}
	if evicted > 0 {
		s.logger.Info("evicted idle sale drafts", zap.Int("count", evicted), zap.Int("remaining", len(s.drafts)))
	}
}

func (d *draft) touch(now time.Time) {
	d.updatedAt = now
}

// publish stores the current view for listings. The caller owns d.busy or
// holds the only reference to d.
func (d *draft) publish() domain.SaleDraft {
	view := d.view()
	d.snapMu.Lock()
	d.snap = view
	d.snapMu.Unlock()
	return view
}

func (d *draft) snapshot() domain.SaleDraft {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	return d.snap
}

func (d *draft) view() domain.SaleDraft {
	lines := d.cart.Lines()
	out := domain.SaleDraft{
		ID:               d.id,
		Tier:             d.cart.Tier(),
		CustomerID:       d.sel.CustomerID,
		SalesLocationID:  d.sel.SalesLocationID,
		WarehouseID:      d.sel.WarehouseID,
		Lines:            make([]domain.SaleDraftLine, 0, len(lines)),
		ItemCount:        d.cart.ItemCount(),
		Total:            d.cart.Total(),
		TotalsByCurrency: d.cart.TotalsByOriginalCurrency(),
		CreatedAt:        d.createdAt,
		UpdatedAt:        d.updatedAt,
	}
	for _, line := range lines {
		out.Lines = append(out.Lines, domain.SaleDraftLine{CartLine: line, LineTotal: line.LineTotal()})
	}
	return out
}
