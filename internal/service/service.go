package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"satistakip/backend/internal/checkout"
	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/preflight"
	"satistakip/backend/internal/pricing"
	"satistakip/backend/internal/report"
	"satistakip/backend/internal/store"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("admin role required")
	ErrDraftBusy  = errors.New("sale draft is busy with another action")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// DefaultDraftIdleTTL applies when Options.DraftIdleTTL is not set.
const DefaultDraftIdleTTL = 2 * time.Hour

type Options struct {
	CommitTimeout time.Duration
	DraftIdleTTL  time.Duration
	Location      *time.Location
	Now           func() time.Time
	Logger        *zap.Logger
}

type Service struct {
	repo        store.Repository
	resolver    *pricing.Resolver
	coordinator *checkout.Coordinator
	loc         *time.Location
	now         func() time.Time
	logger      *zap.Logger

	draftsMu     sync.Mutex
	drafts       map[string]*draft
	draftIdleTTL time.Duration

	// lastReports keeps the newest successful aggregate per range kind.
	reportsMu   sync.Mutex
	lastReports map[report.RangeKind]ReportResult
}

func New(repo store.Repository, rates pricing.RateProvider, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DraftIdleTTL <= 0 {
		opts.DraftIdleTTL = DefaultDraftIdleTTL
	}

	coordinator := checkout.NewCoordinator(preflight.NewChecker(repo), repo, checkout.Options{
		CommitTimeout: opts.CommitTimeout,
		Logger:        opts.Logger.Named("checkout"),
	})

	return &Service{
		repo:         repo,
		resolver:     pricing.NewResolver(rates),
		coordinator:  coordinator,
		loc:          opts.Location,
		now:          opts.Now,
		logger:       opts.Logger,
		drafts:       make(map[string]*draft),
		draftIdleTTL: opts.DraftIdleTTL,
		lastReports:  make(map[report.RangeKind]ReportResult),
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func (s *Service) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, strings.TrimSpace(search))
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	product, err := productFromRequest(req)
	if err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product created", zap.String("product_id", created.ID), zap.String("currency", created.Currency))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	product, err := productFromRequest(req)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = strings.TrimSpace(id)

	saved, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, strings.TrimSpace(id))
}

func productFromRequest(req domain.ProductRequest) (domain.Product, error) {
	product := domain.Product{
		Name:           strings.TrimSpace(req.Name),
		SKU:            strings.TrimSpace(req.SKU),
		Category:       strings.TrimSpace(req.Category),
		Brand:          strings.TrimSpace(req.Brand),
		UnitPrice:      req.UnitPrice,
		WholesalePrice: req.WholesalePrice,
		PurchasePrice:  req.PurchasePrice,
		Currency:       domain.NormalizeCurrency(req.Currency),
	}
	if product.Name == "" {
		return domain.Product{}, invalid("product name is required")
	}
	if product.UnitPrice.IsNegative() {
		return domain.Product{}, invalid("unit price must not be negative")
	}
	if product.WholesalePrice.Valid && product.WholesalePrice.Decimal.IsNegative() {
		return domain.Product{}, invalid("wholesale price must not be negative")
	}
	if product.PurchasePrice.Valid && product.PurchasePrice.Decimal.IsNegative() {
		return domain.Product{}, invalid("purchase price must not be negative")
	}
	if !validCurrencyCode(product.Currency) {
		return domain.Product{}, invalid("currency %q is not a currency code", product.Currency)
	}
	return product, nil
}

func validCurrencyCode(code string) bool {
	if domain.IsBaseCurrency(code) {
		return true
	}
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerRequest) (domain.Customer, error) {
	customer, err := customerFromRequest(req)
	if err != nil {
		return domain.Customer{}, err
	}
	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerRequest) (domain.Customer, error) {
	customer, err := customerFromRequest(req)
	if err != nil {
		return domain.Customer{}, err
	}
	customer.ID = strings.TrimSpace(id)
	saved, err := s.repo.UpdateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	return *saved, nil
}

// DeleteCustomer keeps the customer's past sales; they read as guest sales
// afterwards.
func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteCustomer(ctx, strings.TrimSpace(id))
}

func customerFromRequest(req domain.CustomerRequest) (domain.Customer, error) {
	customer := domain.Customer{
		Name:    strings.TrimSpace(req.Name),
		Type:    strings.ToLower(strings.TrimSpace(req.Type)),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	}
	if customer.Name == "" {
		return domain.Customer{}, invalid("customer name is required")
	}
	switch customer.Type {
	case "":
		customer.Type = "individual"
	case "individual", "corporate":
	default:
		return domain.Customer{}, invalid("customer type must be individual or corporate")
	}
	if customer.Email != "" && !strings.Contains(customer.Email, "@") {
		return domain.Customer{}, invalid("customer email is malformed")
	}
	return customer, nil
}

func (s *Service) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	return s.repo.ListWarehouses(ctx)
}

func (s *Service) GetWarehouse(ctx context.Context, id string) (domain.Warehouse, error) {
	warehouse, err := s.repo.GetWarehouse(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Warehouse{}, err
	}
	return *warehouse, nil
}

func (s *Service) CreateWarehouse(ctx context.Context, req domain.WarehouseRequest) (domain.Warehouse, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Warehouse{}, err
	}
	warehouse := domain.Warehouse{
		Name:        strings.TrimSpace(req.Name),
		Location:    strings.TrimSpace(req.Location),
		Description: strings.TrimSpace(req.Description),
	}
	if warehouse.Name == "" {
		return domain.Warehouse{}, invalid("warehouse name is required")
	}
	created, err := s.repo.CreateWarehouse(ctx, warehouse)
	if err != nil {
		return domain.Warehouse{}, err
	}
	return *created, nil
}

func (s *Service) UpdateWarehouse(ctx context.Context, id string, req domain.WarehouseRequest) (domain.Warehouse, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Warehouse{}, err
	}
	warehouse := domain.Warehouse{
		ID:          strings.TrimSpace(id),
		Name:        strings.TrimSpace(req.Name),
		Location:    strings.TrimSpace(req.Location),
		Description: strings.TrimSpace(req.Description),
	}
	if warehouse.Name == "" {
		return domain.Warehouse{}, invalid("warehouse name is required")
	}
	saved, err := s.repo.UpdateWarehouse(ctx, warehouse)
	if err != nil {
		return domain.Warehouse{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteWarehouse(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteWarehouse(ctx, strings.TrimSpace(id))
}

func (s *Service) ListSalesLocations(ctx context.Context) ([]domain.SalesLocation, error) {
	return s.repo.ListSalesLocations(ctx)
}

func (s *Service) GetSalesLocation(ctx context.Context, id string) (domain.SalesLocation, error) {
	location, err := s.repo.GetSalesLocation(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.SalesLocation{}, err
	}
	return *location, nil
}

func (s *Service) CreateSalesLocation(ctx context.Context, req domain.SalesLocationRequest) (domain.SalesLocation, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.SalesLocation{}, err
	}
	location, err := locationFromRequest(req)
	if err != nil {
		return domain.SalesLocation{}, err
	}
	created, err := s.repo.CreateSalesLocation(ctx, location)
	if err != nil {
		return domain.SalesLocation{}, err
	}
	return *created, nil
}

func (s *Service) UpdateSalesLocation(ctx context.Context, id string, req domain.SalesLocationRequest) (domain.SalesLocation, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.SalesLocation{}, err
	}
	location, err := locationFromRequest(req)
	if err != nil {
		return domain.SalesLocation{}, err
	}
	location.ID = strings.TrimSpace(id)
	saved, err := s.repo.UpdateSalesLocation(ctx, location)
	if err != nil {
		return domain.SalesLocation{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteSalesLocation(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteSalesLocation(ctx, strings.TrimSpace(id))
}

func locationFromRequest(req domain.SalesLocationRequest) (domain.SalesLocation, error) {
	location := domain.SalesLocation{
		Name:    strings.TrimSpace(req.Name),
		Type:    strings.ToLower(strings.TrimSpace(req.Type)),
		Address: strings.TrimSpace(req.Address),
	}
	if location.Name == "" {
		return domain.SalesLocation{}, invalid("sales location name is required")
	}
	switch location.Type {
	case "":
		location.Type = "store"
	case "store", "online", "marketplace", "other":
	default:
		return domain.SalesLocation{}, invalid("unknown sales location type %q", location.Type)
	}
	return location, nil
}
