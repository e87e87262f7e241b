// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the persistence layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/backyard-flora/florahub/internal/ledger"
	"github.com/backyard-flora/florahub/internal/metrics"
	"github.com/backyard-flora/florahub/internal/model"
	"github.com/backyard-flora/florahub/internal/repository"
)

// MarketStore is the persistence surface MarketService needs.
type MarketStore interface {
	Create(ctx context.Context, req model.CreateMarketRequest) (*model.MarketEvent, error)
	List(ctx context.Context) ([]model.MarketEvent, error)
	GetByID(ctx context.Context, id string) (*model.MarketEvent, error)
}

// InventoryStore is the persistence surface MarketService needs for listings.
type InventoryStore interface {
	SubmitList(ctx context.Context, marketEventID string, req model.SubmitInventoryRequest) (*model.InventoryList, []model.InventoryRecord, error)
	ListByMarket(ctx context.Context, marketEventID string) ([]model.InventoryOffer, error)
}

// MarketService orchestrates market-event scheduling and grower inventory submission.
type MarketService struct {
	markets   MarketStore
	inventory InventoryStore
}

// NewMarketService constructs a MarketService with its dependencies.
func NewMarketService(markets MarketStore, inventory InventoryStore) *MarketService {
	return &MarketService{markets: markets, inventory: inventory}
}

// CreateMarket validates the request and delegates to the repository.
func (s *MarketService) CreateMarket(ctx context.Context, req model.CreateMarketRequest) (*model.MarketEvent, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("market name is required")
	}
	if req.StartsAt.IsZero() {
		return nil, fmt.Errorf("starts_at is required")
	}
	return s.markets.Create(ctx, req)
}

// ListMarkets returns all market events.
func (s *MarketService) ListMarkets(ctx context.Context) ([]model.MarketEvent, error) {
	return s.markets.List(ctx)
}

// GetMarket returns a single market event by ID.
func (s *MarketService) GetMarket(ctx context.Context, id string) (*model.MarketEvent, error) {
	if id == "" {
		return nil, fmt.Errorf("market id is required")
	}
	return s.markets.GetByID(ctx, id)
}

// SubmitInventory validates a grower's listing and persists it against an
// existing market event.
func (s *MarketService) SubmitInventory(ctx context.Context, marketEventID string, req model.SubmitInventoryRequest) (*model.InventoryList, []model.InventoryRecord, error) {
	req.GrowerName = strings.TrimSpace(req.GrowerName)
	if req.GrowerID == "" {
		return nil, nil, fmt.Errorf("grower_id is required")
	}
	if req.GrowerName == "" {
		return nil, nil, fmt.Errorf("grower_name is required")
	}
	if len(req.Records) == 0 {
		return nil, nil, fmt.Errorf("at least one inventory record is required")
	}
	for i, rec := range req.Records {
		if strings.TrimSpace(rec.FlowerName) == "" {
			return nil, nil, fmt.Errorf("records[%d]: flower_name is required", i)
		}
		if rec.Quantity <= 0 {
			return nil, nil, fmt.Errorf("records[%d]: quantity must be a positive integer", i)
		}
		if rec.PriceEachCents < 0 {
			return nil, nil, fmt.Errorf("records[%d]: price_each_cents cannot be negative", i)
		}
	}

	if _, err := s.markets.GetByID(ctx, marketEventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, repository.ErrNotFound
		}
		return nil, nil, fmt.Errorf("check market event: %w", err)
	}
	return s.inventory.SubmitList(ctx, marketEventID, req)
}

// ListInventory returns all offers at a market event.
func (s *MarketService) ListInventory(ctx context.Context, marketEventID string) ([]model.InventoryOffer, error) {
	if _, err := s.markets.GetByID(ctx, marketEventID); err != nil {
		return nil, err
	}
	return s.inventory.ListByMarket(ctx, marketEventID)
}

// CartService orchestrates florist cart operations over the reservation ledger.
type CartService struct {
	ledger  *ledger.Ledger
	metrics *metrics.Reservations
}

// NewCartService constructs a CartService.
func NewCartService(l *ledger.Ledger, m *metrics.Reservations) *CartService {
	return &CartService{ledger: l, metrics: m}
}

// Reserve validates the request and delegates the concurrency-safe
// reservation to the ledger. Domain errors surface unwrapped so handlers can
// set the correct HTTP status.
func (s *CartService) Reserve(ctx context.Context, floristID, marketEventID string, req model.ReserveRequest) (*model.OrderRequestItem, error) {
	if floristID == "" {
		return nil, fmt.Errorf("florist identity is required")
	}
	if marketEventID == "" {
		return nil, fmt.Errorf("market id is required")
	}
	if req.InventoryRecordID == "" {
		return nil, fmt.Errorf("inventory_record_id is required")
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be a positive integer")
	}

	item, err := s.ledger.Reserve(ctx, floristID, marketEventID, req.InventoryRecordID, req.Quantity)
	if err != nil {
		s.metrics.Observe(reserveOutcome(err))
		switch {
		case errors.Is(err, ledger.ErrRecordNotFound),
			errors.Is(err, ledger.ErrMarketMismatch),
			errors.Is(err, ledger.ErrInsufficientAvailability):
			return nil, err
		}
		return nil, fmt.Errorf("reserve stems: %w", err)
	}
	s.metrics.Observe(metrics.OutcomeReserved)
	return item, nil
}

// Release removes an order request from the cart and returns its stems to the
// pool. Releasing an already-removed item succeeds silently.
func (s *CartService) Release(ctx context.Context, itemID string) error {
	if itemID == "" {
		return fmt.Errorf("item id is required")
	}
	if err := s.ledger.Release(ctx, itemID); err != nil {
		s.metrics.Observe(metrics.OutcomeError)
		return fmt.Errorf("release stems: %w", err)
	}
	s.metrics.Observe(metrics.OutcomeReleased)
	return nil
}

// ListCart returns the florist's cart for a market event.
func (s *CartService) ListCart(ctx context.Context, floristID, marketEventID string) ([]model.CartItem, error) {
	if floristID == "" {
		return nil, fmt.Errorf("florist identity is required")
	}
	return s.ledger.List(ctx, floristID, marketEventID)
}

// CountCart returns the cart badge count for a florist at a market event.
func (s *CartService) CountCart(ctx context.Context, floristID, marketEventID string) (int, error) {
	if floristID == "" {
		return 0, fmt.Errorf("florist identity is required")
	}
	return s.ledger.Count(ctx, floristID, marketEventID)
}

func reserveOutcome(err error) string {
	switch {
	case errors.Is(err, ledger.ErrRecordNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ledger.ErrMarketMismatch):
		return metrics.OutcomeMismatch
	case errors.Is(err, ledger.ErrInsufficientAvailability):
		return metrics.OutcomeInsufficient
	default:
		return metrics.OutcomeError
	}
}
