// Package repository implements database persistence for market events and
// grower inventory. It uses pgx directly (no ORM). Reservation writes live in
// the ledger package; nothing here touches an inventory record's available
// count after creation.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backyard-flora/florahub/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// MarketRepository handles persistence for market events.
type MarketRepository struct {
	db *pgxpool.Pool
}

// NewMarketRepository constructs a MarketRepository.
func NewMarketRepository(db *pgxpool.Pool) *MarketRepository {
	return &MarketRepository{db: db}
}

// Create inserts a new market event and returns it with a generated UUID.
func (r *MarketRepository) Create(ctx context.Context, req model.CreateMarketRequest) (*model.MarketEvent, error) {
	market := &model.MarketEvent{
		ID:        uuid.New().String(),
		Name:      req.Name,
		StartsAt:  req.StartsAt,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO market_events (id, name, starts_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		market.ID, market.Name, market.StartsAt, market.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert market event: %w", err)
	}
	return market, nil
}

// List returns all market events ordered by start time ascending.
func (r *MarketRepository) List(ctx context.Context) ([]model.MarketEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, starts_at, created_at
		 FROM market_events
		 ORDER BY starts_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list market events: %w", err)
	}
	defer rows.Close()

	var markets []model.MarketEvent
	for rows.Next() {
		var m model.MarketEvent
		if err := rows.Scan(&m.ID, &m.Name, &m.StartsAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan market event: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// GetByID returns a single market event or ErrNotFound.
func (r *MarketRepository) GetByID(ctx context.Context, id string) (*model.MarketEvent, error) {
	var m model.MarketEvent
	err := r.db.QueryRow(ctx,
		`SELECT id, name, starts_at, created_at
		 FROM market_events WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Name, &m.StartsAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get market event: %w", err)
	}
	return &m, nil
}

// InventoryRepository handles persistence for grower inventory lists and records.
type InventoryRepository struct {
	db *pgxpool.Pool
}

// NewInventoryRepository constructs an InventoryRepository.
func NewInventoryRepository(db *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// SubmitList inserts a grower's inventory list and all of its records in one
// transaction. Every record starts with available equal to quantity.
func (r *InventoryRepository) SubmitList(ctx context.Context, marketEventID string, req model.SubmitInventoryRequest) (*model.InventoryList, []model.InventoryRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()
	list := &model.InventoryList{
		ID:            uuid.New().String(),
		MarketEventID: marketEventID,
		GrowerID:      req.GrowerID,
		GrowerName:    req.GrowerName,
		CreatedAt:     now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO inventory_lists (id, market_event_id, grower_id, grower_name, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		list.ID, list.MarketEventID, list.GrowerID, list.GrowerName, list.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert inventory list: %w", err)
	}

	records := make([]model.InventoryRecord, 0, len(req.Records))
	for _, in := range req.Records {
		rec := model.InventoryRecord{
			ID:              uuid.New().String(),
			InventoryListID: list.ID,
			FlowerName:      in.FlowerName,
			Quantity:        in.Quantity,
			Available:       in.Quantity,
			PriceEachCents:  in.PriceEachCents,
			CreatedAt:       now,
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO inventory_records (id, inventory_list_id, flower_name, quantity, available, price_each_cents, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, rec.InventoryListID, rec.FlowerName, rec.Quantity, rec.Available, rec.PriceEachCents, rec.CreatedAt,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("insert inventory record: %w", err)
		}
		records = append(records, rec)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return list, records, nil
}

// ListByMarket returns all inventory records offered at a market event,
// joined with the offering grower's name.
func (r *InventoryRepository) ListByMarket(ctx context.Context, marketEventID string) ([]model.InventoryOffer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.flower_name, l.grower_name, r.price_each_cents, r.available
		 FROM inventory_records r
		 JOIN inventory_lists l ON l.id = r.inventory_list_id
		 WHERE l.market_event_id = $1
		 ORDER BY l.grower_name ASC, r.flower_name ASC`,
		marketEventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list market inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryOffer
	for rows.Next() {
		var it model.InventoryOffer
		if err := rows.Scan(&it.InventoryRecordID, &it.FlowerName, &it.GrowerName, &it.PriceEachCents, &it.Available); err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
