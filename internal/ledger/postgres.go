package ledger

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

// PostgresStore implements Store against PostgreSQL using pgx.
//
// Concurrency: InventoryForUpdate issues SELECT ... FOR UPDATE, taking an
// exclusive row-level lock on the inventory record. Two florists racing for
// the same stems serialize on that lock, so the availability check inside the
// transaction always sees committed state and the counter can never be
// decremented past zero by a lost update.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithinTx runs fn inside one database transaction. Any error from fn rolls
// the transaction back; domain sentinels pass through unwrapped so callers
// can match them with errors.Is.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&pgxTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListCart returns the joined cart view for a florist at one market event.
func (s *PostgresStore) ListCart(ctx context.Context, userID, marketEventID string) ([]model.CartItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT o.id, o.inventory_record_id, r.flower_name, l.grower_name, r.price_each_cents, o.quantity
		 FROM order_request_items o
		 JOIN inventory_records r ON r.id = o.inventory_record_id
		 JOIN inventory_lists l ON l.id = r.inventory_list_id
		 WHERE o.user_id = $1 AND o.market_event_id = $2
		 ORDER BY o.created_at ASC`,
		userID, marketEventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ItemID, &it.InventoryRecordID, &it.FlowerName, &it.GrowerName, &it.PriceEachCents, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		it.SubtotalCents = it.PriceEachCents * it.Quantity
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountCart returns the number of order request rows in the cart.
func (s *PostgresStore) CountCart(ctx context.Context, userID, marketEventID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM order_request_items WHERE user_id = $1 AND market_event_id = $2`,
		userID, marketEventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cart: %w", err)
	}
	return n, nil
}

// pgxTx adapts a pgx transaction to the ledger Tx interface.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) InventoryForUpdate(ctx context.Context, recordID string) (*model.InventoryRecord, string, error) {
	var rec model.InventoryRecord
	var marketEventID string
	err := t.tx.QueryRow(ctx,
		`SELECT r.id, r.inventory_list_id, r.flower_name, r.quantity, r.available, r.price_each_cents, r.created_at,
		        l.market_event_id
		 FROM inventory_records r
		 JOIN inventory_lists l ON l.id = r.inventory_list_id
		 WHERE r.id = $1
		 FOR UPDATE OF r`,
		recordID,
	).Scan(&rec.ID, &rec.InventoryListID, &rec.FlowerName, &rec.Quantity, &rec.Available, &rec.PriceEachCents, &rec.CreatedAt, &marketEventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrRecordNotFound
		}
		return nil, "", fmt.Errorf("lock inventory record: %w", err)
	}
	return &rec, marketEventID, nil
}

func (t *pgxTx) AdjustAvailable(ctx context.Context, recordID string, delta int) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE inventory_records SET available = available + $2 WHERE id = $1`,
		recordID, delta,
	)
	return err
}

func (t *pgxTx) UpsertOrderRequest(ctx context.Context, userID, marketEventID, recordID string, quantity int) (*model.OrderRequestItem, error) {
	// Single-statement create-or-accumulate: the unique constraint on
	// (user_id, market_event_id, inventory_record_id) routes repeat requests
	// into the existing row.
	now := time.Now().UTC()
	var item model.OrderRequestItem
	err := t.tx.QueryRow(ctx,
		`INSERT INTO order_request_items (id, user_id, market_event_id, inventory_record_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (user_id, market_event_id, inventory_record_id)
		 DO UPDATE SET quantity = order_request_items.quantity + EXCLUDED.quantity,
		               updated_at = EXCLUDED.updated_at
		 RETURNING id, user_id, market_event_id, inventory_record_id, quantity, created_at, updated_at`,
		uuid.New().String(), userID, marketEventID, recordID, quantity, now,
	).Scan(&item.ID, &item.UserID, &item.MarketEventID, &item.InventoryRecordID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *pgxTx) OrderRequest(ctx context.Context, itemID string) (*model.OrderRequestItem, error) {
	var item model.OrderRequestItem
	err := t.tx.QueryRow(ctx,
		`SELECT id, user_id, market_event_id, inventory_record_id, quantity, created_at, updated_at
		 FROM order_request_items
		 WHERE id = $1
		 FOR UPDATE`,
		itemID,
	).Scan(&item.ID, &item.UserID, &item.MarketEventID, &item.InventoryRecordID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (t *pgxTx) DeleteOrderRequest(ctx context.Context, itemID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM order_request_items WHERE id = $1`, itemID)
	return err
}
