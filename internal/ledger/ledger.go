// Package ledger implements the inventory reservation ledger: the one
// component allowed to move an inventory record's available count. It
// guarantees that the sum of outstanding order requests never exceeds the
// listed quantity, and that a florist re-requesting the same item accumulates
// into one row rather than double-reserving.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/backyard-flora/florahub/internal/model"
)

// ErrRecordNotFound is returned when the requested inventory record does not exist.
var ErrRecordNotFound = errors.New("inventory record not found")

// ErrMarketMismatch is returned when the inventory record belongs to a
// different market event than the one the request names. Guards against stale
// client state referencing a record from a past or different market.
var ErrMarketMismatch = errors.New("inventory record belongs to a different market event")

// ErrInsufficientAvailability is returned when fewer stems remain than were
// requested. Requests are all-or-nothing; there is no partial fulfilment.
var ErrInsufficientAvailability = errors.New("requested quantity exceeds availability")

// Tx is the set of writes and locked reads available inside one reservation
// transaction. Implementations must make WithinTx atomic: either every call
// made through the Tx commits, or none do.
type Tx interface {
	// InventoryForUpdate loads an inventory record with an exclusive lock,
	// along with the market event it belongs to (via its parent list).
	// Returns ErrRecordNotFound if no such record exists.
	InventoryForUpdate(ctx context.Context, recordID string) (*model.InventoryRecord, string, error)
	// AdjustAvailable moves the record's available count by delta
	// (negative to reserve, positive to release).
	AdjustAvailable(ctx context.Context, recordID string, delta int) error
	// UpsertOrderRequest creates the order request row for the given key, or
	// accumulates quantity into the existing one. Returns the resulting row.
	UpsertOrderRequest(ctx context.Context, userID, marketEventID, recordID string, quantity int) (*model.OrderRequestItem, error)
	// OrderRequest loads an order request by id, or (nil, nil) if absent.
	OrderRequest(ctx context.Context, itemID string) (*model.OrderRequestItem, error)
	// DeleteOrderRequest removes an order request row.
	DeleteOrderRequest(ctx context.Context, itemID string) error
}

// Store is the persistence boundary for the ledger. WithinTx runs fn inside
// one atomic transaction: a non-nil error from fn rolls every write back.
// The two read methods run outside any reservation transaction.
type Store interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
	ListCart(ctx context.Context, userID, marketEventID string) ([]model.CartItem, error)
	CountCart(ctx context.Context, userID, marketEventID string) (int, error)
}

// Ledger owns the invariant between InventoryRecord.Available and the sum of
// order request quantities referencing it.
type Ledger struct {
	store Store
}

// New constructs a Ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Reserve atomically takes quantity stems of an inventory record for a
// florist. The availability check and decrement execute under the row lock
// taken by InventoryForUpdate, so concurrent reservations against the same
// record serialize and Available never goes negative.
//
// Domain failures (ErrRecordNotFound, ErrMarketMismatch,
// ErrInsufficientAvailability) abort the transaction before any write.
func (l *Ledger) Reserve(ctx context.Context, userID, marketEventID, recordID string, quantity int) (*model.OrderRequestItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reserve: quantity must be positive, got %d", quantity)
	}

	var item *model.OrderRequestItem
	err := l.store.WithinTx(ctx, func(tx Tx) error {
		record, actualMarketID, err := tx.InventoryForUpdate(ctx, recordID)
		if err != nil {
			return err
		}
		if actualMarketID != marketEventID {
			return ErrMarketMismatch
		}
		if record.Available < quantity {
			return ErrInsufficientAvailability
		}
		if err := tx.AdjustAvailable(ctx, recordID, -quantity); err != nil {
			return fmt.Errorf("decrement available: %w", err)
		}
		item, err = tx.UpsertOrderRequest(ctx, userID, marketEventID, recordID, quantity)
		if err != nil {
			return fmt.Errorf("upsert order request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Release returns an order request's stems to the pool and removes the row,
// atomically. A missing item is treated as already released: removing from the
// cart twice is a no-op, not an error.
func (l *Ledger) Release(ctx context.Context, itemID string) error {
	return l.store.WithinTx(ctx, func(tx Tx) error {
		item, err := tx.OrderRequest(ctx, itemID)
		if err != nil {
			return fmt.Errorf("load order request: %w", err)
		}
		if item == nil {
			return nil
		}
		if err := tx.AdjustAvailable(ctx, item.InventoryRecordID, item.Quantity); err != nil {
			return fmt.Errorf("restore available: %w", err)
		}
		if err := tx.DeleteOrderRequest(ctx, itemID); err != nil {
			return fmt.Errorf("delete order request: %w", err)
		}
		return nil
	})
}

// List returns the florist's cart for one market event, joined with the
// display data (flower name, grower, price) cart rendering needs.
func (l *Ledger) List(ctx context.Context, userID, marketEventID string) ([]model.CartItem, error) {
	return l.store.ListCart(ctx, userID, marketEventID)
}

// Count returns the number of order request rows in the florist's cart for
// one market event, for badge display.
func (l *Ledger) Count(ctx context.Context, userID, marketEventID string) (int, error) {
	return l.store.CountCart(ctx, userID, marketEventID)
}
