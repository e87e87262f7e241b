package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/backyard-flora/florahub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	marketA = "market-a"
	marketB = "market-b"
	recTulip = "rec-tulip"
	recDahlia = "rec-dahlia"
	floristA = "florist-a"
	floristB = "florist-b"
)

// newTestLedger seeds one grower list per market with one record each:
// 100 tulips at marketA, 30 dahlias at marketB.
func newTestLedger(t *testing.T) (*MemoryStore, *Ledger) {
	t.Helper()
	store := NewMemoryStore()
	store.AddList(model.InventoryList{ID: "list-a", MarketEventID: marketA, GrowerID: "grower-1", GrowerName: "Petal & Stem"})
	store.AddList(model.InventoryList{ID: "list-b", MarketEventID: marketB, GrowerID: "grower-2", GrowerName: "Hollow Oak Farm"})
	store.AddRecord(model.InventoryRecord{
		ID: recTulip, InventoryListID: "list-a", FlowerName: "Tulip",
		Quantity: 100, Available: 100, PriceEachCents: 250, CreatedAt: time.Now().UTC(),
	})
	store.AddRecord(model.InventoryRecord{
		ID: recDahlia, InventoryListID: "list-b", FlowerName: "Dahlia",
		Quantity: 30, Available: 30, PriceEachCents: 400, CreatedAt: time.Now().UTC(),
	})
	return store, New(store)
}

func available(t *testing.T, store *MemoryStore, recordID string) int {
	t.Helper()
	rec, ok := store.Record(recordID)
	require.True(t, ok)
	return rec.Available
}

func TestReserve_DecrementsAvailable(t *testing.T) {
	store, led := newTestLedger(t)

	item, err := led.Reserve(context.Background(), floristA, marketA, recTulip, 60)
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, 60, item.Quantity)
	assert.Equal(t, floristA, item.UserID)
	assert.Equal(t, marketA, item.MarketEventID)
	assert.Equal(t, recTulip, item.InventoryRecordID)
	assert.Equal(t, 40, available(t, store, recTulip))
}

func TestReserve_RejectsNonPositiveQuantity(t *testing.T) {
	store, led := newTestLedger(t)

	for _, qty := range []int{0, -1, -60} {
		_, err := led.Reserve(context.Background(), floristA, marketA, recTulip, qty)
		assert.Error(t, err)
	}
	assert.Equal(t, 100, available(t, store, recTulip))
}

func TestReserve_UnknownRecord(t *testing.T) {
	_, led := newTestLedger(t)

	_, err := led.Reserve(context.Background(), floristA, marketA, "rec-unknown", 1)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestReserve_MarketMismatch_LeavesAvailableUnchanged(t *testing.T) {
	store, led := newTestLedger(t)

	// recDahlia actually belongs to marketB.
	_, err := led.Reserve(context.Background(), floristA, marketA, recDahlia, 5)
	assert.ErrorIs(t, err, ErrMarketMismatch)
	assert.Equal(t, 30, available(t, store, recDahlia))
	assert.Empty(t, store.OrderRequests())
}

func TestReserve_NeverGoesNegative(t *testing.T) {
	store, led := newTestLedger(t)
	ctx := context.Background()

	// Drain in steps; every successful step keeps available >= 0, and the
	// first over-ask fails without touching the counter.
	for _, step := range []struct {
		qty       int
		wantErr   error
		wantAvail int
	}{
		{qty: 70, wantErr: nil, wantAvail: 30},
		{qty: 31, wantErr: ErrInsufficientAvailability, wantAvail: 30},
		{qty: 30, wantErr: nil, wantAvail: 0},
		{qty: 1, wantErr: ErrInsufficientAvailability, wantAvail: 0},
	} {
		_, err := led.Reserve(ctx, floristA, marketA, recTulip, step.qty)
		if step.wantErr != nil {
			assert.ErrorIs(t, err, step.wantErr)
		} else {
			assert.NoError(t, err)
		}
		assert.Equal(t, step.wantAvail, available(t, store, recTulip))
		assert.GreaterOrEqual(t, available(t, store, recTulip), 0)
	}
}

func TestReserve_AccumulatesIntoOneRow(t *testing.T) {
	store, led := newTestLedger(t)
	ctx := context.Background()

	first, err := led.Reserve(ctx, floristA, marketA, recTulip, 5)
	require.NoError(t, err)
	second, err := led.Reserve(ctx, floristA, marketA, recTulip, 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 8, second.Quantity)

	rows := store.OrderRequests()
	require.Len(t, rows, 1)
	assert.Equal(t, 8, rows[0].Quantity)
	assert.Equal(t, 92, available(t, store, recTulip))
}

func TestReserve_DistinctFloristsGetDistinctRows(t *testing.T) {
	store, led := newTestLedger(t)
	ctx := context.Background()

	_, err := led.Reserve(ctx, floristA, marketA, recTulip, 5)
	require.NoError(t, err)
	_, err = led.Reserve(ctx, floristB, marketA, recTulip, 5)
	require.NoError(t, err)

	assert.Len(t, store.OrderRequests(), 2)
	assert.Equal(t, 90, available(t, store, recTulip))
}

func TestConservation_AcrossReserveAndRelease(t *testing.T) {
	store, led := newTestLedger(t)
	ctx := context.Background()

	sumReserved := func() int {
		total := 0
		for _, it := range store.OrderRequests() {
			if it.InventoryRecordID == recTulip {
				total += it.Quantity
			}
		}
		return total
	}
	checkConservation := func() {
		assert.Equal(t, 100, available(t, store, recTulip)+sumReserved())
	}

	itemA, err := led.Reserve(ctx, floristA, marketA, recTulip, 25)
	require.NoError(t, err)
	checkConservation()

	_, err = led.Reserve(ctx, floristB, marketA, recTulip, 40)
	require.NoError(t, err)
	checkConservation()

	_, err = led.Reserve(ctx, floristA, marketA, recTulip, 50)
	assert.ErrorIs(t, err, ErrInsufficientAvailability)
	checkConservation()

	require.NoError(t, led.Release(ctx, itemA.ID))
	checkConservation()
}

func TestRelease_RoundTrip(t *testing.T) {
	store, led := newTestLedger(t)
	ctx := context.Background()

	item, err := led.Reserve(ctx, floristA, marketA, recTulip, 60)
	require.NoError(t, err)
	assert.Equal(t, 40, available(t, store, recTulip))

	require.NoError(t, led.Release(ctx, item.ID))
	assert.Equal(t, 100, available(t, store, recTulip))
	assert.Empty(t, store.OrderRequests())

	// Double-submit of a cart removal: still a success, still no side effects.
	require.NoError(t, led.Release(ctx, item.ID))
	assert.Equal(t, 100, available(t, store, recTulip))
}

func TestRelease_UnknownItemIsNoOp(t *testing.T) {
	store, led := newTestLedger(t)

	require.NoError(t, led.Release(context.Background(), "item-never-existed"))
	assert.Equal(t, 100, available(t, store, recTulip))
}

// Two florists working the same record: partial-fulfilment attempts are
// rejected whole, and a release reopens the pool.
func TestScenario_TwoFlorists(t *testing.T) {
	store, led := newTestLedger(t)
	ctx := context.Background()

	itemA, err := led.Reserve(ctx, floristA, marketA, recTulip, 60)
	require.NoError(t, err)
	assert.Equal(t, 40, available(t, store, recTulip))

	_, err = led.Reserve(ctx, floristB, marketA, recTulip, 50)
	assert.ErrorIs(t, err, ErrInsufficientAvailability)
	assert.Equal(t, 40, available(t, store, recTulip))

	_, err = led.Reserve(ctx, floristB, marketA, recTulip, 40)
	require.NoError(t, err)
	assert.Equal(t, 0, available(t, store, recTulip))

	require.NoError(t, led.Release(ctx, itemA.ID))
	assert.Equal(t, 60, available(t, store, recTulip))
	rows := store.OrderRequests()
	require.Len(t, rows, 1)
	assert.Equal(t, floristB, rows[0].UserID)
}

func TestReserve_ConcurrentOverAsk(t *testing.T) {
	store, led := newTestLedger(t)

	var mu sync.Mutex
	var errs []error

	var g errgroup.Group
	for _, florist := range []string{floristA, floristB} {
		florist := florist
		g.Go(func() error {
			_, err := led.Reserve(context.Background(), florist, marketA, recTulip, 60)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientAvailability):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 40, available(t, store, recTulip))
}

func TestListCart_JoinsDisplayData(t *testing.T) {
	_, led := newTestLedger(t)
	ctx := context.Background()

	_, err := led.Reserve(ctx, floristA, marketA, recTulip, 4)
	require.NoError(t, err)

	items, err := led.List(ctx, floristA, marketA)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "Tulip", items[0].FlowerName)
	assert.Equal(t, "Petal & Stem", items[0].GrowerName)
	assert.Equal(t, 250, items[0].PriceEachCents)
	assert.Equal(t, 4, items[0].Quantity)
	assert.Equal(t, 1000, items[0].SubtotalCents)
}

func TestCount_PerUserPerMarket(t *testing.T) {
	_, led := newTestLedger(t)
	ctx := context.Background()

	_, err := led.Reserve(ctx, floristA, marketA, recTulip, 2)
	require.NoError(t, err)
	_, err = led.Reserve(ctx, floristB, marketB, recDahlia, 2)
	require.NoError(t, err)

	n, err := led.Count(ctx, floristA, marketA)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = led.Count(ctx, floristA, marketB)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// failingStore simulates an infrastructure fault at the transaction boundary.
type failingStore struct {
	err error
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(Tx) error) error { return s.err }
func (s *failingStore) ListCart(ctx context.Context, userID, marketEventID string) ([]model.CartItem, error) {
	return nil, s.err
}
func (s *failingStore) CountCart(ctx context.Context, userID, marketEventID string) (int, error) {
	return 0, s.err
}

func TestReserve_InfrastructureErrorIsNotADomainError(t *testing.T) {
	infraErr := errors.New("connection reset")
	led := New(&failingStore{err: infraErr})

	_, err := led.Reserve(context.Background(), floristA, marketA, recTulip, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, infraErr)
	assert.NotErrorIs(t, err, ErrRecordNotFound)
	assert.NotErrorIs(t, err, ErrMarketMismatch)
	assert.NotErrorIs(t, err, ErrInsufficientAvailability)
}
