package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/backyard-flora/florahub/internal/model"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests. Transactions serialize on
// one mutex; rollback restores a snapshot taken at transaction start, so a
// failed reservation leaves no partial state, matching the Postgres store.
type MemoryStore struct {
	mu      sync.Mutex
	lists   map[string]model.InventoryList
	records map[string]model.InventoryRecord
	items   map[string]model.OrderRequestItem
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists:   make(map[string]model.InventoryList),
		records: make(map[string]model.InventoryRecord),
		items:   make(map[string]model.OrderRequestItem),
	}
}

// AddList seeds a grower's inventory list.
func (s *MemoryStore) AddList(list model.InventoryList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[list.ID] = list
}

// AddRecord seeds an inventory record. Its list must already be present for
// market resolution to work.
func (s *MemoryStore) AddRecord(rec model.InventoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

// Record returns a copy of an inventory record for assertions.
func (s *MemoryStore) Record(id string) (model.InventoryRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

// OrderRequests returns copies of all order request rows, for assertions.
func (s *MemoryStore) OrderRequests() []model.OrderRequestItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OrderRequestItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WithinTx holds the store lock for the whole transaction and restores the
// pre-transaction snapshot when fn fails.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordsBefore := cloneMap(s.records)
	itemsBefore := cloneMap(s.items)

	if err := fn(&memTx{s: s}); err != nil {
		s.records = recordsBefore
		s.items = itemsBefore
		return err
	}
	return nil
}

// ListCart returns the joined cart view, ordered by creation time.
func (s *MemoryStore) ListCart(ctx context.Context, userID, marketEventID string) ([]model.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []model.OrderRequestItem
	for _, it := range s.items {
		if it.UserID == userID && it.MarketEventID == marketEventID {
			rows = append(rows, it)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })

	var out []model.CartItem
	for _, it := range rows {
		rec := s.records[it.InventoryRecordID]
		list := s.lists[rec.InventoryListID]
		out = append(out, model.CartItem{
			ItemID:            it.ID,
			InventoryRecordID: it.InventoryRecordID,
			FlowerName:        rec.FlowerName,
			GrowerName:        list.GrowerName,
			PriceEachCents:    rec.PriceEachCents,
			Quantity:          it.Quantity,
			SubtotalCents:     rec.PriceEachCents * it.Quantity,
		})
	}
	return out, nil
}

// CountCart returns the number of order request rows for the user/market pair.
func (s *MemoryStore) CountCart(ctx context.Context, userID, marketEventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		if it.UserID == userID && it.MarketEventID == marketEventID {
			n++
		}
	}
	return n, nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memTx operates directly on the store maps; the store lock is already held.
type memTx struct {
	s *MemoryStore
}

func (t *memTx) InventoryForUpdate(ctx context.Context, recordID string) (*model.InventoryRecord, string, error) {
	rec, ok := t.s.records[recordID]
	if !ok {
		return nil, "", ErrRecordNotFound
	}
	list := t.s.lists[rec.InventoryListID]
	return &rec, list.MarketEventID, nil
}

func (t *memTx) AdjustAvailable(ctx context.Context, recordID string, delta int) error {
	rec, ok := t.s.records[recordID]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Available += delta
	t.s.records[recordID] = rec
	return nil
}

func (t *memTx) UpsertOrderRequest(ctx context.Context, userID, marketEventID, recordID string, quantity int) (*model.OrderRequestItem, error) {
	now := time.Now().UTC()
	for id, it := range t.s.items {
		if it.UserID == userID && it.MarketEventID == marketEventID && it.InventoryRecordID == recordID {
			it.Quantity += quantity
			it.UpdatedAt = now
			t.s.items[id] = it
			return &it, nil
		}
	}
	item := model.OrderRequestItem{
		ID:                uuid.New().String(),
		UserID:            userID,
		MarketEventID:     marketEventID,
		InventoryRecordID: recordID,
		Quantity:          quantity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	t.s.items[item.ID] = item
	return &item, nil
}

func (t *memTx) OrderRequest(ctx context.Context, itemID string) (*model.OrderRequestItem, error) {
	it, ok := t.s.items[itemID]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (t *memTx) DeleteOrderRequest(ctx context.Context, itemID string) error {
	delete(t.s.items, itemID)
	return nil
}
