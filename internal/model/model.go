// Package model defines the core domain types for the flora collective marketplace.
package model

import "time"

// MarketEvent is a single scheduled marketplace occurrence tying growers'
// inventory to florists' ordering window.
type MarketEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
}

// InventoryList is one grower's submission of offered stems for one market event.
// Inventory records locate their market event through their list.
type InventoryList struct {
	ID            string    `json:"id"`
	MarketEventID string    `json:"market_event_id"`
	GrowerID      string    `json:"grower_id"`
	GrowerName    string    `json:"grower_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// InventoryRecord is a grower's offer of one catalog item at one market event.
// Available is the remaining unreserved quantity; it only moves through the
// reservation ledger and stays within [0, Quantity].
type InventoryRecord struct {
	ID              string    `json:"id"`
	InventoryListID string    `json:"inventory_list_id"`
	FlowerName      string    `json:"flower_name"`
	Quantity        int       `json:"quantity"`
	Available       int       `json:"available"`
	PriceEachCents  int       `json:"price_each_cents"`
	CreatedAt       time.Time `json:"created_at"`
}

// Reserved returns how many stems of this record are currently spoken for.
func (r *InventoryRecord) Reserved() int {
	return r.Quantity - r.Available
}

// OrderRequestItem is a florist's aggregate reservation against one inventory
// record at one market event. Repeated requests accumulate into the same row;
// (UserID, MarketEventID, InventoryRecordID) is unique.
type OrderRequestItem struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	MarketEventID     string    `json:"market_event_id"`
	InventoryRecordID string    `json:"inventory_record_id"`
	Quantity          int       `json:"quantity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CartItem is the joined view of an order request rendered in a florist's cart.
type CartItem struct {
	ItemID            string `json:"item_id"`
	InventoryRecordID string `json:"inventory_record_id"`
	FlowerName        string `json:"flower_name"`
	GrowerName        string `json:"grower_name"`
	PriceEachCents    int    `json:"price_each_cents"`
	Quantity          int    `json:"quantity"`
	SubtotalCents     int    `json:"subtotal_cents"`
}

// InventoryOffer is the joined view of an inventory record shown when a
// florist browses a market's offerings.
type InventoryOffer struct {
	InventoryRecordID string `json:"inventory_record_id"`
	FlowerName        string `json:"flower_name"`
	GrowerName        string `json:"grower_name"`
	PriceEachCents    int    `json:"price_each_cents"`
	Available         int    `json:"available"`
}

// CreateMarketRequest is the payload for scheduling a new market event.
type CreateMarketRequest struct {
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
}

// InventoryRecordInput is one offered line in a grower's inventory submission.
type InventoryRecordInput struct {
	FlowerName     string `json:"flower_name"`
	Quantity       int    `json:"quantity"`
	PriceEachCents int    `json:"price_each_cents"`
}

// SubmitInventoryRequest is the payload for a grower listing stems at a market.
type SubmitInventoryRequest struct {
	GrowerID   string                 `json:"grower_id"`
	GrowerName string                 `json:"grower_name"`
	Records    []InventoryRecordInput `json:"records"`
}

// ReserveRequest is the payload for adding stems to a florist's cart.
type ReserveRequest struct {
	InventoryRecordID string `json:"inventory_record_id"`
	Quantity          int    `json:"quantity"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
