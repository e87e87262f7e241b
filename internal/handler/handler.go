// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/backyard-flora/florahub/internal/ledger"
	"github.com/backyard-flora/florahub/internal/model"
	"github.com/backyard-flora/florahub/internal/repository"
	"github.com/backyard-flora/florahub/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// FloristHeader carries the acting florist's identity, injected by the
// session layer in front of this service.
const FloristHeader = "X-Florist-ID"

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Market handlers ──────────────────────────────────────────────────────────

// MarketHandler holds HTTP handlers for market events and grower inventory.
type MarketHandler struct {
	svc *service.MarketService
}

// NewMarketHandler constructs a MarketHandler.
func NewMarketHandler(svc *service.MarketService) *MarketHandler {
	return &MarketHandler{svc: svc}
}

// CreateMarket handles POST /markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req model.CreateMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	market, err := h.svc.CreateMarket(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, market)
}

// ListMarkets handles GET /markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.svc.ListMarkets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}
	if markets == nil {
		markets = []model.MarketEvent{}
	}
	writeJSON(w, http.StatusOK, markets)
}

// GetMarket handles GET /markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	market, err := h.svc.GetMarket(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// SubmitInventory handles POST /markets/{id}/inventory
func (h *MarketHandler) SubmitInventory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.SubmitInventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	list, records, err := h.svc.SubmitInventory(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"list":    list,
		"records": records,
	})
}

// ListInventory handles GET /markets/{id}/inventory
func (h *MarketHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	offers, err := h.svc.ListInventory(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list inventory")
		return
	}
	if offers == nil {
		offers = []model.InventoryOffer{}
	}
	writeJSON(w, http.StatusOK, offers)
}

// ─── Cart handlers ────────────────────────────────────────────────────────────

// CartHandler holds HTTP handlers for florist cart operations.
type CartHandler struct {
	svc *service.CartService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func floristID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(FloristHeader)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing florist identity")
		return "", false
	}
	return id, true
}

// Reserve handles POST /markets/{id}/cart
// Adds stems to the acting florist's cart, decrementing availability atomically.
func (h *CartHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "id")
	florist, ok := floristID(w, r)
	if !ok {
		return
	}

	var req model.ReserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.Reserve(r.Context(), florist, marketID, req)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrRecordNotFound):
			writeError(w, http.StatusNotFound, "item unavailable")
		case errors.Is(err, ledger.ErrMarketMismatch):
			// Stale client state; the detail stays internal.
			writeError(w, http.StatusConflict, "something went wrong with this order")
		case errors.Is(err, ledger.ErrInsufficientAvailability):
			writeError(w, http.StatusConflict, "quantity no longer available, please adjust")
		default:
			log.Error().Err(err).Str("market_event_id", marketID).Msg("reserve failed")
			writeError(w, http.StatusInternalServerError, "failed to add to cart, please try again")
		}
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Release handles DELETE /cart/items/{itemID}
// Removing an already-removed item is a success, not an error.
func (h *CartHandler) Release(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	if err := h.svc.Release(r.Context(), itemID); err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("release failed")
		writeError(w, http.StatusInternalServerError, "failed to remove from cart, please try again")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCart handles GET /markets/{id}/cart
func (h *CartHandler) ListCart(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "id")
	florist, ok := floristID(w, r)
	if !ok {
		return
	}

	items, err := h.svc.ListCart(r.Context(), florist, marketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	if items == nil {
		items = []model.CartItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CountCart handles GET /markets/{id}/cart/count
func (h *CartHandler) CountCart(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "id")
	florist, ok := floristID(w, r)
	if !ok {
		return
	}

	n, err := h.svc.CountCart(r.Context(), florist, marketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count cart")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
