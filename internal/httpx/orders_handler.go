package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/bagstore/internal/auth"
	"github.com/ariefcatur/bagstore/internal/inventory"
	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/ariefcatur/bagstore/internal/placement"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// IdempotencyCache is the Redis fast path for Idempotency-Key replays. The ledger stays authoritative.
type IdempotencyCache interface {
	Lookup(ctx context.Context, buyerID, key string) (string, bool, error)
	Remember(ctx context.Context, buyerID, key, orderID string) error
}

// OrdersHandler serves the buyer-facing routes.
type OrdersHandler struct {
	Placement *placement.Service
	Inventory *inventory.Service
	Idem      IdempotencyCache // optional
	Log       *zap.Logger
}

type placeOrderReq struct {
	ProductID string      `json:"product_id"`
	Quantity  json.Number `json:"quantity"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.myOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/profile", h.saveProfile)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	ps, err := h.Inventory.ListCatalog(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var body placeOrderReq
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	who := auth.FromContext(r.Context())
	qty, _ := wholeNumber(body.Quantity) // non-integers become 0 and are rejected as InvalidQuantity
	req := placement.Request{
		ProductID:      body.ProductID,
		Quantity:       qty,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	}

	ctx, cancel := withTimeout(r, 5*time.Second)
	defer cancel()

	if h.Idem != nil && req.IdempotencyKey != "" && who.Authenticated() {
		if id, ok, err := h.Idem.Lookup(ctx, who.UserID, req.IdempotencyKey); err == nil && ok {
			if o, err := h.Placement.GetOrder(ctx, who, id); err == nil && placement.SameRequest(o, req) {
				writeJSON(w, http.StatusOK, o)
				return
			}
		} else if err != nil {
			h.Log.Warn("idempotency cache lookup", zap.Error(err))
		}
	}

	o, err := h.Placement.PlaceOrder(ctx, who, req)
	if err != nil {
		h.logServerError(r, err)
		writeError(w, err)
		return
	}
	if h.Idem != nil && req.IdempotencyKey != "" {
		if err := h.Idem.Remember(ctx, who.UserID, req.IdempotencyKey, o.ID); err != nil {
			h.Log.Warn("idempotency cache write", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	hist, err := h.Placement.BuyerOrders(ctx, auth.FromContext(r.Context()))
	if err != nil {
		h.logServerError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	o, err := h.Placement.GetOrder(ctx, auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) saveProfile(w http.ResponseWriter, r *http.Request) {
	var in placement.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	p, err := h.Placement.SaveProfile(ctx, auth.FromContext(r.Context()), in)
	if err != nil {
		h.logServerError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *OrdersHandler) logServerError(r *http.Request, err error) {
	if orders.KindOf(err) == orders.KindStoreUnavailable {
		h.Log.Error("store unavailable",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
}
