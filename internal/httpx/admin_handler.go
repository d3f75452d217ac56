package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/bagstore/internal/admin"
	"github.com/ariefcatur/bagstore/internal/auth"
	"github.com/ariefcatur/bagstore/internal/inventory"
	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves /admin. Every route is staff-only; the services enforce it.
type AdminHandler struct {
	Admin     *admin.Service
	Inventory *inventory.Service
	Log       *zap.Logger
}

type countResp struct {
	Count int `json:"count"`
}

type markedResp struct {
	Marked int `json:"marked"`
}

type statusReq struct {
	Status orders.Status `json:"status"`
}

type quantityReq struct {
	Quantity json.Number `json:"quantity"`
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/orders", h.listOrders)
		r.Get("/orders/unnotified/count", h.countUnnotified)
		r.Post("/orders/notified", h.markNotified)
		r.Post("/orders/{id}/status", h.advanceStatus)
		r.Get("/alerts", h.alerts)

		r.Post("/products", h.createProduct)
		r.Patch("/products/{id}", h.updateProduct)
		r.Put("/products/{id}/quantity", h.setQuantity)
		r.Delete("/products/{id}", h.deleteProduct)
	})
}

func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if orders.KindOf(err) == orders.KindStoreUnavailable || orders.KindOf(err) == "" {
		h.Log.Error("admin request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, err)
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 5*time.Second)
	defer cancel()

	list, err := h.Admin.ListOrders(ctx, auth.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) countUnnotified(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	n, err := h.Admin.CountUnnotified(ctx, auth.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResp{Count: n})
}

func (h *AdminHandler) markNotified(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 5*time.Second)
	defer cancel()

	n, err := h.Admin.MarkAllUnnotifiedAsNotified(ctx, auth.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, markedResp{Marked: n})
}

func (h *AdminHandler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	o, err := h.Admin.AdvanceStatus(ctx, auth.FromContext(r.Context()), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) alerts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	list, err := h.Admin.RecentAlerts(ctx, auth.FromContext(r.Context()), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var np orders.NewProduct
	if err := decodeJSON(r, &np); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	p, err := h.Inventory.CreateProduct(ctx, auth.FromContext(r.Context()), np)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch orders.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	p, err := h.Inventory.UpdateProduct(ctx, auth.FromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	n, ok := wholeNumber(req.Quantity)
	if !ok {
		n = -1 // rejected as InvalidQuantity after the staff check
	}
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	p, err := h.Inventory.SetQuantity(ctx, auth.FromContext(r.Context()), chi.URLParam(r, "id"), n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders.ViewOf(p))
}

func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 3*time.Second)
	defer cancel()

	if err := h.Inventory.DeleteProduct(ctx, auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
