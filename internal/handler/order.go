package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/seoulglow/kbeauty-store/internal/cache"
	"github.com/seoulglow/kbeauty-store/internal/domain/order"
)

const maxBodyBytes = 1 << 16

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus handles PATCH /api/admin/orders/{id}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := SessionFromContext(r.Context())
	res, err := h.orders.UpdateStatus(r.Context(), sess, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// AdminGetOrder handles GET /api/admin/orders/{id}.
func (h *Handler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.getOrder(w, r, "/admin/orders/"+id, "", id)
}

// AdminListOrders handles GET /api/admin/orders.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, "/admin/orders", "")
}

// AccountGetOrder handles GET /api/account/orders/{id}.
func (h *Handler) AccountGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.getOrder(w, r, "/account/orders/"+id, SessionFromContext(r.Context()).UserID, id)
}

// AccountListOrders handles GET /api/account/orders.
func (h *Handler) AccountListOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, "/account/orders", SessionFromContext(r.Context()).UserID)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, path, variant, id string) {
	var cached order.View
	lease, hit := h.load(r, path, variant, &cached)
	if hit {
		writeJSON(w, r, http.StatusOK, cached)
		return
	}
	v, err := h.orders.Get(r.Context(), SessionFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.save(r, lease, v)
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, path, variant string) {
	var cached []order.ListView
	lease, hit := h.load(r, path, variant, &cached)
	if hit {
		writeJSON(w, r, http.StatusOK, cached)
		return
	}
	list, err := h.orders.List(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.save(r, lease, list)
	writeJSON(w, r, http.StatusOK, list)
}

// viewLease remembers what a cache miss observed so the computed view is
// stored only if nothing revalidated the path meanwhile.
type viewLease struct {
	path    string
	variant string
	gen     int64
	ok      bool
}

// load and save treat the view cache as optional: failures fall back to
// the service and are only logged.
func (h *Handler) load(r *http.Request, path, variant string, dst any) (viewLease, bool) {
	gen, hit, err := h.views.Load(r.Context(), path, variant, dst)
	if err != nil {
		zctx.From(r.Context()).Warn("Load cached view", zap.String("path", path), zap.Error(err))
		return viewLease{}, false
	}
	return viewLease{path: path, variant: variant, gen: gen, ok: true}, hit
}

func (h *Handler) save(r *http.Request, lease viewLease, view any) {
	if !lease.ok {
		return
	}
	err := h.views.Save(r.Context(), lease.path, lease.variant, lease.gen, view)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrStale):
		zctx.From(r.Context()).Debug("Cached view revalidated during read", zap.String("path", lease.path))
	default:
		zctx.From(r.Context()).Warn("Save cached view", zap.String("path", lease.path), zap.Error(err))
	}
}
