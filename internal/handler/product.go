package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seoulglow/kbeauty-store/internal/domain/product"
)

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]product.View, len(products))
	for i, p := range products {
		out[i] = product.NewView(p, h.imageBaseURL)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, product.NewView(*p, h.imageBaseURL))
}
