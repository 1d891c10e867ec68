// Package handler exposes the catalog, customer account and back-office
// order operations over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/seoulglow/kbeauty-store/internal/domain/auth"
	"github.com/seoulglow/kbeauty-store/internal/domain/order"
	"github.com/seoulglow/kbeauty-store/internal/domain/product"
	"github.com/seoulglow/kbeauty-store/pkg/httpmiddleware"
)

// OrderService is the order workflow used by the handlers.
type OrderService interface {
	UpdateStatus(ctx context.Context, sess auth.Session, orderID, status string) (*order.UpdateResult, error)
	Get(ctx context.Context, sess auth.Session, id string) (*order.View, error)
	List(ctx context.Context, sess auth.Session) ([]order.ListView, error)
}

// ViewCache stores rendered order views per path and variant. Save is
// given the generation returned by the preceding Load and refuses the view
// if the path was revalidated in between.
type ViewCache interface {
	Load(ctx context.Context, path, variant string, dst any) (int64, bool, error)
	Save(ctx context.Context, path, variant string, gen int64, view any) error
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the HTTP API, delegating business logic to the order
// service and product repository.
type Handler struct {
	products     product.Repository
	orders       OrderService
	views        ViewCache
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	orders OrderService,
	views ViewCache,
) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		views:        views,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Mount registers the API routes on r under /api.
func (h *Handler) Mount(r chi.Router, sec *SecurityHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
			sec.Authenticate,
		)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.AdminListOrders)
			r.Get("/{id}", h.AdminGetOrder)
			r.Patch("/{id}/status", h.UpdateOrderStatus)
		})

		r.Route("/account/orders", func(r chi.Router) {
			r.Use(RequireSession)
			r.Get("/", h.AccountListOrders)
			r.Get("/{id}", h.AccountGetOrder)
		})
	})
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Debug("Write response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}
