package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seoulglow/kbeauty-store/internal/domain/auth"
	"github.com/seoulglow/kbeauty-store/internal/domain/product"
)

// Order is a customer purchase record with a lifecycle status.
type Order struct {
	ID              string
	UserID          string
	Status          Status
	TotalAmount     decimal.Decimal
	ShippingAddress ShippingAddress
	StripeSessionID string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Resolved relations. Populated by Repository.Get and Repository.List.
	User  *auth.User
	Items []Item
}

// ShippingAddress is stored serialized as JSON text on the order row.
type ShippingAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Item is a line item snapshot. Price is the unit price at the time of
// purchase, so later catalog price edits do not change historical orders.
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	Price     decimal.Decimal

	Product *product.Product
}

// ListFilter narrows Repository.List. An empty UserID lists every order.
type ListFilter struct {
	UserID string
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Get returns the order with its user and items-with-product resolved.
	// Returns ErrNotFound when no order has the given id.
	Get(ctx context.Context, id string) (*Order, error)
	// List returns orders with relations resolved, newest first.
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	// UpdateStatus sets the status to `to` only if it is still `from` and
	// returns the new update timestamp. Returns ErrNotFound when the order is
	// gone and ErrConcurrentUpdate when its status changed in between.
	UpdateStatus(ctx context.Context, id string, from, to Status) (time.Time, error)
}
