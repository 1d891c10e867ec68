package order

import (
	"time"

	"github.com/seoulglow/kbeauty-store/internal/domain/money"
	"github.com/seoulglow/kbeauty-store/internal/domain/product"
)

// Payment info is synthesized: checkout only reaches an order once the
// hosted session has been paid by card.
const (
	paymentMethod = "Credit Card"
	paymentStatus = "Paid"
)

// View is the single-order projection with plain numeric money fields and
// a synthesized payment block.
type View struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Status          Status          `json:"status"`
	TotalAmount     float64         `json:"totalAmount"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	StripeSessionID string          `json:"stripeSessionId"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	User            *UserView       `json:"user"`
	Items           []ItemView      `json:"items"`
	PaymentInfo     PaymentInfo     `json:"paymentInfo"`
}

// ListView is the order-list projection. Dates are pre-formatted as RFC 3339.
type ListView struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Status          Status          `json:"status"`
	TotalAmount     float64         `json:"totalAmount"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	StripeSessionID string          `json:"stripeSessionId"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
	User            *UserView       `json:"user"`
	Items           []ItemView      `json:"items"`
}

// UserView is the customer block embedded in order projections.
type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ItemView is a line item with its resolved product.
type ItemView struct {
	ID        string        `json:"id"`
	ProductID string        `json:"productId"`
	Quantity  int           `json:"quantity"`
	Price     float64       `json:"price"`
	Subtotal  float64       `json:"subtotal"`
	Product   *product.View `json:"product"`
}

// PaymentInfo summarizes how the order was paid.
type PaymentInfo struct {
	PaymentID   string    `json:"paymentId"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	PaymentDate time.Time `json:"paymentDate"`
}

// NewView builds the single-order projection of o.
func NewView(o *Order, imageBaseURL string) View {
	return View{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		TotalAmount:     money.Float(o.TotalAmount),
		ShippingAddress: o.ShippingAddress,
		StripeSessionID: o.StripeSessionID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		User:            newUserView(o),
		Items:           newItemViews(o.Items, imageBaseURL),
		PaymentInfo: PaymentInfo{
			PaymentID:   o.StripeSessionID,
			Method:      paymentMethod,
			Status:      paymentStatus,
			PaymentDate: o.CreatedAt,
		},
	}
}

// NewListView builds the list projection of each order, preserving order.
func NewListView(orders []Order, imageBaseURL string) []ListView {
	out := make([]ListView, len(orders))
	for i := range orders {
		o := &orders[i]
		out[i] = ListView{
			ID:              o.ID,
			UserID:          o.UserID,
			Status:          o.Status,
			TotalAmount:     money.Float(o.TotalAmount),
			ShippingAddress: o.ShippingAddress,
			StripeSessionID: o.StripeSessionID,
			CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:       o.UpdatedAt.UTC().Format(time.RFC3339),
			User:            newUserView(o),
			Items:           newItemViews(o.Items, imageBaseURL),
		}
	}
	return out
}

func newUserView(o *Order) *UserView {
	if o.User == nil {
		return nil
	}
	return &UserView{ID: o.User.ID, Name: o.User.Name, Email: o.User.Email}
}

func newItemViews(items []Item, imageBaseURL string) []ItemView {
	out := make([]ItemView, len(items))
	for i, it := range items {
		v := ItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     money.Float(it.Price),
			Subtotal:  money.Float(money.Mul(it.Price, it.Quantity)),
		}
		if it.Product != nil {
			pv := product.NewView(*it.Product, imageBaseURL)
			v.Product = &pv
		}
		out[i] = v
	}
	return out
}
