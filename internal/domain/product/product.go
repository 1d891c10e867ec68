package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID            string
	Name          string
	Brand         string
	Price         decimal.Decimal
	Images        []string
	Category      string
	Stock         int
	IsVegan       bool
	IsCrueltyFree bool
}

// Validate checks the fields a catalog entry must carry before it is stored.
func (p Product) Validate() error {
	switch {
	case p.ID == "":
		return errors.New("product id required")
	case p.Name == "":
		return errors.Errorf("product %s: name required", p.ID)
	case p.Brand == "":
		return errors.Errorf("product %s: brand required", p.ID)
	case !p.Price.IsPositive():
		return errors.Errorf("product %s: price must be greater than 0", p.ID)
	case p.Stock < 0:
		return errors.Errorf("product %s: stock must not be negative", p.ID)
	}
	return nil
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
