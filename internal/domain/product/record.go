package product

import "github.com/shopspring/decimal"

// Record is the JSON shape of a catalog entry in seed files and supplier feeds.
type Record struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Price         decimal.Decimal `json:"price"`
	Images        []string        `json:"images"`
	Category      string          `json:"category"`
	Stock         int             `json:"stock"`
	IsVegan       bool            `json:"isVegan"`
	IsCrueltyFree bool            `json:"isCrueltyFree"`
}

// Product converts r into a Product.
func (r Record) Product() Product {
	return Product{
		ID:            r.ID,
		Name:          r.Name,
		Brand:         r.Brand,
		Price:         r.Price,
		Images:        r.Images,
		Category:      r.Category,
		Stock:         r.Stock,
		IsVegan:       r.IsVegan,
		IsCrueltyFree: r.IsCrueltyFree,
	}
}
