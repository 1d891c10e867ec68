package product

import (
	"strings"

	"github.com/seoulglow/kbeauty-store/internal/domain/money"
)

// View is the presentation shape of a product with a plain numeric price.
type View struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Brand         string   `json:"brand"`
	Price         float64  `json:"price"`
	Images        []string `json:"images"`
	Category      string   `json:"category"`
	Stock         int      `json:"stock"`
	IsVegan       bool     `json:"isVegan"`
	IsCrueltyFree bool     `json:"isCrueltyFree"`
}

// NewView builds the presentation shape of p. Relative image paths are
// prefixed with imageBaseURL; absolute URLs are kept as stored.
func NewView(p Product, imageBaseURL string) View {
	images := make([]string, len(p.Images))
	for i, img := range p.Images {
		if strings.Contains(img, "://") {
			images[i] = img
			continue
		}
		images[i] = imageBaseURL + img
	}
	return View{
		ID:            p.ID,
		Name:          p.Name,
		Brand:         p.Brand,
		Price:         money.Float(p.Price),
		Images:        images,
		Category:      p.Category,
		Stock:         p.Stock,
		IsVegan:       p.IsVegan,
		IsCrueltyFree: p.IsCrueltyFree,
	}
}
