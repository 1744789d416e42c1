package catalog

import (
	"strings"
)

// ResolveImages fills Image for every product: absolute photo URLs are kept,
// relative ones are served from <baseURL>/storage, missing ones get a placeholder.
func ResolveImages(baseURL string, products []Product) []Product {
	base := strings.TrimRight(baseURL, "/")
	out := make([]Product, len(products))
	for i, p := range products {
		switch {
		case p.Photo == "":
			p.Image = PlaceholderImage
		case strings.HasPrefix(p.Photo, "http"):
			p.Image = p.Photo
		default:
			p.Image = base + "/storage/" + strings.TrimPrefix(p.Photo, "/")
		}
		out[i] = p
	}
	return out
}

// WithAll prepends the AllCategories entry (id 0).
func WithAll(categories []Category) []Category {
	out := make([]Category, 0, len(categories)+1)
	out = append(out, Category{ID: 0, Name: AllCategories})
	return append(out, categories...)
}

// Filter returns the sellable products: in stock, in the selected category
// ("" or AllCategories selects everything) and whose name contains query.
func Filter(products []Product, category, query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Stock <= 0 {
			continue
		}
		if category != "" && category != AllCategories && p.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Search matches on product or category name and ignores stock; used by
// stock intake where empty products must stay selectable.
func Search(products []Product, query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
		}
	}
	return out
}

func ByID(products []Product, id int) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
