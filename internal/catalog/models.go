package catalog

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// AllCategories is the pseudo category shown first in the category bar.
const AllCategories = "Semua"

const PlaceholderImage = "https://via.placeholder.com/300x300.png?text=No+Image"

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Product as returned by GET /api/product/items. The backend is loose about
// types: ids, prices and stock can arrive as numbers or numeric strings, and
// category is either an embedded object or a bare name.
type Product struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	CategoryID int             `json:"id_category,omitempty"`
	Category   string          `json:"category,omitempty"`
	Photo      string          `json:"photo,omitempty"`
	Image      string          `json:"image,omitempty"`
}

func (p *Product) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID         json.RawMessage `json:"id"`
		Name       string          `json:"name"`
		Price      json.RawMessage `json:"price"`
		Stock      json.RawMessage `json:"stock"`
		CategoryID json.RawMessage `json:"id_category"`
		Category   json.RawMessage `json:"category"`
		Photo      string          `json:"photo"`
		Image      string          `json:"image"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Product{
		ID:         Int(raw.ID),
		Name:       raw.Name,
		Price:      Decimal(raw.Price),
		Stock:      Int(raw.Stock),
		CategoryID: Int(raw.CategoryID),
		Photo:      raw.Photo,
		Image:      raw.Image,
	}
	if len(raw.Category) > 0 {
		var c Category
		if err := json.Unmarshal(raw.Category, &c); err == nil {
			p.Category = c.Name
			if p.CategoryID == 0 {
				p.CategoryID = c.ID
			}
		} else {
			var name string
			if json.Unmarshal(raw.Category, &name) == nil {
				p.Category = name
			}
		}
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	return nil
}

// Int reads a JSON number or numeric string, yielding 0 when neither.
func Int(raw json.RawMessage) int {
	s := unquote(raw)
	if s == "" {
		return 0
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// Decimal reads a JSON number or numeric string, yielding zero when neither.
func Decimal(raw json.RawMessage) decimal.Decimal {
	s := unquote(raw)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func unquote(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(raw, &out); err != nil {
			return ""
		}
		return strings.TrimSpace(out)
	}
	return s
}
