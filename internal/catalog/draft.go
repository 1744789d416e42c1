package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Violations maps a form field to a short reason code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// ProductDraft is the product form. Photo holds the normalized JPEG, if any.
type ProductDraft struct {
	Name       string          `json:"name"`
	CategoryID int             `json:"id_category"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	Photo      []byte          `json:"-"`
}

func (d ProductDraft) Validate() Violations {
	v := Violations{}
	if strings.TrimSpace(d.Name) == "" {
		v["name"] = "required"
	}
	if d.CategoryID <= 0 {
		v["id_category"] = "required"
	}
	if d.Price.IsNegative() {
		v["price"] = "must_not_be_negative"
	}
	if d.Stock < 0 {
		v["stock"] = "must_not_be_negative"
	}
	return v
}

type CategoryDraft struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

func (d CategoryDraft) Validate() Violations {
	v := Violations{}
	if strings.TrimSpace(d.Name) == "" {
		v["name"] = "required"
	}
	return v
}
