package catalog

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
}

type Product struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	Brand      string          `json:"brand" db:"brand"`
	CategoryID uuid.UUID       `json:"category_id" db:"category_id"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Quantity   int             `json:"quantity" db:"quantity"`
}

// ProductView is the read-facing product shape: the category name is joined
// in at read time so the presentation layer needs no second lookup.
type ProductView struct {
	Product
	CategoryName string `json:"category_name" db:"category_name"`
}

// ProductFilter holds the optional predicates for product search.
// Absent fields impose no constraint; present fields are ANDed.
type ProductFilter struct {
	Name         string
	Brand        string
	CategoryName string // exact match, case-insensitive
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	MinQuantity  *int
	MaxQuantity  *int
}
