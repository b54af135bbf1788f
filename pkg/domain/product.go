package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus marks whether a product is visible in the storefront.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

// Product is a stocked catalog item. Stock is mutated only by checkout,
// cancellation restock and explicit restock operations, always under the
// product's entity lock.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Status      ProductStatus   `json:"status"`
	Category    string          `json:"category"`
	Sold        int             `json:"sold"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Purchasable reports whether the product can be added to a cart.
func (p *Product) Purchasable() bool {
	return p.Status == ProductActive && p.Stock > 0
}
