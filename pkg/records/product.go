package records

import (
	"time"

	"mercator-hq/ledger/pkg/filter"
)

// Product is a catalogue item.
type Product struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Stock     int64     `json:"stock"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Product fields.
var (
	ProductID        = filter.NewField("id", "id", func(p *Product) string { return p.ID })
	ProductSKU       = filter.NewField("sku", "sku", func(p *Product) string { return p.SKU })
	ProductName      = filter.NewTextField("name", "name", func(p *Product) string { return p.Name })
	ProductCategory  = filter.NewField("category", "category", func(p *Product) string { return p.Category })
	ProductPrice     = filter.NewField("price", "price", func(p *Product) float64 { return p.Price })
	ProductStock     = filter.NewField("stock", "stock", func(p *Product) int64 { return p.Stock })
	ProductActive    = filter.NewField("active", "active", func(p *Product) bool { return p.Active })
	ProductCreatedAt = filter.NewDateField("created_at", "created_at", func(p *Product) time.Time { return p.CreatedAt })
)

// ProductKind describes products. Listings default to newest first.
var ProductKind = NewKind("products", ProductID,
	func(p *Product, id string) { p.ID = id },
	[]filter.Order[Product]{ProductCreatedAt.Desc()},
	ProductID.Ref(), ProductSKU.Ref(), ProductName.Ref(), ProductCategory.Ref(),
	ProductPrice.Ref(), ProductStock.Ref(), ProductActive.Ref(), ProductCreatedAt.Ref(),
)

// ProductCriteria is the sparse filter for product listings.
type ProductCriteria struct {
	SKU          *string    `json:"sku,omitempty"`
	Name         *string    `json:"name,omitempty"`
	Categories   []string   `json:"categories,omitempty"`
	MinPrice     *float64   `json:"min_price,omitempty"`
	MaxPrice     *float64   `json:"max_price,omitempty"`
	MinStock     *int64     `json:"min_stock,omitempty"`
	MaxStock     *int64     `json:"max_stock,omitempty"`
	Active       *bool      `json:"active,omitempty"`
	CreatedFrom  *time.Time `json:"created_from,omitempty"`
	CreatedUntil *time.Time `json:"created_until,omitempty"`
}

// Compile maps the criteria to a composite; date bounds widen in loc.
func (c ProductCriteria) Compile(loc *time.Location) filter.Composite[Product] {
	return filter.NewCompiler[Product](loc).
		Add(ProductSKU.Equals(c.SKU)).
		Add(ProductName.Contains(c.Name)).
		Add(ProductCategory.In(c.Categories)).
		Add(ProductPrice.Between(c.MinPrice, c.MaxPrice)).
		Add(ProductStock.Between(c.MinStock, c.MaxStock)).
		Add(ProductActive.Equals(c.Active)).
		Add(ProductCreatedAt.Between(c.CreatedFrom, c.CreatedUntil)).
		Build()
}
