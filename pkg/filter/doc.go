// Package filter compiles sparse, per-request filter criteria into an ordered
// conjunction of typed predicates.
//
// # Fields
//
// Every filterable attribute of an entity is declared once as a typed field:
//
//	var ProductPrice = filter.NewField("price", "price", func(p *Product) float64 { return p.Price })
//	var ProductName  = filter.NewTextField("name", "name", func(p *Product) string { return p.Name })
//	var ProductAdded = filter.NewDateField("created_at", "created_at", func(p *Product) time.Time { return p.CreatedAt })
//
// A field knows its entity type and value type, so a predicate over a product
// field cannot be applied to users and a price bound cannot be a string.
//
// # Compiling
//
// Field operators take optional inputs and return a Clause. A clause built
// from an absent input (nil pointer, blank text, empty slice) is empty and the
// compiler drops it:
//
//	composite := filter.NewCompiler[Product](loc).
//		Add(ProductName.Contains(criteria.Name)).
//		Add(ProductPrice.Between(criteria.MinPrice, criteria.MaxPrice)).
//		Add(ProductAdded.Between(criteria.From, criteria.To)).
//		Build()
//
// Compiler values are immutable; Add returns a new compiler and Build may be
// called any number of times. An empty Composite matches every record.
//
// # Date ranges
//
// DateField.Between widens the lower bound to the start of its calendar day and
// the upper bound to 23:59:59.999 of its calendar day, both in the compiler's
// location. Reversed bounds are swapped before widening.
package filter
