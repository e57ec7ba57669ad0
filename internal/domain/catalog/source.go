package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceProduct is an immutable snapshot of one product row read from the
// legacy store. It is never mutated after extraction; every run re-reads
// fresh rows.
type SourceProduct struct {
	ID           int
	Model        string
	SKU          string
	Quantity     int
	Price        decimal.Decimal
	SpecialPrice decimal.NullDecimal // lowest currently-active special, if any

	Name         string // raw, HTML-entity encoded
	Description  string // raw HTML
	Tags         string // comma-separated free text
	Manufacturer string
	TypeHint     string // free-text "type" attribute, may be empty

	// Display-only hints aggregated by the extractor. Authoritative category
	// membership comes from the product-to-category join table.
	CategoryNames   string // newline-joined
	CollectionNames string // newline-joined

	Image string // primary image, relative path

	Weight decimal.NullDecimal
	Length decimal.NullDecimal
	Width  decimal.NullDecimal
	Height decimal.NullDecimal

	DateAdded    time.Time
	DateModified time.Time
}

// EffectivePrice returns the currently-active special price when one exists,
// otherwise the base price.
func (p SourceProduct) EffectivePrice() decimal.Decimal {
	if p.SpecialPrice.Valid {
		return p.SpecialPrice.Decimal
	}
	return p.Price
}

// SourceCategory is one node of the legacy category tree. ParentID 0 means
// the node sits directly under the root.
type SourceCategory struct {
	ID          int
	ParentID    int
	Name        string
	Description string
}

// OptionGroup is a named product attribute ("Color") with its ordered values.
type OptionGroup struct {
	ID     int
	Name   string
	Type   string
	Values []OptionValue
}

// OptionValue is one setting of an option group. Quantity is a per-value
// stock ceiling that only applies when HasQuantity is set. PriceDelta is
// signed; SKU is an optional per-value override fragment.
type OptionValue struct {
	ID          int
	Name        string
	Quantity    int
	HasQuantity bool
	PriceDelta  decimal.Decimal
	SKU         string
}

// DedupedValues returns the group's values with duplicate display names
// collapsed onto their first occurrence; values whose decoded name is empty
// are dropped. Legacy option tables routinely carry repeated value rows, and
// a duplicated name would yield two variants with the same SKU. Variant
// generation and option definitions must work from the same value list or a
// nested create payload would carry variants the options do not declare.
func (g OptionGroup) DedupedValues() []OptionValue {
	seen := make(map[string]struct{}, len(g.Values))
	out := make([]OptionValue, 0, len(g.Values))
	for _, v := range g.Values {
		name := DecodeText(v.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, v)
	}
	return out
}
