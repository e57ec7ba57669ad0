package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultOptionTitle is the synthetic option attached to single-variant
// products so the target platform's variant-requires-an-option rule holds.
const DefaultOptionTitle = "Default"

// fallbackSKUPrefix seeds generated SKUs for products that carry neither a
// model nor a SKU of their own.
const fallbackSKUPrefix = "LEG"

// VariantDraft is the ephemeral, not-yet-persisted form of one purchasable
// unit. PriceMinor is in integer minor currency units. SalePriceMinor is set
// only when the product carries a currently-active special price; it is
// posted in a separate price-list phase after the variant exists.
type VariantDraft struct {
	Title          string
	SKU            string
	PriceMinor     int64
	SalePriceMinor *int64
	Quantity       int
	Options        map[string]string // group title -> chosen value name

	Weight decimal.NullDecimal
	Length decimal.NullDecimal
	Width  decimal.NullDecimal
	Height decimal.NullDecimal
}

// BuildVariants expands a product's active option groups into the full
// cartesian set of variant drafts. Group order is preserved; the first group
// varies slowest. With no active groups the product is single-variant with
// the synthetic default option.
//
// SKU generation is a pure function of (base SKU, ordered chosen values) so
// repeated runs regenerate byte-identical SKUs; reconciliation on the target
// platform matches variants by SKU and depends on that determinism.
func BuildVariants(p SourceProduct, groups []OptionGroup) []VariantDraft {
	active := make([]OptionGroup, 0, len(groups))
	for _, g := range groups {
		if vals := g.DedupedValues(); len(vals) > 0 {
			g.Values = vals
			active = append(active, g)
		}
	}

	if len(active) == 0 {
		d := VariantDraft{
			Title:      DefaultOptionTitle,
			SKU:        baseSKU(p, nil),
			PriceMinor: ToMinorUnits(p.EffectivePrice()),
			Quantity:   p.Quantity,
			Options:    map[string]string{DefaultOptionTitle: DefaultOptionTitle},
		}
		d.SalePriceMinor = saleMinor(p, nil)
		inheritDimensions(&d, p)
		return []VariantDraft{d}
	}

	combos := cartesian(active)
	drafts := make([]VariantDraft, 0, len(combos))
	for _, chosen := range combos {
		price := p.EffectivePrice()
		quantity := p.Quantity
		names := make([]string, len(chosen))
		options := make(map[string]string, len(chosen))

		for i, v := range chosen {
			price = price.Add(v.PriceDelta)
			if v.HasQuantity && v.Quantity < quantity {
				quantity = v.Quantity
			}
			names[i] = DecodeText(v.Name)
			options[DecodeText(active[i].Name)] = names[i]
		}

		d := VariantDraft{
			Title:      strings.Join(names, " / "),
			SKU:        variantSKU(baseSKU(p, chosen), names),
			PriceMinor: ToMinorUnits(price),
			Quantity:   quantity,
			Options:    options,
		}
		d.SalePriceMinor = saleMinor(p, chosen)
		inheritDimensions(&d, p)
		drafts = append(drafts, d)
	}
	return drafts
}

// cartesian walks the value lists odometer-style: the last group's index
// advances fastest, so the first group varies slowest.
func cartesian(groups []OptionGroup) [][]OptionValue {
	total := 1
	for _, g := range groups {
		total *= len(g.Values)
	}
	combos := make([][]OptionValue, 0, total)
	idx := make([]int, len(groups))
	for {
		chosen := make([]OptionValue, len(groups))
		for i, g := range groups {
			chosen[i] = g.Values[idx[i]]
		}
		combos = append(combos, chosen)

		pos := len(groups) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(groups[pos].Values) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return combos
		}
	}
}

// baseSKU picks the SKU stem: the first chosen value carrying its own
// override, else the product's declared SKU or model, else a generated
// legacy-id fallback.
func baseSKU(p SourceProduct, chosen []OptionValue) string {
	for _, v := range chosen {
		if s := strings.TrimSpace(v.SKU); s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(p.SKU); s != "" {
		return s
	}
	if s := strings.TrimSpace(p.Model); s != "" {
		return s
	}
	return fmt.Sprintf("%s-%d", fallbackSKUPrefix, p.ID)
}

func variantSKU(base string, valueNames []string) string {
	parts := make([]string, 0, len(valueNames)+1)
	parts = append(parts, base)
	for _, n := range valueNames {
		n = strings.ToUpper(strings.TrimSpace(n))
		n = strings.ReplaceAll(n, " ", "-")
		parts = append(parts, n)
	}
	return strings.Join(parts, "-")
}

// saleMinor computes the deferred price-list amount: present only while a
// special price is active, carrying the same option deltas as the base price.
func saleMinor(p SourceProduct, chosen []OptionValue) *int64 {
	if !p.SpecialPrice.Valid {
		return nil
	}
	price := p.SpecialPrice.Decimal
	for _, v := range chosen {
		price = price.Add(v.PriceDelta)
	}
	m := ToMinorUnits(price)
	return &m
}

func inheritDimensions(d *VariantDraft, p SourceProduct) {
	d.Weight = p.Weight
	d.Length = p.Length
	d.Width = p.Width
	d.Height = p.Height
}
