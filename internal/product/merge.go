// internal/product/merge.go
package product

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/valpere/DropScrapexter/internal/utils"
)

// Field defaults applied when no partial supplied a value
const (
	DefaultTitle        = "Imported Product"
	DefaultDescription  = "Product imported from online store."
	DefaultCurrency     = "USD"
	DefaultCategory     = "General"
	DefaultSupplier     = "Online Store"
	DefaultMinOrder     = 1
	DefaultShippingTime = "7-21 days"

	// MarkupFactor derives a compare-at price when none was found
	MarkupFactor = 1.3

	MaxImages = 10
	MaxRating = 5.0
	MaxTags   = 8
)

var (
	tagCleanRegex = regexp.MustCompile(`[^a-z0-9 ]`)
)

// Combine reduces partials given highest priority first into one partial.
// For every field the first partial holding a non-trivial value wins;
// empty strings, zero numbers and empty slices are never taken. Extractors
// that gather several candidate records use it too, so there is a single
// precedence rule in the program.
func Combine(partials ...Partial) Partial {
	c := Partial{
		Title:           firstString(partials, func(x *Partial) string { return x.Title }),
		Description:     firstString(partials, func(x *Partial) string { return x.Description }),
		Price:           firstPositive(partials, func(x *Partial) float64 { return x.Price }),
		OriginalPrice:   firstPositive(partials, func(x *Partial) float64 { return x.OriginalPrice }),
		Currency:        firstString(partials, func(x *Partial) string { return x.Currency }),
		Images:          firstSlice(partials, func(x *Partial) []string { return x.Images }),
		Category:        firstString(partials, func(x *Partial) string { return x.Category }),
		Supplier:        firstString(partials, func(x *Partial) string { return x.Supplier }),
		MinOrder:        firstInt(partials, func(x *Partial) int { return x.MinOrder }),
		ShippingTime:    firstString(partials, func(x *Partial) string { return x.ShippingTime }),
		ShippingMethods: firstSlice(partials, func(x *Partial) []ShippingMethod { return x.ShippingMethods }),
		Weight:          firstString(partials, func(x *Partial) string { return x.Weight }),
		Dimensions:      firstString(partials, func(x *Partial) string { return x.Dimensions }),
		SKU:             firstString(partials, func(x *Partial) string { return x.SKU }),
		Tags:            firstSlice(partials, func(x *Partial) []string { return x.Tags }),
		Rating:          firstNonZero(partials, func(x *Partial) float64 { return x.Rating }),
		Reviews:         firstInt(partials, func(x *Partial) int { return x.Reviews }),
		Variants:        copyVariants(firstSlice(partials, func(x *Partial) []Variant { return x.Variants })),
		SourceURL:       firstString(partials, func(x *Partial) string { return x.SourceURL }),
		Source:          firstString(partials, func(x *Partial) string { return x.Source }),
	}

	// the highest-ranked partial with a shipping signal decides both the
	// cost and whether shipping is explicitly free
	for i := range partials {
		if partials[i].FreeShipping {
			c.FreeShipping = true
			c.ShippingCost = Cost(0)
			break
		}
		if cost := partials[i].ShippingCost; cost != nil && *cost > 0 {
			c.ShippingCost = Cost(*cost)
			break
		}
	}
	return c
}

// Merge combines partials given highest priority first and fills every
// field still unset with its default. The result depends only on the
// inputs.
func Merge(partials ...Partial) Product {
	c := Combine(partials...)
	p := Product{
		Title:           c.Title,
		Description:     c.Description,
		Price:           c.Price,
		OriginalPrice:   c.OriginalPrice,
		Currency:        c.Currency,
		Images:          c.Images,
		Category:        c.Category,
		Supplier:        c.Supplier,
		MinOrder:        c.MinOrder,
		ShippingTime:    c.ShippingTime,
		FreeShipping:    c.FreeShipping,
		ShippingMethods: c.ShippingMethods,
		Weight:          c.Weight,
		Dimensions:      c.Dimensions,
		SKU:             c.SKU,
		Tags:            c.Tags,
		Rating:          c.Rating,
		Reviews:         c.Reviews,
		Variants:        c.Variants,
		SourceURL:       c.SourceURL,
		Source:          c.Source,
	}
	if c.ShippingCost != nil {
		p.ShippingCost = *c.ShippingCost
	}

	applyDefaults(&p)
	return p
}

func applyDefaults(p *Product) {
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Description == "" {
		p.Description = DefaultDescription
	}
	if p.Price < 0 {
		p.Price = 0
	}
	if p.OriginalPrice == 0 && p.Price > 0 {
		p.OriginalPrice = Markup(p.Price)
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	p.Images = dedupImages(p.Images)
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.Supplier == "" {
		p.Supplier = DefaultSupplier
	}
	if p.MinOrder < 1 {
		p.MinOrder = DefaultMinOrder
	}
	if p.ShippingTime == "" {
		p.ShippingTime = DefaultShippingTime
	}
	p.Rating = ClampRating(p.Rating)
	if p.Reviews < 0 {
		p.Reviews = 0
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Variants == nil {
		p.Variants = []Variant{}
	}
	if p.ShippingMethods == nil {
		p.ShippingMethods = []ShippingMethod{}
	}
	EnforcePriceFloor(p)
}

// EnforcePriceFloor restores originalPrice >= price by re-deriving the
// compare-at price from the selling price.
func EnforcePriceFloor(p *Product) {
	if p.OriginalPrice >= p.Price {
		return
	}
	p.OriginalPrice = Markup(p.Price)
	if p.OriginalPrice < p.Price {
		p.OriginalPrice = p.Price
	}
}

// Markup returns price × MarkupFactor rounded to cents
func Markup(price float64) float64 {
	return Multiply(price, MarkupFactor)
}

// Multiply returns amount × factor rounded to cents
func Multiply(amount, factor float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(factor)).Round(2).Float64()
	return v
}

// RoundMoney rounds an amount to cents
func RoundMoney(amount float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return v
}

// ClampRating bounds a rating to [0, MaxRating]
func ClampRating(r float64) float64 {
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(0, math.Min(MaxRating, r))
}

// DeriveTags builds keyword tags from a title: lowercase alphanumerics,
// words longer than two characters, at most MaxTags.
func DeriveTags(title string) []string {
	cleaned := tagCleanRegex.ReplaceAllString(utils.Lower(title), "")
	tags := make([]string, 0, MaxTags)
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		tags = append(tags, word)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}

// dedupImages drops URLs equal to an earlier one once query strings are
// ignored. First-seen order is kept and the list is capped at MaxImages.
func dedupImages(images []string) []string {
	out := make([]string, 0, len(images))
	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		key := utils.StripQuery(img)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, img)
		if len(out) == MaxImages {
			break
		}
	}
	return out
}

func firstString(partials []Partial, get func(*Partial) string) string {
	for i := range partials {
		if v := strings.TrimSpace(get(&partials[i])); v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(partials []Partial, get func(*Partial) float64) float64 {
	for i := range partials {
		if v := get(&partials[i]); v > 0 && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}

func firstNonZero(partials []Partial, get func(*Partial) float64) float64 {
	for i := range partials {
		if v := get(&partials[i]); v != 0 && !math.IsNaN(v) {
			return v
		}
	}
	return 0
}

func firstInt(partials []Partial, get func(*Partial) int) int {
	for i := range partials {
		if v := get(&partials[i]); v > 0 {
			return v
		}
	}
	return 0
}

func firstSlice[T any](partials []Partial, get func(*Partial) []T) []T {
	for i := range partials {
		if v := get(&partials[i]); len(v) > 0 {
			out := make([]T, len(v))
			copy(out, v)
			return out
		}
	}
	return nil
}

// copyVariants detaches option slices so the result shares no backing
// arrays with the partials
func copyVariants(variants []Variant) []Variant {
	for i := range variants {
		if variants[i].Options != nil {
			variants[i].Options = append([]string(nil), variants[i].Options...)
		}
	}
	return variants
}
