// internal/product/types.go
package product

// ShippingMethod is one synthesized delivery option
type ShippingMethod struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	Cost          float64 `json:"cost" yaml:"cost"`
	EstimatedDays string  `json:"estimatedDays" yaml:"estimated_days"`
	Carrier       string  `json:"carrier" yaml:"carrier"`
}

// Variant is a selectable product dimension such as color or size
type Variant struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Options []string `json:"options" yaml:"options"`
}

// Product is the normalized record produced by one extraction call.
// Every field is populated once Merge returns.
type Product struct {
	Title           string           `json:"title" yaml:"title"`
	Description     string           `json:"description" yaml:"description"`
	Price           float64          `json:"price" yaml:"price"`
	OriginalPrice   float64          `json:"originalPrice" yaml:"original_price"`
	Currency        string           `json:"currency" yaml:"currency"`
	Images          []string         `json:"images" yaml:"images"`
	Category        string           `json:"category" yaml:"category"`
	Supplier        string           `json:"supplier" yaml:"supplier"`
	MinOrder        int              `json:"minOrder" yaml:"min_order"`
	ShippingTime    string           `json:"shippingTime" yaml:"shipping_time"`
	ShippingCost    float64          `json:"shippingCost" yaml:"shipping_cost"`
	FreeShipping    bool             `json:"freeShipping" yaml:"free_shipping"`
	ShippingMethods []ShippingMethod `json:"shippingMethods" yaml:"shipping_methods"`
	Weight          string           `json:"weight" yaml:"weight"`
	Dimensions      string           `json:"dimensions" yaml:"dimensions"`
	SKU             string           `json:"sku" yaml:"sku"`
	Tags            []string         `json:"tags" yaml:"tags"`
	Rating          float64          `json:"rating" yaml:"rating"`
	Reviews         int              `json:"reviews" yaml:"reviews"`
	Variants        []Variant        `json:"variants" yaml:"variants"`
	SourceURL       string           `json:"sourceUrl" yaml:"source_url"`
	Source          string           `json:"source" yaml:"source"`
}

// Partial is what a single extractor found. Zero values mean "not found".
// ShippingCost is a pointer so an explicit zero can travel alongside
// FreeShipping without being confused with an absent value.
type Partial struct {
	Title           string
	Description     string
	Price           float64
	OriginalPrice   float64
	Currency        string
	Images          []string
	Category        string
	Supplier        string
	MinOrder        int
	ShippingTime    string
	ShippingCost    *float64
	FreeShipping    bool
	ShippingMethods []ShippingMethod
	Weight          string
	Dimensions      string
	SKU             string
	Tags            []string
	Rating          float64
	Reviews         int
	Variants        []Variant
	SourceURL       string
	Source          string
}

// Cost returns a pointer to v, for filling Partial.ShippingCost
func Cost(v float64) *float64 {
	return &v
}

// IsEmpty reports whether the partial carries no field at all
func (p *Partial) IsEmpty() bool {
	return p.Title == "" && p.Description == "" && p.Price == 0 &&
		p.OriginalPrice == 0 && p.Currency == "" && len(p.Images) == 0 &&
		p.Category == "" && p.Supplier == "" && p.MinOrder == 0 &&
		p.ShippingTime == "" && p.ShippingCost == nil && !p.FreeShipping &&
		len(p.ShippingMethods) == 0 && p.Weight == "" && p.Dimensions == "" &&
		p.SKU == "" && len(p.Tags) == 0 && p.Rating == 0 && p.Reviews == 0 &&
		len(p.Variants) == 0 && p.SourceURL == "" && p.Source == ""
}
