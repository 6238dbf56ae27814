// internal/extract/structured.go
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kaptinlin/jsonrepair"

	"github.com/valpere/DropScrapexter/internal/product"
	"github.com/valpere/DropScrapexter/internal/utils"
)

var productTypes = map[string]bool{
	"product":           true,
	"productmodel":      true,
	"individualproduct": true,
}

// StructuredData reads JSON-LD product blocks
type StructuredData struct {
	logger utils.Logger
}

// NewStructuredData creates the structured-data extractor
func NewStructuredData(logger utils.Logger) *StructuredData {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &StructuredData{logger: logger}
}

// Name implements Extractor
func (s *StructuredData) Name() string { return "structured" }

// Extract implements Extractor. Every product entity found contributes;
// earlier entities keep the fields they set.
func (s *StructuredData) Extract(doc *Document) product.Partial {
	var candidates []product.Partial
	for _, item := range s.items(doc) {
		if !isProductType(item["@type"]) {
			continue
		}
		candidates = append(candidates, productFromItem(item))
	}
	return product.Combine(candidates...)
}

// items returns every JSON object found in structured-data blocks with
// arrays and @graph wrappers flattened.
func (s *StructuredData) items(doc *Document) []map[string]interface{} {
	var items []map[string]interface{}
	doc.Find(`script[type*="ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		data, err := decodeBlock(raw)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{
				"block": i,
				"error": err.Error(),
			}).Debug("skipping structured data block")
			return
		}
		items = append(items, flatten(data)...)
	})
	return items
}

// decodeBlock parses a block, attempting a repair pass before giving up
func decodeBlock(raw string) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		return data, nil
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("unrepairable JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &data); err != nil {
		return nil, fmt.Errorf("repaired JSON still invalid: %w", err)
	}
	return data, nil
}

func flatten(data interface{}) []map[string]interface{} {
	switch v := data.(type) {
	case []interface{}:
		var out []map[string]interface{}
		for _, elem := range v {
			out = append(out, flatten(elem)...)
		}
		return out
	case map[string]interface{}:
		if graph, ok := v["@graph"]; ok {
			return flatten(graph)
		}
		return []map[string]interface{}{v}
	default:
		return nil
	}
}

// isProductType accepts "Product" as well as ["Thing", "Product"]
func isProductType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return productTypes[strings.ToLower(v)]
	case []interface{}:
		for _, elem := range v {
			if isProductType(elem) {
				return true
			}
		}
	}
	return false
}

func productFromItem(item map[string]interface{}) product.Partial {
	var p product.Partial

	p.Title = utils.CleanText(utils.StringFromAny(item["name"]))
	p.Description = utils.DescriptionText(utils.StringFromAny(item["description"]))
	p.SKU = strings.TrimSpace(utils.StringFromAny(item["sku"]))
	p.Supplier = utils.CleanText(nameOf(item["brand"]))
	p.Category = utils.CleanText(utils.StringFromAny(item["category"]))
	p.Images = imagesOf(item["image"])

	if offer := firstObject(item["offers"]); offer != nil {
		readOffer(offer, &p)
	}

	if rating, ok := item["aggregateRating"].(map[string]interface{}); ok {
		if v, ok := utils.NumberFromAny(rating["ratingValue"]); ok {
			p.Rating = v
		}
		count := rating["reviewCount"]
		if count == nil {
			count = rating["ratingCount"]
		}
		if v, ok := utils.NumberFromAny(count); ok && v > 0 {
			p.Reviews = int(v)
		}
	}

	if weight, ok := item["weight"].(map[string]interface{}); ok {
		p.Weight = formatWeight(weight)
	}

	return p
}

func readOffer(offer map[string]interface{}, p *product.Partial) {
	price := offer["price"]
	if price == nil || utils.StringFromAny(price) == "" {
		price = offer["lowPrice"]
	}
	if v, ok := utils.NumberFromAny(price); ok && v > 0 {
		p.Price = v
	}
	if v, ok := utils.NumberFromAny(offer["highPrice"]); ok && v > 0 {
		p.OriginalPrice = v
	}
	p.Currency = strings.ToUpper(strings.TrimSpace(utils.StringFromAny(offer["priceCurrency"])))

	shipping := firstObject(offer["shippingDetails"])
	if shipping == nil {
		return
	}
	if rate := firstObject(shipping["shippingRate"]); rate != nil {
		if v, ok := utils.NumberFromAny(rate["value"]); ok {
			p.ShippingCost = product.Cost(v)
			// a published rate of exactly zero is an explicit free offer
			p.FreeShipping = v == 0
		}
	}
	if delivery := firstObject(shipping["deliveryTime"]); delivery != nil {
		p.ShippingTime = deliveryRange(delivery)
	}
}

// deliveryRange reads min/max days from a ShippingDeliveryTime, either
// directly or from its transitTime quantitative value.
func deliveryRange(delivery map[string]interface{}) string {
	bounds := delivery
	if transit := firstObject(delivery["transitTime"]); transit != nil {
		if _, ok := delivery["minValue"]; !ok {
			bounds = transit
		}
	}
	lo, okLo := utils.NumberFromAny(bounds["minValue"])
	hi, okHi := utils.NumberFromAny(bounds["maxValue"])
	if !okLo || !okHi || hi <= 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d days", int(lo), int(hi))
}

func formatWeight(weight map[string]interface{}) string {
	value := utils.StringFromAny(weight["value"])
	if value == "" {
		return ""
	}
	unit := utils.StringFromAny(weight["unitCode"])
	if unit == "" {
		unit = utils.StringFromAny(weight["unitText"])
	}
	if unit == "" {
		unit = "kg"
	}
	return strings.TrimSpace(value + " " + unit)
}

// nameOf reads a Brand/Organization name or a plain string
func nameOf(v interface{}) string {
	switch b := v.(type) {
	case string:
		return b
	case map[string]interface{}:
		return utils.StringFromAny(b["name"])
	case []interface{}:
		if len(b) > 0 {
			return nameOf(b[0])
		}
	}
	return ""
}

// imagesOf accepts a URL, a list of URLs or ImageObjects
func imagesOf(v interface{}) []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && len(out) < product.MaxImages {
			out = append(out, s)
		}
	}
	switch img := v.(type) {
	case string:
		add(img)
	case map[string]interface{}:
		add(utils.StringFromAny(img["url"]))
	case []interface{}:
		for _, elem := range img {
			switch e := elem.(type) {
			case string:
				add(e)
			case map[string]interface{}:
				add(utils.StringFromAny(e["url"]))
			}
		}
	}
	return out
}

// firstObject returns v when it is an object, or its first element when
// it is an array of objects.
func firstObject(v interface{}) map[string]interface{} {
	switch o := v.(type) {
	case map[string]interface{}:
		return o
	case []interface{}:
		for _, elem := range o {
			if m, ok := elem.(map[string]interface{}); ok {
				return m
			}
		}
	}
	return nil
}
