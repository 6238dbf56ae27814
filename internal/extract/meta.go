// internal/extract/meta.go
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/DropScrapexter/internal/product"
	"github.com/valpere/DropScrapexter/internal/utils"
)

// MetaTags reads Open Graph and product price meta tags. Attributes are
// read from the parsed element, so their order in the markup is irrelevant.
type MetaTags struct{}

// NewMetaTags creates the meta-tag extractor
func NewMetaTags() *MetaTags {
	return &MetaTags{}
}

// Name implements Extractor
func (m *MetaTags) Name() string { return "meta" }

// Extract implements Extractor
func (m *MetaTags) Extract(doc *Document) product.Partial {
	var p product.Partial
	var description string

	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		key := metaKey(sel)
		if key == "" {
			return
		}
		content, ok := sel.Attr("content")
		if !ok {
			return
		}
		value := utils.CleanText(content)
		if value == "" {
			return
		}

		switch key {
		case "og:title":
			if p.Title == "" {
				p.Title = value
			}
		case "og:description":
			if p.Description == "" {
				p.Description = value
			}
		case "description":
			if description == "" {
				description = value
			}
		case "product:price:amount", "og:price:amount":
			if p.Price == 0 {
				if v, ok := utils.ParseNumber(value); ok && v > 0 {
					p.Price = v
				}
			}
		case "product:price:currency", "og:price:currency":
			if p.Currency == "" {
				p.Currency = strings.ToUpper(value)
			}
		case "og:image", "og:image:url", "og:image:secure_url":
			if strings.HasPrefix(value, "http") && len(p.Images) < product.MaxImages {
				p.Images = append(p.Images, value)
			}
		}
	})

	if p.Description == "" {
		p.Description = description
	}
	return p
}

// metaKey returns the lowercased property or name attribute of a meta tag
func metaKey(sel *goquery.Selection) string {
	if v, ok := sel.Attr("property"); ok && v != "" {
		return strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := sel.Attr("name"); ok {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return ""
}
