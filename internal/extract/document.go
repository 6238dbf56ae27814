// internal/extract/document.go
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/DropScrapexter/internal/product"
)

// Document is one fetched product page, parsed once and shared read-only
// by every extractor.
type Document struct {
	HTML      string
	SourceURL string
	Host      string
	Source    Source
	dom       *goquery.Document
}

// NewDocument parses html for the page at sourceURL. Markup that cannot
// be parsed leaves the DOM empty; regex extractors still see the raw text.
func NewDocument(html, sourceURL, host string) *Document {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		dom = nil
	}
	return &Document{
		HTML:      html,
		SourceURL: sourceURL,
		Host:      host,
		Source:    DetectSource(host),
		dom:       dom,
	}
}

// Find runs a CSS selector against the parsed page
func (d *Document) Find(selector string) *goquery.Selection {
	if d.dom == nil {
		return &goquery.Selection{}
	}
	return d.dom.Find(selector)
}

// Extractor produces a partial record from a document. Implementations
// must not mutate the document and must not fail: anything they cannot
// read is left unset.
type Extractor interface {
	Name() string
	Extract(doc *Document) product.Partial
}

// ExtractorFunc adapts a function to the Extractor interface
type ExtractorFunc struct {
	name string
	fn   func(doc *Document) product.Partial
}

// NewExtractorFunc names fn as an Extractor
func NewExtractorFunc(name string, fn func(doc *Document) product.Partial) ExtractorFunc {
	return ExtractorFunc{name: name, fn: fn}
}

// Name implements Extractor
func (f ExtractorFunc) Name() string { return f.name }

// Extract implements Extractor
func (f ExtractorFunc) Extract(doc *Document) product.Partial { return f.fn(doc) }
