// internal/output/types.go
package output

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/valpere/DropScrapexter/internal/product"
)

// OutputFormat represents supported export formats
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
	FormatXML   OutputFormat = "xml"
	FormatYAML  OutputFormat = "yaml"
	FormatExcel OutputFormat = "xlsx"
)

// ValidOutputFormats returns all valid output format values
func ValidOutputFormats() []OutputFormat {
	return []OutputFormat{FormatJSON, FormatCSV, FormatXML, FormatYAML, FormatExcel}
}

// IsValid reports whether f is a supported format
func (f OutputFormat) IsValid() bool {
	for _, valid := range ValidOutputFormats() {
		if f == valid {
			return true
		}
	}
	return false
}

// FormatFromPath guesses the format from a file extension
func FormatFromPath(path string) (OutputFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".csv":
		return FormatCSV, true
	case ".xml":
		return FormatXML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".xlsx":
		return FormatExcel, true
	}
	return "", false
}

// Config selects where and how drafts are exported. An empty File or "-"
// writes to the manager's fallback writer, normally stdout.
type Config struct {
	Format OutputFormat `yaml:"format" json:"format"`
	File   string       `yaml:"file,omitempty" json:"file,omitempty"`
}

// Validate checks the format, inferring it from File when unset
func (c *Config) Validate() error {
	if c.Format == "" {
		if f, ok := FormatFromPath(c.File); ok {
			c.Format = f
		} else {
			c.Format = FormatJSON
		}
	}
	if !c.Format.IsValid() {
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	return nil
}

// Writer writes a batch of drafts in one format
type Writer interface {
	Write(drafts []*product.Draft) error
	Close() error
}

// Columns is the flat layout shared by tabular formats
var Columns = []string{
	"id", "status", "title", "price", "original_price", "currency",
	"supplier", "category", "min_order", "shipping_cost", "free_shipping",
	"shipping_time", "rating", "reviews", "sku", "source", "source_url",
	"images", "tags", "created_at",
}

// listSeparator joins list fields inside one cell
const listSeparator = "|"

// draftRow flattens a draft in Columns order
func draftRow(d *product.Draft) []interface{} {
	return []interface{}{
		d.ID,
		string(d.Status),
		d.Title,
		d.Price,
		d.OriginalPrice,
		d.Currency,
		d.Supplier,
		d.Category,
		d.MinOrder,
		d.ShippingCost,
		d.FreeShipping,
		d.ShippingTime,
		d.Rating,
		d.Reviews,
		d.SKU,
		d.Source,
		d.SourceURL,
		strings.Join(d.Images, listSeparator),
		strings.Join(d.Tags, listSeparator),
		d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// formatCell renders a row value as text
func formatCell(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
