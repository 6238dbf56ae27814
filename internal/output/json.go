// internal/output/json.go
package output

import (
	"encoding/json"
	"io"

	"github.com/valpere/DropScrapexter/internal/product"
)

// JSONWriter writes drafts as an indented JSON array
type JSONWriter struct {
	encoder *json.Encoder
}

// NewJSONWriter creates a new JSON writer
func NewJSONWriter(w io.Writer) *JSONWriter {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return &JSONWriter{encoder: encoder}
}

// Write writes drafts to the underlying writer
func (w *JSONWriter) Write(drafts []*product.Draft) error {
	if drafts == nil {
		drafts = []*product.Draft{}
	}
	return w.encoder.Encode(drafts)
}

// Close is a no-op; the caller owns the destination
func (w *JSONWriter) Close() error {
	return nil
}
