// internal/output/yaml.go
package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/valpere/DropScrapexter/internal/product"
)

// YAMLWriter writes drafts as a YAML sequence
type YAMLWriter struct {
	encoder *yaml.Encoder
}

// NewYAMLWriter creates a new YAML writer
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	return &YAMLWriter{encoder: encoder}
}

// Write encodes drafts as one document
func (w *YAMLWriter) Write(drafts []*product.Draft) error {
	if drafts == nil {
		drafts = []*product.Draft{}
	}
	return w.encoder.Encode(drafts)
}

// Close flushes the encoder
func (w *YAMLWriter) Close() error {
	return w.encoder.Close()
}
