// internal/output/xml.go
package output

import (
	"encoding/xml"
	"io"

	"github.com/valpere/DropScrapexter/internal/product"
)

// XMLWriter writes drafts as <products><product>...</product></products>
type XMLWriter struct {
	w       io.Writer
	encoder *xml.Encoder
}

// NewXMLWriter creates a new XML writer
func NewXMLWriter(w io.Writer) *XMLWriter {
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	return &XMLWriter{w: w, encoder: encoder}
}

// Write writes the declaration, the root element and one element per draft
func (w *XMLWriter) Write(drafts []*product.Draft) error {
	if _, err := io.WriteString(w.w, xml.Header); err != nil {
		return err
	}

	root := xml.StartElement{Name: xml.Name{Local: "products"}}
	if err := w.encoder.EncodeToken(root); err != nil {
		return err
	}
	for _, d := range drafts {
		if err := w.writeDraft(d); err != nil {
			return err
		}
	}
	if err := w.encoder.EncodeToken(root.End()); err != nil {
		return err
	}
	return w.encoder.Flush()
}

// writeDraft writes one draft with its columns as child elements
func (w *XMLWriter) writeDraft(d *product.Draft) error {
	start := xml.StartElement{
		Name: xml.Name{Local: "product"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: d.ID}},
	}
	if err := w.encoder.EncodeToken(start); err != nil {
		return err
	}

	row := draftRow(d)
	for i, column := range Columns {
		if column == "id" {
			continue
		}
		if err := w.encoder.EncodeElement(formatCell(row[i]), xml.StartElement{Name: xml.Name{Local: column}}); err != nil {
			return err
		}
	}
	return w.encoder.EncodeToken(start.End())
}

// Close flushes the encoder
func (w *XMLWriter) Close() error {
	return w.encoder.Flush()
}
