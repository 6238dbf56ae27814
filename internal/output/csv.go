// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/valpere/DropScrapexter/internal/product"
)

// CSVWriter writes drafts in CSV format, one row per draft
type CSVWriter struct {
	writer *csv.Writer
}

// NewCSVWriter creates a new CSV writer
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(w)}
}

// Write writes the header followed by one record per draft
func (w *CSVWriter) Write(drafts []*product.Draft) error {
	if err := w.writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, d := range drafts {
		row := draftRow(d)
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes any buffered data
func (w *CSVWriter) Close() error {
	w.writer.Flush()
	return w.writer.Error()
}
