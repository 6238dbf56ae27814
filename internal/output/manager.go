// internal/output/manager.go
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/valpere/DropScrapexter/internal/product"
)

// Manager manages different output formats
type Manager struct {
	config   Config
	fallback io.Writer
}

// NewManager creates a new output manager. fallback receives output when
// no file is configured; nil means stdout.
func NewManager(cfg Config, fallback io.Writer) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fallback == nil {
		fallback = os.Stdout
	}
	return &Manager{config: cfg, fallback: fallback}, nil
}

// Config returns the validated configuration
func (m *Manager) Config() Config {
	return m.config
}

// GetWriter returns the writer for the configured format over dst
func (m *Manager) GetWriter(dst io.Writer) (Writer, error) {
	switch m.config.Format {
	case FormatJSON:
		return NewJSONWriter(dst), nil
	case FormatCSV:
		return NewCSVWriter(dst), nil
	case FormatXML:
		return NewXMLWriter(dst), nil
	case FormatYAML:
		return NewYAMLWriter(dst), nil
	case FormatExcel:
		return NewExcelWriter(dst, ExcelConfig{}), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", m.config.Format)
	}
}

// Write writes drafts using the configured format and destination
func (m *Manager) Write(drafts []*product.Draft) (err error) {
	dst := m.fallback
	if m.config.File != "" && m.config.File != "-" {
		file, createErr := os.Create(m.config.File)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		dst = file
	}

	writer, err := m.GetWriter(dst)
	if err != nil {
		return fmt.Errorf("failed to get writer: %w", err)
	}
	if err := writer.Write(drafts); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write %s: %w", m.config.Format, err)
	}
	return writer.Close()
}
