// internal/output/excel.go
package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/DropScrapexter/internal/product"
)

// DefaultExcelMaxCellLength is the Excel limit for text in one cell
const DefaultExcelMaxCellLength = 32767

// ExcelConfig holds worksheet options
type ExcelConfig struct {
	SheetName     string `yaml:"sheet_name" json:"sheet_name"`
	AutoFilter    bool   `yaml:"auto_filter" json:"auto_filter"`
	FreezeHeader  bool   `yaml:"freeze_header" json:"freeze_header"`
	MaxCellLength int    `yaml:"max_cell_length" json:"max_cell_length"`
}

// ExcelWriter writes drafts to a single worksheet
type ExcelWriter struct {
	w      io.Writer
	file   *excelize.File
	config ExcelConfig
}

// NewExcelWriter creates a new Excel writer. A zero config gets a
// "Products" sheet with a frozen, filterable header row.
func NewExcelWriter(w io.Writer, config ExcelConfig) *ExcelWriter {
	if config.SheetName == "" {
		config.SheetName = "Products"
		config.AutoFilter = true
		config.FreezeHeader = true
	}
	if config.MaxCellLength <= 0 {
		config.MaxCellLength = DefaultExcelMaxCellLength
	}
	return &ExcelWriter{w: w, file: excelize.NewFile(), config: config}
}

// Write fills the sheet and streams the workbook to the destination
func (w *ExcelWriter) Write(drafts []*product.Draft) error {
	sheet := w.config.SheetName
	if err := w.file.SetSheetName(w.file.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := w.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.applyHeaderStyle(); err != nil {
		return err
	}

	for i, d := range drafts {
		row := draftRow(d)
		for j, v := range row {
			if s, ok := v.(string); ok && len(s) > w.config.MaxCellLength {
				row[j] = s[:w.config.MaxCellLength]
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := w.applyFinalFormatting(len(drafts)); err != nil {
		return err
	}
	return w.file.Write(w.w)
}

// applyHeaderStyle makes the header bold with a grey fill
func (w *ExcelWriter) applyHeaderStyle() error {
	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(w.config.SheetName, "A1", last, style)
}

func (w *ExcelWriter) applyFinalFormatting(rows int) error {
	sheet := w.config.SheetName
	if w.config.FreezeHeader {
		if err := w.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}
	if w.config.AutoFilter && rows > 0 {
		last, err := excelize.CoordinatesToCellName(len(Columns), rows+1)
		if err != nil {
			return err
		}
		if err := w.file.AutoFilter(sheet, "A1:"+last, nil); err != nil {
			return fmt.Errorf("failed to set auto filter: %w", err)
		}
	}
	return w.file.SetColWidth(sheet, "C", "C", 48)
}

// Close releases the workbook
func (w *ExcelWriter) Close() error {
	return w.file.Close()
}
