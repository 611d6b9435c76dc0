package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes headers on the first row followed by one row per record.
func (e *XLSXExporter) Render(data Dataset, sheet string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet = sanitizeSheetName(sheet)
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := data.Headers
	if err := xl.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}
	for i, row := range data.Rows {
		record := data.record(row)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("resolve xlsx cell: %w", err)
		}
		if err := xl.SetSheetRow(sheet, cell, &record); err != nil {
			return nil, fmt.Errorf("write xlsx row: %w", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// Excel sheet names cannot contain : \ / ? * [ ] and are capped at 31 characters.
func sanitizeSheetName(name string) string {
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	name = strings.TrimSpace(replacer.Replace(name))
	if name == "" {
		name = "Sheet1"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
