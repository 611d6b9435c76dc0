package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter renders rosters as CSV. With BOM set the output opens with
// accents intact in Excel.
type CSVExporter struct {
	BOM bool
}

// NewCSVExporter builds a CSV exporter that prefixes a UTF-8 BOM.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{BOM: true}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	var buf bytes.Buffer
	if e.BOM {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		record := data.record(row)
		for i := range record {
			record[i] = neutralizeFormula(record[i])
		}
		records = append(records, record)
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
