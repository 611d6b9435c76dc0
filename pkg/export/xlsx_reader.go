package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX parses the first sheet of a workbook into a Dataset keyed by the
// header row. Header cells are trimmed; fully empty rows are skipped.
func ReadXLSX(r io.Reader) (Dataset, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return Dataset{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = xl.Close() }()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return Dataset{}, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil {
		return Dataset{}, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return Dataset{}, fmt.Errorf("xlsx has no header row")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	data := Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		empty := true
		for i, header := range headers {
			if header == "" || i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			if value != "" {
				empty = false
			}
			record[header] = value
		}
		if !empty {
			data.Rows = append(data.Rows, record)
		}
	}
	return data, nil
}
