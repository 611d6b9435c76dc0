package export

import "strings"

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}

// neutralizeFormula keeps spreadsheet tools from evaluating cells that came
// from uploaded enrollment files. Leading '-' is left alone so negative
// amounts survive.
func neutralizeFormula(cell string) string {
	if cell == "" {
		return cell
	}
	if strings.ContainsRune("=+@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
