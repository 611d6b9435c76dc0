package export

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfUsableWidth = 277.0 // A4 landscape minus 10mm margins
	pdfMinColumn   = 12.0
	pdfSampleRows  = 50
)

// PDFExporter renders rosters into a landscape table with the header row
// repeated on every page.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF document. title is printed on every page.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := columnWidths(data)

	pdf.SetHeaderFunc(func() {
		if title != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Arial", "B", 7)
		pdf.SetFillColor(230, 230, 230)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 6, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 7)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d rows - page %d/{nb}", len(data.Rows), pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	for _, row := range data.Rows {
		for i, value := range data.record(row) {
			pdf.CellFormat(widths[i], 5, tr(fitText(pdf, value, widths[i])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths splits the page width by the longest text seen per column in
// the header and the first rows.
func columnWidths(data Dataset) []float64 {
	weights := make([]float64, len(data.Headers))
	total := 0.0
	for i, header := range data.Headers {
		longest := utf8.RuneCountInString(header)
		for j, row := range data.Rows {
			if j == pdfSampleRows {
				break
			}
			if n := utf8.RuneCountInString(row[header]); n > longest {
				longest = n
			}
		}
		weights[i] = float64(longest)
		total += weights[i]
	}
	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = pdfUsableWidth * w / total
		if widths[i] < pdfMinColumn {
			widths[i] = pdfMinColumn
		}
	}
	return widths
}

func fitText(pdf *gofpdf.Fpdf, value string, width float64) string {
	if pdf.GetStringWidth(value) <= width-1 {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"..") > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ".."
}
