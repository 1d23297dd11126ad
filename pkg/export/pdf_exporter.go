package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfUsableWidth = 277.0
	pdfMinColWidth = 8.0
	pdfCellPadding = 2.0
)

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title, a bold header row
// and columns sized to their content.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	headers := make([]string, len(data.Headers))
	for i, header := range data.Headers {
		headers[i] = tr(header)
	}
	records := make([][]string, len(data.Rows))
	for r, row := range data.Rows {
		record := data.record(row)
		for i := range record {
			record[i] = tr(record[i])
		}
		records[r] = record
	}

	widths := pdfColumnWidths(pdf, headers, records)

	pdf.SetFont("Arial", "B", 9)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, record := range records {
		for i, value := range record {
			pdf.CellFormat(widths[i], 7, fitText(pdf, value, widths[i]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func pdfColumnWidths(pdf *gofpdf.Fpdf, headers []string, records [][]string) []float64 {
	widths := make([]float64, len(headers))
	pdf.SetFont("Arial", "B", 9)
	for i, header := range headers {
		widths[i] = pdf.GetStringWidth(header) + pdfCellPadding
	}
	pdf.SetFont("Arial", "", 8)
	for _, record := range records {
		for i, value := range record {
			if w := pdf.GetStringWidth(value) + pdfCellPadding; w > widths[i] {
				widths[i] = w
			}
		}
	}

	var total float64
	for i := range widths {
		if widths[i] < pdfMinColWidth {
			widths[i] = pdfMinColWidth
		}
		total += widths[i]
	}
	if total > pdfUsableWidth {
		scale := pdfUsableWidth / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}

func fitText(pdf *gofpdf.Fpdf, value string, width float64) string {
	if pdf.GetStringWidth(value)+pdfCellPadding <= width {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if pdf.GetStringWidth(candidate)+pdfCellPadding <= width {
			return candidate
		}
	}
	return ""
}
