package export

import (
	"fmt"
	"strings"
)

// Dataset defines tabular export content. Rows are keyed by header.
// Columns listed in Numeric hold integers; every other column is free text.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	Numeric map[string]bool
}

// Format names a supported export encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps user input to a Format. Empty input selects XLSX.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

func (d Dataset) record(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}

// spreadsheetRecord is record with free-text cells neutralised for
// spreadsheet applications that parse plain-text formats.
func (d Dataset) spreadsheetRecord(row map[string]string) []string {
	record := d.record(row)
	for i, header := range d.Headers {
		if !d.Numeric[header] {
			record[i] = escapeFormula(record[i])
		}
	}
	return record
}

// escapeFormula prefixes text that a spreadsheet would evaluate as a
// formula with a single quote.
func escapeFormula(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}
