package export

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	maxSheetNameLength = 31
	maxColumnWidth     = 50
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes a bold, centred header row followed by one row per record.
// Numeric columns are stored as numbers and all other cells as string cells,
// which spreadsheets never evaluate, so free text is kept verbatim. Every
// column is sized to its longest value plus padding, capped at 50 characters.
func (e *XLSXExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(title)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	widths := make([]int, len(data.Headers))
	for i, header := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		widths[i] = utf8.RuneCountInString(header)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for r, row := range data.Rows {
		for i, value := range data.record(row) {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(sheet, cell, cellValue(value, data.Numeric[data.Headers[i]])); err != nil {
				return nil, fmt.Errorf("write row %d: %w", r+1, err)
			}
			if n := utf8.RuneCountInString(value); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := w + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheet, col, col, float64(width)); err != nil {
			return nil, fmt.Errorf("size column %s: %w", col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(value string, numeric bool) interface{} {
	if !numeric {
		return value
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}

func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "'")
	if name == "" {
		return "Feedback"
	}
	if utf8.RuneCountInString(name) > maxSheetNameLength {
		name = string([]rune(name)[:maxSheetNameLength])
	}
	return name
}
