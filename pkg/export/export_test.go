package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset(rows int) Dataset {
	data := Dataset{Headers: []string{"Teacher", "Q1", "Comment"}, Numeric: map[string]bool{"Q1": true}}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{
			"Teacher": "Dr. Sharma",
			"Q1":      "8",
			"Comment": strings.Repeat("very long comment ", 10),
		})
	}
	return data
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, "csv", f.Extension())

	_, err = ParseFormat("docx")
	require.Error(t, err)
}

func TestCSVExporterHeaderOnly(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(0), "")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Teacher", "Q1", "Comment"}}, records)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{}, "")
	require.Error(t, err)
}

func TestXLSXExporterWritesBoldHeaderAndSizedColumns(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(2), "All Feedback")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	assert.Equal(t, "All Feedback", sheet)

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Teacher", "Q1", "Comment"}, rows[0])
	assert.Equal(t, "8", rows[1][1])

	styleID, err := f.GetCellStyle(sheet, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	width, err := f.GetColWidth(sheet, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Dr. Sharma")+2), width)

	commentWidth, err := f.GetColWidth(sheet, "C")
	require.NoError(t, err)
	assert.Equal(t, float64(maxColumnWidth), commentWidth)
}

func TestXLSXExporterHeaderOnly(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(0), "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Teacher", "Q1", "Comment"}}, rows)
}

func TestSheetNameSanitised(t *testing.T) {
	assert.Equal(t, "Feedback", sheetName("  "))
	assert.Equal(t, "a_b_c", sheetName("a/b:c"))
	assert.Len(t, []rune(sheetName(strings.Repeat("x", 40))), maxSheetNameLength)
}

func TestPDFExporterRenders(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(3), "Feedback Report")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func commentDataset(comments ...string) Dataset {
	data := Dataset{Headers: []string{"Q1", "Comment"}, Numeric: map[string]bool{"Q1": true}}
	for _, comment := range comments {
		data.Rows = append(data.Rows, map[string]string{"Q1": "9", "Comment": comment})
	}
	return data
}

func TestXLSXExporterKeepsFreeTextVerbatim(t *testing.T) {
	comments := []string{"007", "+5", "=SUM(A1:A2)", "-3"}
	out, err := NewXLSXExporter().Render(commentDataset(comments...), "Feedback")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, len(comments)+1)
	for i, comment := range comments {
		assert.Equal(t, []string{"9", comment}, rows[i+1])

		cell, _ := excelize.CoordinatesToCellName(2, i+2)
		cellType, err := f.GetCellType(sheet, cell)
		require.NoError(t, err)
		assert.Equal(t, excelize.CellTypeSharedString, cellType, comment)
		formula, err := f.GetCellFormula(sheet, cell)
		require.NoError(t, err)
		assert.Empty(t, formula, comment)
	}

	ratingType, err := f.GetCellType(sheet, "A2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, ratingType)
}

func TestCSVExporterEscapesFormulaText(t *testing.T) {
	out, err := NewCSVExporter().Render(commentDataset("=HYPERLINK(\"x\")", "+5", "-3", "@cmd", "007", "fine"), "")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	var got []string
	for _, record := range records[1:] {
		assert.Equal(t, "9", record[0])
		got = append(got, record[1])
	}
	assert.Equal(t, []string{"'=HYPERLINK(\"x\")", "'+5", "'-3", "'@cmd", "007", "fine"}, got)
}

func TestEscapeFormulaLeavesNumericColumns(t *testing.T) {
	data := Dataset{Headers: []string{"Q1", "Comment"}, Numeric: map[string]bool{"Q1": true}}
	assert.Equal(t, []string{"-1", "'-1"}, data.spreadsheetRecord(map[string]string{"Q1": "-1", "Comment": "-1"}))
	assert.Equal(t, "", escapeFormula(""))
}
