// Package export renders history rows as spreadsheet and PDF documents.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// Sample is one parsed history row.
type Sample struct {
	// At is the row timestamp as written, "2006-01-02 15:04".
	At string
	// TempC is the recorded temperature.
	TempC float64
}

// ErrMalformedRow is returned for rows that are not "timestamp,value".
var ErrMalformedRow = errors.New("malformed history row")

// ParseRow splits a "timestamp,value" history row.
func ParseRow(row string) (Sample, error) {
	at, value, ok := strings.Cut(row, ",")
	if !ok || at == "" {
		return Sample{}, fmt.Errorf("%w: %q", ErrMalformedRow, row)
	}

	temp, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %q: %w", ErrMalformedRow, row, err)
	}

	return Sample{At: at, TempC: temp}, nil
}

// ParseRows parses every row, skipping malformed ones. skipped counts them.
func ParseRows(rows []string) (samples []Sample, skipped int) {
	samples = make([]Sample, 0, len(rows))

	for _, row := range rows {
		s, err := ParseRow(row)
		if err != nil {
			skipped++
			continue
		}

		samples = append(samples, s)
	}

	return samples, skipped
}

const sheetName = "history"

// XLSX renders samples as a one-sheet workbook with a header row.
func XLSX(samples []Sample) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	_ = f.SetCellValue(sheetName, "A1", "Laikas")
	_ = f.SetCellValue(sheetName, "B1", "Temperatūra, °C")

	for i, s := range samples {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), s.At)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), s.TempC)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

// PDF renders samples as a two-column table. title heads the first page.
func PDF(title string, samples []Sample) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts only cover cp1252.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()
	pdf.Cell(0, 8, tr(title))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Laikas", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Temp., C", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)

	for _, s := range samples {
		pdf.CellFormat(50, 6, s.At, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, strconv.FormatFloat(s.TempC, 'f', 1, 64), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	return buf.Bytes(), nil
}
