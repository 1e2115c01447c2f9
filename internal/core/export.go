package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

// ErrEmptySheet is returned when an imported file has no header row.
var ErrEmptySheet = errors.New("file has no header row")

// maxSheetName is the longest worksheet name spreadsheet programs accept.
const maxSheetName = 31

// WriteCSV writes f with a header row. Absent cells are written empty.
func WriteCSV(w io.Writer, f Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(f.Columns))
	for _, cells := range f.Rows {
		for j := range record {
			record[j] = exportCell(cells, j)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// utf8BOM prefixes CSV files saved by spreadsheet programs on Windows.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a CSV file with a header row into a frame. Empty cells
// become nil. A leading byte order mark is dropped and invalid UTF-8 is
// replaced with U+FFFD.
func ReadCSV(r io.Reader) (Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Frame{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("\uFFFD"))
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return Frame{}, fmt.Errorf("read csv: %w", err)
	}
	return frameFromStrings(records)
}

// WriteXLSX writes f as a workbook with one worksheet named after sheet.
// Cells that parse as numbers are stored as numbers.
func WriteXLSX(w io.Writer, sheet string, f Frame) error {
	book := excelize.NewFile()
	defer book.Close()

	name := SheetName(sheet)
	if name != "Sheet1" {
		if err := book.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("name worksheet: %w", err)
		}
	}

	header := make([]any, len(f.Columns))
	for j, c := range f.Columns {
		header[j] = c
	}
	if err := book.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	if bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = book.SetRowStyle(name, 1, 1, bold)
	}

	for i, cells := range f.Rows {
		row := make([]any, len(f.Columns))
		for j := range row {
			row[j] = xlsxCell(cells, j)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}

	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// ReadXLSX reads the first worksheet of a workbook into a frame. The first
// row is the header.
func ReadXLSX(r io.Reader) (Frame, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return Frame{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer book.Close()

	rows, err := book.GetRows(book.GetSheetName(0))
	if err != nil {
		return Frame{}, fmt.Errorf("read xlsx: %w", err)
	}
	return frameFromStrings(rows)
}

// SheetName turns a table key into a valid worksheet name.
func SheetName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(key))
	if runes := []rune(name); len(runes) > maxSheetName {
		name = strings.TrimSpace(string(runes[:maxSheetName]))
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}

// frameFromStrings builds a frame from a header row and data rows. Short
// rows are padded with nil, which spreadsheet readers produce for trailing
// empty cells. Rows with no values are skipped.
func frameFromStrings(records [][]string) (Frame, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return Frame{}, ErrEmptySheet
	}
	f := Frame{Columns: append([]string(nil), records[0]...), Rows: make([][]any, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if len(rec) > len(f.Columns) {
			return Frame{}, fmt.Errorf("row %d has %d cells for %d columns", len(f.Rows)+1, len(rec), len(f.Columns))
		}
		cells := make([]any, len(f.Columns))
		blank := true
		for j, v := range rec {
			if v != "" {
				cells[j] = v
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
		}
		if !blank {
			f.Rows = append(f.Rows, cells)
		}
	}
	return f, nil
}

func exportCell(cells []any, j int) string {
	if j >= len(cells) {
		return ""
	}
	v := flatCell(cells[j])
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}

// xlsxCell writes every value as text so leading zeros, trailing zeros
// and exponent forms read back exactly as the model rendered them.
func xlsxCell(cells []any, j int) any {
	s := exportCell(cells, j)
	if s == "" {
		return nil
	}
	return s
}
