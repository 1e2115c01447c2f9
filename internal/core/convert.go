package core

// convert.go reshapes between the application's flat cell sequence and
// ordered records.
//
// The application lays table cells out row-major: with n headers, the cell
// at index i belongs to header i%n of row i/n. A sequence whose length is
// not a multiple of n means the cells and headers are out of step; that is
// always an error, never truncated or padded.
//
// On the way back, absent values and empty strings both flatten to nil, the
// application's "no value" marker. Reading back a row written with "" yields
// an absent cell, not "".

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/spf13/cast"
)

// ErrShapeMismatch is matched by every *ShapeMismatchError.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeMismatchError reports a flat cell sequence whose length is not a
// multiple of its header count.
type ShapeMismatchError struct {
	Cells   int
	Headers int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("array length (%d) is not divisible by header length (%d)", e.Cells, e.Headers)
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

func checkShape(headers int, cells int) error {
	if headers == 0 {
		if cells == 0 {
			return nil
		}
		return &ShapeMismatchError{Cells: cells, Headers: headers}
	}
	if cells%headers != 0 {
		return &ShapeMismatchError{Cells: cells, Headers: headers}
	}
	return nil
}

// ToRows splits flat into len(flat)/len(headers) rows keyed by headers.
// Nothing is returned on a shape mismatch.
func ToRows(headers []string, flat []any) ([]TableRow, error) {
	if err := checkShape(len(headers), len(flat)); err != nil {
		return nil, err
	}
	n := len(headers)
	if n == 0 {
		return []TableRow{}, nil
	}

	rows := make([]TableRow, len(flat)/n)
	for i, cell := range flat {
		r := i / n
		if i%n == 0 {
			rows[r] = TableRow{
				fields: make([]string, 0, n),
				values: make(map[string]any, n),
			}
		}
		rows[r].Set(headers[i%n], cell)
	}
	return rows, nil
}

// ToFlat concatenates rows into the flat write layout, using the first
// row's fields as the header for every row. A field missing from a later
// row flattens to nil; extra fields of later rows are dropped.
func ToFlat(rows []TableRow) []any {
	if len(rows) == 0 {
		return []any{}
	}
	headers := rows[0].fields
	out := make([]any, 0, len(rows)*len(headers))
	for _, row := range rows {
		for _, h := range headers {
			out = append(out, flatCell(row.values[h]))
		}
	}
	return out
}

// Headers returns the field order ToFlat writes rows in.
func Headers(rows []TableRow) []string {
	if len(rows) == 0 {
		return nil
	}
	return rows[0].Fields()
}

// flatCell normalizes one value for writing: nil for anything absent or
// empty, the string form otherwise.
func flatCell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
		return x
	case float64:
		if math.IsNaN(x) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) {
			return nil
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil
		}
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		s = fmt.Sprint(v)
	}
	if s == "" {
		return nil
	}
	return s
}

// Frame is the column-oriented view of a table: one header list and the
// rows as positional slices.
type Frame struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

// ToFrame splits flat into rows of len(headers) cells. It has the same
// shape rule as ToRows.
func ToFrame(headers []string, flat []any) (Frame, error) {
	if err := checkShape(len(headers), len(flat)); err != nil {
		return Frame{}, err
	}
	f := Frame{Columns: append([]string(nil), headers...), Rows: [][]any{}}
	n := len(headers)
	for i := 0; n > 0 && i < len(flat); i += n {
		f.Rows = append(f.Rows, append([]any(nil), flat[i:i+n]...))
	}
	return f, nil
}

// FrameFromRows builds a frame whose columns are the first row's fields.
func FrameFromRows(rows []TableRow) Frame {
	f := Frame{Columns: Headers(rows), Rows: make([][]any, len(rows))}
	for i, row := range rows {
		cells := make([]any, len(f.Columns))
		for j, c := range f.Columns {
			cells[j] = row.values[c]
		}
		f.Rows[i] = cells
	}
	return f
}

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.Rows) }

// Records returns the frame as ordered rows.
func (f Frame) Records() []TableRow {
	rows := make([]TableRow, len(f.Rows))
	for i, cells := range f.Rows {
		rows[i] = NewRow(f.Columns, cells)
	}
	return rows
}

// Flatten is the frame counterpart of ToFlat. Short rows are padded with
// nil and long rows are cut to the column count.
func (f Frame) Flatten() []any {
	out := make([]any, 0, len(f.Rows)*len(f.Columns))
	for _, cells := range f.Rows {
		for j := range f.Columns {
			var v any
			if j < len(cells) {
				v = cells[j]
			}
			out = append(out, flatCell(v))
		}
	}
	return out
}
