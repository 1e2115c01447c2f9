package oapi

// decode.go turns status-stripped result tuples into named records.
//
// Each Decode* function accepts the payload left after the trailing status
// has been checked and removed, validates its shape once, and coerces the
// positional elements to Go types. A malformed payload is an error, never a
// panic.

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"
)

// TableListing is the decoded result of GetAllTables or GetAvailableTables.
type TableListing struct {
	Keys        []string
	Names       []string
	ImportTypes []int
	// Empty is nil for GetAvailableTables, which does not report it.
	Empty []bool
}

// Len returns the number of tables in the listing.
func (l TableListing) Len() int { return len(l.Keys) }

// FieldListing is the decoded result of GetAllFieldsInTable.
type FieldListing struct {
	Keys         []string
	Names        []string
	Descriptions []string
	Units        []string
	Importable   []bool
}

// Len returns the number of fields in the listing.
func (l FieldListing) Len() int { return len(l.Keys) }

// DisplayArray is the decoded result of GetTableForDisplayArray: the field
// keys actually included and the flat cell sequence, row after row.
type DisplayArray struct {
	Headers []string
	Records int
	Cells   []any
}

// ApplyOutcome is the decoded result of ApplyEditedTables.
type ApplyOutcome struct {
	Fatal    int
	Errors   int
	Warnings int
	Info     int
	Log      string
}

// ProjectItem is one key/value pair of model project information.
type ProjectItem struct {
	Item string `json:"item" yaml:"item"`
	Data string `json:"data" yaml:"data"`
}

// DecodeTableListing decodes (count, keys, names, importTypes[, empty]).
func DecodeTableListing(payload any, withEmpty bool) (TableListing, error) {
	want := 4
	if withEmpty {
		want = 5
	}
	p, err := tuple(payload, want)
	if err != nil {
		return TableListing{}, fmt.Errorf("table listing: %w", err)
	}

	var l TableListing
	if l.Keys, err = stringSlice(p[1]); err != nil {
		return TableListing{}, fmt.Errorf("table listing keys: %w", err)
	}
	if l.Names, err = stringSlice(p[2]); err != nil {
		return TableListing{}, fmt.Errorf("table listing names: %w", err)
	}
	if l.ImportTypes, err = intSlice(p[3]); err != nil {
		return TableListing{}, fmt.Errorf("table listing import types: %w", err)
	}
	if withEmpty {
		if l.Empty, err = boolSlice(p[4]); err != nil {
			return TableListing{}, fmt.Errorf("table listing empty flags: %w", err)
		}
	}

	if err := sameLength(len(l.Keys), len(l.Names), len(l.ImportTypes)); err != nil {
		return TableListing{}, fmt.Errorf("table listing: %w", err)
	}
	if withEmpty {
		if err := sameLength(len(l.Keys), len(l.Empty)); err != nil {
			return TableListing{}, fmt.Errorf("table listing: %w", err)
		}
	}
	for i, it := range l.ImportTypes {
		if it < ImportNone || it > ImportLockedOrUnlocked {
			return TableListing{}, fmt.Errorf("table listing: %q has unknown import type %d", l.Keys[i], it)
		}
	}
	return l, nil
}

// DecodeFieldListing decodes the trailing five arrays of a
// GetAllFieldsInTable payload; leading header elements (table version,
// field count) are ignored.
func DecodeFieldListing(payload any) (FieldListing, error) {
	p, err := asSlice(payload)
	if err != nil {
		return FieldListing{}, fmt.Errorf("field listing: %w", err)
	}
	if len(p) < 5 {
		return FieldListing{}, fmt.Errorf("field listing: want at least 5 elements, got %d", len(p))
	}
	p = p[len(p)-5:]

	var l FieldListing
	if l.Keys, err = stringSlice(p[0]); err != nil {
		return FieldListing{}, fmt.Errorf("field keys: %w", err)
	}
	if l.Names, err = stringSlice(p[1]); err != nil {
		return FieldListing{}, fmt.Errorf("field names: %w", err)
	}
	if l.Descriptions, err = stringSlice(p[2]); err != nil {
		return FieldListing{}, fmt.Errorf("field descriptions: %w", err)
	}
	if l.Units, err = stringSlice(p[3]); err != nil {
		return FieldListing{}, fmt.Errorf("field units: %w", err)
	}
	if l.Importable, err = boolSlice(p[4]); err != nil {
		return FieldListing{}, fmt.Errorf("field importable flags: %w", err)
	}
	if err := sameLength(len(l.Keys), len(l.Names), len(l.Descriptions), len(l.Units), len(l.Importable)); err != nil {
		return FieldListing{}, fmt.Errorf("field listing: %w", err)
	}
	return l, nil
}

// DecodeDisplayArray decodes (fieldKeyList, version, headers, records, cells).
func DecodeDisplayArray(payload any) (DisplayArray, error) {
	p, err := tuple(payload, 5)
	if err != nil {
		return DisplayArray{}, fmt.Errorf("display array: %w", err)
	}

	var d DisplayArray
	if d.Headers, err = stringSlice(p[2]); err != nil {
		return DisplayArray{}, fmt.Errorf("display array headers: %w", err)
	}
	if d.Records, err = cast.ToIntE(p[3]); err != nil {
		return DisplayArray{}, fmt.Errorf("display array record count: %w", err)
	}
	if p[4] != nil {
		if d.Cells, err = asSlice(p[4]); err != nil {
			return DisplayArray{}, fmt.Errorf("display array cells: %w", err)
		}
	}
	return d, nil
}

// DecodeApplyOutcome decodes (fatal, errors, warnings, info, log).
func DecodeApplyOutcome(payload any) (ApplyOutcome, error) {
	p, err := tuple(payload, 5)
	if err != nil {
		return ApplyOutcome{}, fmt.Errorf("apply outcome: %w", err)
	}

	counts := make([]int, 4)
	for i := range counts {
		if counts[i], err = cast.ToIntE(p[i]); err != nil {
			return ApplyOutcome{}, fmt.Errorf("apply outcome count %d: %w", i, err)
		}
	}
	return ApplyOutcome{
		Fatal:    counts[0],
		Errors:   counts[1],
		Warnings: counts[2],
		Info:     counts[3],
		Log:      cast.ToString(p[4]),
	}, nil
}

// DecodeProjectInfo decodes (count, items, data).
func DecodeProjectInfo(payload any) ([]ProjectItem, error) {
	p, err := tuple(payload, 3)
	if err != nil {
		return nil, fmt.Errorf("project info: %w", err)
	}
	items, err := stringSlice(p[1])
	if err != nil {
		return nil, fmt.Errorf("project info items: %w", err)
	}
	data, err := stringSlice(p[2])
	if err != nil {
		return nil, fmt.Errorf("project info data: %w", err)
	}
	if err := sameLength(len(items), len(data)); err != nil {
		return nil, fmt.Errorf("project info: %w", err)
	}

	out := make([]ProjectItem, len(items))
	for i := range items {
		out[i] = ProjectItem{Item: items[i], Data: data[i]}
	}
	return out, nil
}

// DecodeVersion decodes (versionString, versionNumber) and returns the
// version string. A bare string payload is accepted as well.
func DecodeVersion(payload any) (string, error) {
	if s, ok := payload.(string); ok {
		return s, nil
	}
	p, err := asSlice(payload)
	if err != nil {
		return "", fmt.Errorf("version: %w", err)
	}
	if len(p) == 0 {
		return "", fmt.Errorf("version: empty payload")
	}
	return cast.ToStringE(p[0])
}

func tuple(payload any, n int) ([]any, error) {
	p, err := asSlice(payload)
	if err != nil {
		return nil, err
	}
	if len(p) != n {
		return nil, fmt.Errorf("want %d elements, got %d", n, len(p))
	}
	return p, nil
}

// asSlice accepts []any directly and any other slice or array kind by
// reflection, which is how COM safe arrays of concrete types arrive.
func asSlice(v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case nil:
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a sequence, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func stringSlice(v any) ([]string, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	items, err := asSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		if out[i], err = cast.ToStringE(item); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func intSlice(v any) ([]int, error) {
	items, err := asSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(items))
	for i, item := range items {
		if out[i], err = cast.ToIntE(item); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func boolSlice(v any) ([]bool, error) {
	items, err := asSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(items))
	for i, item := range items {
		if out[i], err = cast.ToBoolE(item); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func sameLength(lengths ...int) error {
	for _, n := range lengths[1:] {
		if n != lengths[0] {
			return fmt.Errorf("array lengths differ: %v", lengths)
		}
	}
	return nil
}
