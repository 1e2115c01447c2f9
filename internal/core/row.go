package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// TableRow is one record of table data: field names mapped to cell values,
// in field order. Rows have no identity beyond their position in a table.
//
// Setting a field that is already present replaces its value and keeps its
// position, so headers repeated in a table collapse into one entry.
type TableRow struct {
	fields []string
	values map[string]any
}

// NewRow builds a row from parallel field and value slices. Values beyond
// the last field are ignored; fields beyond the last value are nil.
func NewRow(fields []string, values []any) TableRow {
	r := TableRow{
		fields: make([]string, 0, len(fields)),
		values: make(map[string]any, len(fields)),
	}
	for i, f := range fields {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Set(f, v)
	}
	return r
}

// Set assigns value to field, appending the field if it is new.
func (r *TableRow) Set(field string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[field]; !ok {
		r.fields = append(r.fields, field)
	}
	r.values[field] = value
}

// Get returns the value of field and whether the row has it.
func (r TableRow) Get(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Value returns the value of field, or nil.
func (r TableRow) Value(field string) any {
	return r.values[field]
}

// Fields returns the field names in order.
func (r TableRow) Fields() []string {
	return append([]string(nil), r.fields...)
}

// Values returns the cell values in field order.
func (r TableRow) Values() []any {
	out := make([]any, len(r.fields))
	for i, f := range r.fields {
		out[i] = r.values[f]
	}
	return out
}

// Len returns the number of fields.
func (r TableRow) Len() int { return len(r.fields) }

// Map returns an unordered copy of the row.
func (r TableRow) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the row as a JSON object in field order.
func (r TableRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[f])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the order its keys appear
// in. Numbers are kept as json.Number so they flatten without reformatting.
func (r *TableRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("table row: expected object, got %v", tok)
	}

	*r = TableRow{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("table row: expected field name, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("table row field %q: %w", key, err)
		}
		r.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

// MarshalYAML encodes the row as a YAML mapping in field order.
func (r TableRow) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range r.fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: f}
		val := &yaml.Node{}
		if err := val.Encode(r.values[f]); err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, keeping key order. Scalars keep
// their source text so numbers flatten without reformatting.
func (r *TableRow) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("table row: expected mapping at line %d", node.Line)
	}
	*r = TableRow{values: make(map[string]any)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch {
		case val.Kind == yaml.ScalarNode && val.Tag == "!!null":
			r.Set(key.Value, nil)
		case val.Kind == yaml.ScalarNode:
			r.Set(key.Value, val.Value)
		default:
			var v any
			if err := val.Decode(&v); err != nil {
				return fmt.Errorf("table row field %q: %w", key.Value, err)
			}
			r.Set(key.Value, v)
		}
	}
	return nil
}
