package core

import (
	"fmt"
	"strings"
)

// WhereBuilder assembles a parameterized SQL WHERE clause. Placeholders are
// numbered in the order conditions are added.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n". Empty values are skipped.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", column, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddBool appends "column = $n" when value is non-nil.
func (wb *WhereBuilder) AddBool(column string, value *bool) {
	if value == nil {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", column, wb.argIndex))
	wb.args = append(wb.args, *value)
	wb.argIndex++
}

// AddTimestampRange appends an inclusive range on column.
func (wb *WhereBuilder) AddTimestampRange(column string, start, end any) {
	wb.conditions = append(wb.conditions,
		fmt.Sprintf("%s >= $%d", column, wb.argIndex),
		fmt.Sprintf("%s <= $%d", column, wb.argIndex+1),
	)
	wb.args = append(wb.args, start, end)
	wb.argIndex += 2
}

// AddSearch appends a case-insensitive substring match of query against any
// of columns. One placeholder is shared by every column.
func (wb *WhereBuilder) AddSearch(query string, columns ...string) {
	query = strings.TrimSpace(query)
	if query == "" || len(columns) == 0 {
		return
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", quoteIdentifier(c), wb.argIndex)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+query+"%")
	wb.argIndex++
}

// NextArgIndex returns the number of the next placeholder.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns " WHERE ..." and its arguments, or "" and nil when no
// condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
