package core

import (
	"strings"
	"testing"
)

// ============================================================================
// WhereBuilder Tests
// ============================================================================

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()

	if wb == nil {
		t.Fatal("NewWhereBuilder returned nil")
	}
	if wb.argIndex != 1 {
		t.Errorf("expected argIndex to be 1, got %d", wb.argIndex)
	}
	if len(wb.conditions) != 0 {
		t.Errorf("expected empty conditions, got %d", len(wb.conditions))
	}
}

func TestWhereBuilder_Build_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	whereClause, args := wb.Build()

	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}
	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
}

func TestWhereBuilder_Add_MultipleConditions(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("action", "apply")
	wb.Add("table_key", "Joint Coordinates")

	whereClause, args := wb.Build()

	expectedClause := " WHERE action = $1 AND table_key = $2"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}
	if len(args) != 2 || args[0] != "apply" || args[1] != "Joint Coordinates" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestWhereBuilder_Add_EmptyValue_Skipped(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("action", "")
	wb.Add("severity", "high")

	whereClause, args := wb.Build()

	expectedClause := " WHERE severity = $1"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}
	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(args))
	}
}

func TestWhereBuilder_AddBool(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddBool("success", nil)
	no := false
	wb.AddBool("success", &no)

	whereClause, args := wb.Build()
	if whereClause != " WHERE success = $1" {
		t.Errorf("got %q", whereClause)
	}
	if len(args) != 1 || args[0] != false {
		t.Errorf("args = %v", args)
	}
}

func TestWhereBuilder_NextArgIndex(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.NextArgIndex() != 1 {
		t.Errorf("expected initial NextArgIndex to be 1, got %d", wb.NextArgIndex())
	}

	wb.Add("col1", "val1")
	if wb.NextArgIndex() != 2 {
		t.Errorf("expected NextArgIndex after 1 add to be 2, got %d", wb.NextArgIndex())
	}

	wb.AddTimestampRange("created_at", "start", "end")
	if wb.NextArgIndex() != 4 {
		t.Errorf("expected NextArgIndex after timestamp range to be 4, got %d", wb.NextArgIndex())
	}
}

func TestWhereBuilder_AddSearch(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		columns       []string
		wantClause    string
		wantArgsCount int
	}{
		{
			name:          "empty query skipped",
			query:         "  ",
			columns:       []string{"message"},
			wantClause:    "",
			wantArgsCount: 0,
		},
		{
			name:          "no columns skipped",
			query:         "joint",
			wantClause:    "",
			wantArgsCount: 0,
		},
		{
			name:          "single column",
			query:         "locked",
			columns:       []string{"message"},
			wantClause:    ` WHERE ("message" ILIKE $1)`,
			wantArgsCount: 1,
		},
		{
			name:          "shared placeholder",
			query:         "joint",
			columns:       []string{"table_key", "message"},
			wantClause:    ` WHERE ("table_key" ILIKE $1 OR "message" ILIKE $1)`,
			wantArgsCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddSearch(tt.query, tt.columns...)

			gotClause, gotArgs := wb.Build()

			if gotClause != tt.wantClause {
				t.Errorf("clause = %q, want %q", gotClause, tt.wantClause)
			}
			if len(gotArgs) != tt.wantArgsCount {
				t.Errorf("args count = %d, want %d", len(gotArgs), tt.wantArgsCount)
			}
			if tt.wantArgsCount > 0 && gotArgs[0] != "%"+tt.query+"%" {
				t.Errorf("search arg = %q", gotArgs[0])
			}
		})
	}
}

func TestWhereBuilder_ComplexQuery(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddSearch("joint", "table_key", "message")
	wb.Add("action", "apply")
	wb.AddTimestampRange("created_at", "2024-01-01", "2024-12-31")

	whereClause, args := wb.Build()

	for _, cond := range []string{`"table_key" ILIKE $1`, "action = $2", "created_at >= $3", "created_at <= $4"} {
		if !strings.Contains(whereClause, cond) {
			t.Errorf("expected whereClause to contain %q, got %q", cond, whereClause)
		}
	}
	if len(args) != 4 {
		t.Errorf("expected 4 args, got %d: %v", len(args), args)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "normal identifier", input: "journal", want: `"journal"`},
		{name: "mixed case preserved", input: "TableKey", want: `"TableKey"`},
		{name: "contains space", input: "table key", want: `"table key"`},
		{name: "contains double quote - escaped", input: `table"key`, want: `"table""key"`},
		{name: "sql injection attempt safely quoted", input: `x"; DROP TABLE journal; --`, want: `"x""; DROP TABLE journal; --"`},
		{name: "empty string", input: "", want: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quoteIdentifier(tt.input); got != tt.want {
				t.Errorf("quoteIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
