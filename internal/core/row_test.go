package core

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestTableRow_JSONKeepsFieldOrder(t *testing.T) {
	row := NewRow([]string{"Z", "Joint", "CoordSys"}, []any{3.5, "2", nil})

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"Z":3.5,"Joint":"2","CoordSys":null}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var back TableRow
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := back.Fields(); !reflect.DeepEqual(got, []string{"Z", "Joint", "CoordSys"}) {
		t.Errorf("Fields() = %v", got)
	}
	if got := back.Value("Z"); got != json.Number("3.5") {
		t.Errorf("Z = %#v, want json.Number(3.5)", got)
	}
}

func TestTableRow_UnmarshalRejectsNonObject(t *testing.T) {
	var row TableRow
	if err := json.Unmarshal([]byte(`["a"]`), &row); err == nil {
		t.Error("Unmarshal() of an array succeeded")
	}
}

func TestTableRow_UnmarshalSlice(t *testing.T) {
	var rows []TableRow
	data := `[{"LoadPat":"WIND","DesignType":"Wind","SelfWtMult":0},{"LoadPat":"SNOW","DesignType":"Snow","SelfWtMult":0}]`
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := []any{"WIND", "Wind", "0", "SNOW", "Snow", "0"}
	if got := ToFlat(rows); !reflect.DeepEqual(got, want) {
		t.Errorf("ToFlat() = %#v, want %#v", got, want)
	}
}

func TestTableRow_YAMLKeepsFieldOrder(t *testing.T) {
	row := NewRow([]string{"Material", "E1"}, []any{"4000Psi", "24855578.06"})

	data, err := yaml.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(data)
	if m, e := strings.Index(out, "Material:"), strings.Index(out, "E1:"); m < 0 || e < m {
		t.Errorf("Marshal() = %q, want Material before E1", out)
	}

	var back map[string]string
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back["E1"] != "24855578.06" {
		t.Errorf("E1 = %q, want the string kept", back["E1"])
	}
}

func TestTableRow_Set(t *testing.T) {
	var row TableRow
	row.Set("A", 1)
	row.Set("B", 2)
	row.Set("A", 3)

	if got := row.Fields(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("Fields() = %v", got)
	}
	if v, ok := row.Get("A"); !ok || v != 3 {
		t.Errorf("Get(A) = %v, %v", v, ok)
	}
	if _, ok := row.Get("C"); ok {
		t.Error("Get(C) reported a missing field")
	}
	if m := row.Map(); len(m) != 2 {
		t.Errorf("Map() = %v", m)
	}
}

func TestTableRow_UnmarshalYAML(t *testing.T) {
	src := "- LoadPat: WIND\n  DesignType: Wind\n  SelfWtMult: 0.50\n- LoadPat: ~\n"
	var rows []TableRow
	if err := yaml.Unmarshal([]byte(src), &rows); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if got := rows[0].Fields(); !reflect.DeepEqual(got, []string{"LoadPat", "DesignType", "SelfWtMult"}) {
		t.Errorf("Fields() = %v", got)
	}
	if v := rows[0].Value("SelfWtMult"); v != "0.50" {
		t.Errorf("SelfWtMult = %#v, want source text", v)
	}
	if v, ok := rows[1].Get("LoadPat"); !ok || v != nil {
		t.Errorf("LoadPat = %#v, %v, want nil present", v, ok)
	}

	var bad TableRow
	if err := yaml.Unmarshal([]byte("- a\n- b\n"), &bad); err == nil {
		t.Error("Unmarshal(sequence) error = nil")
	}
}
