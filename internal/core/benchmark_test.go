package core

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Row/Column Conversion Benchmarks
// ============================================================================

// benchTable builds a flat table of n rows in the layout GetTableForDisplayArray
// returns.
func benchTable(n int) ([]string, []any) {
	headers := []string{"Joint", "CoordSys", "CoordType", "XorR", "Y", "Z"}
	flat := make([]any, 0, n*len(headers))
	for i := 0; i < n; i++ {
		flat = append(flat, fmt.Sprint(i+1), "GLOBAL", "Cartesian", "6", "0", "3.5")
	}
	return headers, flat
}

// BenchmarkToRows benchmarks splitting a flat array into records.
// Every table read goes through it.
func BenchmarkToRows(b *testing.B) {
	headers, flat := benchTable(1000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ToRows(headers, flat); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkToFlat benchmarks the write layout built before staging edits.
func BenchmarkToFlat(b *testing.B) {
	headers, flat := benchTable(1000)
	rows, err := ToRows(headers, flat)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ToFlat(rows)
	}
}

// BenchmarkToFrame benchmarks the columnar read used by exports.
func BenchmarkToFrame(b *testing.B) {
	headers, flat := benchTable(1000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ToFrame(headers, flat); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Call Normalizer Benchmarks
// ============================================================================

// BenchmarkNormalize benchmarks the result shapes returned by automation calls.
func BenchmarkNormalize(b *testing.B) {
	cases := []any{
		0,
		[]any{"kN_m_C", 0},
		[]any{int32(4), []any{"Joint Coordinates"}, []any{"Joint Coordinates"}, []any{int32(1)}, 0},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, c := range cases {
			if _, err := Normalize(c); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// ============================================================================
// Export Benchmarks
// ============================================================================

// BenchmarkReadCSV benchmarks parsing an uploaded CSV edit file.
func BenchmarkReadCSV(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("Joint,CoordSys,CoordType,XorR,Y,Z\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "%d,GLOBAL,Cartesian,6,0,3.5\n", i+1)
	}
	data := sb.String()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ReadCSV(strings.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkWriteCSV benchmarks a table export.
func BenchmarkWriteCSV(b *testing.B) {
	headers, flat := benchTable(1000)
	frame, err := ToFrame(headers, flat)
	if err != nil {
		b.Fatal(err)
	}
	var buf bytes.Buffer

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := WriteCSV(&buf, frame); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Journal Benchmarks
// ============================================================================

// BenchmarkWhereBuilder benchmarks the journal filter query.
func BenchmarkWhereBuilder(b *testing.B) {
	success := true

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wb := NewWhereBuilder()
		wb.Add("table_key", "Joint Coordinates")
		wb.Add("action", "apply")
		wb.AddBool("success", &success)
		wb.AddSearch("joint", "table_key", "message")
		wb.Build()
	}
}

// BenchmarkHandleLeaseParallel benchmarks uncontended and contended leases.
func BenchmarkHandleLeaseParallel(b *testing.B) {
	lease := NewHandleLease(0)
	ctx := b.Context()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := lease.Acquire(ctx, "bench"); err != nil {
				b.Error(err)
				return
			}
			lease.Release()
		}
	})
}
