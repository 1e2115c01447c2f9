package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatCSV   = "csv"
)

func validFormat(f string) bool {
	switch f {
	case formatTable, formatJSON, formatYAML, formatCSV:
		return true
	}
	return false
}

// writeValue encodes v as JSON or YAML. Other formats use table, which
// writes tab-separated lines.
func writeValue(w io.Writer, format string, v any, table func(tw *tabwriter.Writer)) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

// writeFrame prints table data. JSON and YAML keep each row's field order.
func writeFrame(w io.Writer, format string, f core.Frame) error {
	switch format {
	case formatCSV:
		return core.WriteCSV(w, f)
	case formatJSON, formatYAML:
		rows := f.Records()
		if rows == nil {
			rows = []core.TableRow{}
		}
		return writeValue(w, format, rows, nil)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(f.Columns, "\t"))
	for _, row := range f.Rows {
		cells := make([]string, len(f.Columns))
		for i := range cells {
			if i < len(row) && row[i] != nil {
				cells[i] = cast.ToString(row[i])
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeReport(w io.Writer, format string, r core.CommitReport) error {
	return writeValue(w, format, r, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "FATAL\tERRORS\tWARNINGS\tINFO")
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", r.Fatal, r.Errors, r.Warnings, r.Info)
		if msg := strings.TrimSpace(r.Message); msg != "" {
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, msg)
		}
	})
}
