package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/spf13/cobra"
)

func (a *app) tablesCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the model's database tables",
		Long: `List the tables that currently hold data. With --all, list every
table the application defines and mark the empty ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := a.svc.ListAvailableTables
			if all {
				list = a.svc.ListAllTables
			}
			tables, err := list(a.ctx(cmd))
			if err != nil {
				return err
			}
			if tables == nil {
				tables = []core.TableDescriptor{}
			}
			return writeValue(a.out, a.format, tables, func(tw *tabwriter.Writer) {
				if all {
					fmt.Fprintln(tw, "KEY\tIMPORT\tEMPTY")
				} else {
					fmt.Fprintln(tw, "KEY\tIMPORT")
				}
				for _, t := range tables {
					if all {
						fmt.Fprintf(tw, "%s\t%s\t%t\n", t.Key, t.ImportType, t.IsEmpty)
					} else {
						fmt.Fprintf(tw, "%s\t%s\n", t.Key, t.ImportType)
					}
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include tables without data")
	return cmd
}

func (a *app) fieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields TABLE",
		Short: "Describe the fields of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := a.svc.TableFields(a.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			return writeValue(a.out, a.format, fields, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "KEY\tNAME\tUNITS\tIMPORTABLE\tDESCRIPTION")
				for _, f := range fields {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", f.FieldKey, f.FieldName, f.UnitsLabel, f.IsImportable, f.Description)
				}
			})
		},
	}
}

func (a *app) dataCmd() *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "data TABLE",
		Short: "Print a table's rows in the canonical units",
		Long: `Print a table's rows. Values are read in the canonical unit system
and the model's present units are restored afterwards.

Examples:
  saptables data "Joint Coordinates"
  saptables data "Joint Coordinates" -o csv > joints.csv
  saptables data "Joint Coordinates" --xlsx joints.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := a.svc.TableFrame(a.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			if xlsxPath == "" {
				return writeFrame(a.out, a.format, frame)
			}

			f, err := os.Create(xlsxPath)
			if err != nil {
				return err
			}
			if err := core.WriteXLSX(f, core.SheetName(args[0]), frame); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %d rows to %s\n", len(frame.Rows), xlsxPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write the rows to an XLSX workbook instead of stdout")
	return cmd
}
