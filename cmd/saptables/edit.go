package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) updateCmd() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "update TABLE FILE",
		Short: "Stage replacement rows for a table",
		Long: `Stage the rows in FILE as the new content of TABLE. The file type is
taken from its extension: .json (array of objects), .yaml/.yml (list of
mappings), .csv or .xlsx (header row first). Use - to read JSON from stdin.

Staged edits stay in the application until "saptables apply" or
"saptables discard". --apply commits them at once.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := readFrameFile(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}

			report, err := a.svc.UpdateFrame(a.ctx(cmd), args[0], frame, apply)
			if report != nil {
				if werr := writeReport(a.out, a.format, *report); werr != nil {
					return werr
				}
			}
			if err != nil {
				return err
			}
			if !apply {
				fmt.Fprintf(a.out, "staged %d rows for %s\n", len(frame.Rows), args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply all staged edits after staging")
	return cmd
}

func (a *app) applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply staged edits to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.svc.ApplyEdits(a.ctx(cmd))
			if werr := writeReport(a.out, a.format, report); werr != nil {
				return werr
			}
			return err
		},
	}
}

func (a *app) discardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Drop staged edits without applying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DiscardEdits(a.ctx(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "staged edits discarded")
			return nil
		},
	}
}

// readFrameFile loads rows from path, choosing the decoder by extension.
func readFrameFile(stdin io.Reader, path string) (core.Frame, error) {
	if path == "-" {
		return decodeJSONRows(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return core.Frame{}, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return decodeJSONRows(f)
	case ".yaml", ".yml":
		var rows []core.TableRow
		if err := yaml.NewDecoder(f).Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
			return core.Frame{}, fmt.Errorf("decode %s: %w", path, err)
		}
		return core.FrameFromRows(rows), nil
	case ".csv":
		return core.ReadCSV(f)
	case ".xlsx":
		return core.ReadXLSX(f)
	default:
		return core.Frame{}, fmt.Errorf("unsupported file type %q (json, yaml, csv, xlsx)", ext)
	}
}

func decodeJSONRows(r io.Reader) (core.Frame, error) {
	var rows []core.TableRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return core.Frame{}, fmt.Errorf("decode rows: %w", err)
	}
	return core.FrameFromRows(rows), nil
}
