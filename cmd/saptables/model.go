package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/spf13/cobra"
)

func (a *app) unitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units [SYSTEM]",
		Short: "Show or set the model's present units",
		Long: `Without an argument, print the present and database unit systems.
With one, set the present units, e.g. "saptables units kN_m_C".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.ctx(cmd)
			if len(args) == 1 {
				u, err := core.ParseUnits(args[0])
				if err != nil {
					return err
				}
				if err := a.svc.SetPresentUnits(ctx, u); err != nil {
					return err
				}
			}

			present, err := a.svc.PresentUnits(ctx)
			if err != nil {
				return err
			}
			database, err := a.svc.DatabaseUnits(ctx)
			if err != nil {
				return err
			}
			v := map[string]any{"present": present, "database": database, "canonical": a.svc.CanonicalUnits()}
			return writeValue(a.out, a.format, v, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "present\t%s\n", present)
				fmt.Fprintf(tw, "database\t%s\n", database)
				fmt.Fprintf(tw, "canonical\t%s\n", a.svc.CanonicalUnits())
			})
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Summarize the open model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.svc.ModelInfo(a.ctx(cmd))
			if err != nil {
				return err
			}
			return writeValue(a.out, a.format, info, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "file\t%s\n", info.Filename)
				fmt.Fprintf(tw, "version\t%s (API %g)\n", info.Version, info.APIVersion)
				fmt.Fprintf(tw, "present units\t%s\n", info.PresentUnits)
				fmt.Fprintf(tw, "database units\t%s\n", info.DatabaseUnits)
				fmt.Fprintf(tw, "locked\t%t\n", info.Locked)
				fmt.Fprintf(tw, "merge tolerance\t%g\n", info.MergeTolerance)
			})
		},
	}
}

func (a *app) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save [PATH]",
		Short: "Save the model, in place or to PATH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			ctx := a.ctx(cmd)
			if err := a.svc.Save(ctx, path); err != nil {
				return err
			}
			name, err := a.svc.ModelFilename(ctx, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %s\n", name)
			return nil
		},
	}
}
