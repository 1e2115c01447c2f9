package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/saptables/internal/config"
	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/oapi"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	// Version is the CLI release.
	Version = "0.1.0"

	journalSource = "cli"

	// skipService marks commands that run without an automation handle.
	skipService = "skip-service"
)

// opener returns a service for the named backend ("" means the configured one).
type opener func(ctx context.Context, backend string) (*core.Service, error)

// app carries the state shared by every command of one invocation.
type app struct {
	open    opener
	out     io.Writer
	svc     *core.Service
	backend string
	format  string
}

func newApp(open opener, out io.Writer) *app {
	return &app{open: open, out: out}
}

// execute runs the command line in args and closes the service it opened,
// whether or not the command succeeded.
func (a *app) execute(ctx context.Context, args []string) (err error) {
	root := a.rootCmd()
	root.SetArgs(args)
	defer func() {
		if a.svc == nil {
			return
		}
		if cerr := a.svc.Close(context.Background()); err == nil {
			err = cerr
		}
		a.svc = nil
	}()
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "saptables",
		Short: "Read and edit SAP2000 database tables",
		Long: `saptables - SAP2000 database table tool

Lists the model's tables, reads them as rows of named fields in a fixed
unit system, and stages or applies edits from JSON, YAML, CSV or XLSX
files.

Examples:
  # Tables that can be read from the open model
  saptables tables

  # Joint coordinates as YAML
  saptables data "Joint Coordinates" -o yaml

  # Replace the load patterns and apply at once
  saptables update "Load Pattern Definitions" patterns.csv --apply`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := cmd.Annotations[skipService]; ok || cmd.Name() == "help" {
				return nil
			}
			if !validFormat(a.format) {
				return fmt.Errorf("unknown output format %q (table, json, yaml, csv)", a.format)
			}
			svc, err := a.open(cmd.Context(), a.backend)
			if err != nil {
				return err
			}
			a.svc = svc
			return nil
		},
	}
	root.SetOut(a.out)
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&a.backend, "backend", "", "Automation backend: com or sim (default from AUTOMATION_BACKEND)")
	root.PersistentFlags().StringVarP(&a.format, "output", "o", formatTable, "Output format: table, json, yaml, csv")

	root.AddCommand(
		a.tablesCmd(),
		a.fieldsCmd(),
		a.dataCmd(),
		a.updateCmd(),
		a.applyCmd(),
		a.discardCmd(),
		a.unitsCmd(),
		a.infoCmd(),
		a.saveCmd(),
		versionCmd(),
	)
	return root
}

// ctx tags the command context so journal entries name the CLI as source.
func (a *app) ctx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return core.ContextWithSource(ctx, journalSource)
}

// openService builds a service from the environment, the way the server
// does, with console logging on stderr so stdout stays parseable.
func openService(ctx context.Context, backend string) (*core.Service, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Automation.Backend = backend
	}
	logging.SetupTo(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, nil, "")

	auto, err := oapi.Open(ctx, cfg.AutomationOptions())
	if err != nil {
		return nil, fmt.Errorf("open automation handle: %w", err)
	}
	journal, err := core.OpenJournal(ctx, cfg.Journal.DatabaseURL, cfg.Journal.MemorySize)
	if err != nil {
		_ = auto.Close()
		return nil, err
	}
	svc, err := core.NewService(auto, core.Options{
		Canonical:  cfg.Automation.CanonicalUnits,
		HandleWait: cfg.Automation.HandleWait,
		Journal:    journal,
	})
	if err != nil {
		_ = journal.Close()
		_ = auto.Close()
		return nil, err
	}
	return svc, nil
}

// formatError renders err with its user-facing action when one is known.
func formatError(err error) string {
	if core.IsUserFacing(err) {
		return fmt.Sprintf("Error: %s\n  %v", core.FormatUserError(err), err)
	}
	return "Error: " + err.Error()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version number of saptables",
		Annotations: map[string]string{skipService: ""},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "saptables v%s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Canonical units: %s\n", oapi.CanonicalUnits)
		},
	}
}
