package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/saptables/internal/config"
	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/oapi"
	"github.com/JonMunkholm/saptables/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Overload lets a local .env win over the shell environment
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	diag := logging.NewBuffer(cfg.Logging.BufferLines)
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, diag, cfg.Logging.DiagLevel)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Automation.Backend,
		"canonical_units", cfg.Automation.CanonicalUnits,
		"journal_persistent", cfg.Journal.DatabaseURL != "",
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, diag, oapi.Open)
	stop()
	if err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// opener opens the automation handle; tests swap in a simulator.
type opener func(context.Context, oapi.Options) (oapi.Automation, error)

// run serves until ctx is done or the listener fails. It returns only after
// the server is shut down and the automation handle has been released.
func run(ctx context.Context, cfg *config.Config, diag *logging.Buffer, open opener) error {
	auto, err := open(ctx, cfg.AutomationOptions())
	if err != nil {
		return fmt.Errorf("open automation handle (%s): %w", cfg.Automation.Backend, err)
	}

	journal, err := core.OpenJournal(ctx, cfg.Journal.DatabaseURL, cfg.Journal.MemorySize)
	if err != nil {
		_ = auto.Close()
		return fmt.Errorf("open edit journal: %w", err)
	}

	service, err := core.NewService(auto, core.Options{
		Canonical:  cfg.Automation.CanonicalUnits,
		HandleWait: cfg.Automation.HandleWait,
		Journal:    journal,
	})
	if err != nil {
		_ = journal.Close()
		_ = auto.Close()
		return fmt.Errorf("create service: %w", err)
	}

	if info, err := service.ModelInfo(ctx); err != nil {
		slog.Warn("could not read model info", "error", err)
	} else {
		slog.Info("connected to model",
			"file", info.Filename,
			"version", info.Version,
			"units", info.PresentUnits,
		)
	}

	server := web.NewServer(service, cfg, diag)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	pruned := make(chan struct{})
	go func() {
		defer close(pruned)
		service.StartJournalPruner(jobCtx, core.PruneConfig{
			Retention: cfg.Journal.Retention,
			Interval:  cfg.Journal.PruneInterval,
		})
	}()

	served := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr())
		served <- server.Start(cfg.Server.Addr())
	}()

	var failure error
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case failure = <-served:
		slog.Error("server stopped", "error", failure)
	}
	cancelJobs()
	<-pruned

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Let the running table operation finish before releasing the handle
	if lease := service.LeaseStatus(); lease.Held {
		slog.Info("waiting for automation handle", "operation", lease.Operation)
	}
	if err := service.Close(shutdownCtx); err != nil {
		slog.Error("close service", "error", err)
		if failure == nil {
			failure = err
		}
	}
	return failure
}
