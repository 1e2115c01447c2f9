package core

// journal_pruner.go runs journal retention in the background.
//
// The pruner runs once at start and then every Interval, deleting entries
// older than Retention. It logs failures and keeps going; a failed prune
// never stops the application.

import (
	"context"
	"log/slog"
	"time"
)

// PruneConfig holds journal retention settings.
type PruneConfig struct {
	Retention time.Duration // Age after which entries are deleted (default: 90 days)
	Interval  time.Duration // How often to run (default: 24h)
}

func (c PruneConfig) withDefaults() PruneConfig {
	if c.Retention <= 0 {
		c.Retention = 90 * 24 * time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	return c
}

// StartJournalPruner blocks, pruning the journal until ctx is cancelled.
// Run it in its own goroutine.
func (s *Service) StartJournalPruner(ctx context.Context, cfg PruneConfig) {
	if s.journal == nil {
		return
	}
	cfg = cfg.withDefaults()
	slog.Info("journal pruner started",
		"retention", cfg.Retention.String(),
		"interval", cfg.Interval.String(),
	)

	s.pruneJournal(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("journal pruner stopped")
			return
		case <-ticker.C:
			s.pruneJournal(ctx, cfg)
		}
	}
}

// pruneJournal performs one retention pass.
func (s *Service) pruneJournal(ctx context.Context, cfg PruneConfig) {
	start := time.Now()
	removed, err := s.journal.Prune(ctx, start.Add(-cfg.Retention))
	if err != nil {
		slog.Error("journal prune failed", "error", err)
		return
	}
	slog.Info("journal pruned",
		"entries_removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
