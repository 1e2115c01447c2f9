package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/saptables/internal/oapi"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	// Canonical is the unit system table data is read in
	// (default oapi.CanonicalUnits).
	Canonical oapi.Units

	// HandleWait bounds how long an operation waits for the handle
	// (default DefaultHandleWait).
	HandleWait time.Duration

	// Journal records edits (default an in-memory journal).
	Journal Journal
}

// Service is the only way presentation code reaches the application. All
// operations are safe for concurrent use; they are serialized on the
// automation handle.
type Service struct {
	auto      oapi.Automation
	canonical oapi.Units
	lease     *HandleLease
	journal   Journal

	mu      sync.Mutex
	pending []string
}

// NewService wraps auto.
func NewService(auto oapi.Automation, opts Options) (*Service, error) {
	if auto == nil {
		return nil, fmt.Errorf("automation handle is required")
	}
	canonical := opts.Canonical
	if canonical == 0 {
		canonical = oapi.CanonicalUnits
	}
	if !canonical.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUnits, int(canonical))
	}
	journal := opts.Journal
	if journal == nil {
		journal = NewMemoryJournal(DefaultJournalSize)
	}

	return &Service{
		auto:      auto,
		canonical: canonical,
		lease:     NewHandleLease(opts.HandleWait),
		journal:   journal,
	}, nil
}

// CanonicalUnits returns the unit system reads are expressed in.
func (s *Service) CanonicalUnits() oapi.Units {
	return s.canonical
}

// LeaseStatus reports who holds the automation handle.
func (s *Service) LeaseStatus() LeaseStatus {
	return s.lease.Status()
}

// PendingEdits returns the keys of tables staged since the last apply or
// discard made through this service, in staging order. The staged rows
// themselves live only in the application.
func (s *Service) PendingEdits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pending...)
}

func (s *Service) markPending(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.pending {
		if k == key {
			return
		}
	}
	s.pending = append(s.pending, key)
}

func (s *Service) clearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// Close waits for the running operation, then closes the journal and the
// automation handle.
func (s *Service) Close(ctx context.Context) error {
	if err := s.lease.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("wait for automation handle: %w", err)
	}
	var jerr error
	if s.journal != nil {
		jerr = s.journal.Close()
	}
	if err := s.auto.Close(); err != nil {
		return fmt.Errorf("close automation handle: %w", err)
	}
	return jerr
}

// withLease runs fn holding the automation handle.
func (s *Service) withLease(ctx context.Context, op string, fn func() error) error {
	if err := s.lease.Acquire(ctx, op); err != nil {
		return err
	}
	defer s.lease.Release()
	return fn()
}
