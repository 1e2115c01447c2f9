package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/google/uuid"
)

// JournalAction is the kind of change a journal entry records.
type JournalAction string

const (
	ActionStage    JournalAction = "stage"
	ActionApply    JournalAction = "apply"
	ActionDiscard  JournalAction = "discard"
	ActionSetUnits JournalAction = "set_units"
	ActionLock     JournalAction = "lock"
	ActionUnlock   JournalAction = "unlock"
	ActionSave     JournalAction = "save"
	ActionModel    JournalAction = "model"
)

// JournalSeverity ranks entries for review.
type JournalSeverity string

const (
	SeverityLow      JournalSeverity = "low"
	SeverityMedium   JournalSeverity = "medium"
	SeverityHigh     JournalSeverity = "high"
	SeverityCritical JournalSeverity = "critical"
)

// DefaultHistoryLimit is the page size when a query sets none.
const DefaultHistoryLimit = 50

// DefaultJournalSize is the capacity of the in-memory journal.
const DefaultJournalSize = 1000

// JournalEntry records one change made through the service.
type JournalEntry struct {
	ID        string          `json:"id" yaml:"id"`
	Action    JournalAction   `json:"action" yaml:"action"`
	Severity  JournalSeverity `json:"severity" yaml:"severity"`
	TableKey  string          `json:"tableKey,omitempty" yaml:"tableKey,omitempty"`
	Rows      int             `json:"rows,omitempty" yaml:"rows,omitempty"`
	Fatal     int             `json:"fatal,omitempty" yaml:"fatal,omitempty"`
	Errors    int             `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings  int             `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Info      int             `json:"info,omitempty" yaml:"info,omitempty"`
	Message   string          `json:"message,omitempty" yaml:"message,omitempty"`
	Success   bool            `json:"success" yaml:"success"`
	Source    string          `json:"source,omitempty" yaml:"source,omitempty"`
	IPAddress string          `json:"ipAddress,omitempty" yaml:"ipAddress,omitempty"`
	UserAgent string          `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	CreatedAt time.Time       `json:"createdAt" yaml:"createdAt"`
}

// JournalFilter selects journal entries. Zero fields match everything.
type JournalFilter struct {
	TableKey string
	Action   JournalAction
	Severity JournalSeverity
	Success  *bool
	Search   string
	Since    time.Time
	Limit    int
	Offset   int
}

// Journal stores journal entries.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
	// List returns matching entries, newest first.
	List(ctx context.Context, filter JournalFilter) ([]JournalEntry, error)
	// Prune deletes entries created before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// journalSeverity returns the severity of an action and its outcome.
func journalSeverity(action JournalAction, success bool) JournalSeverity {
	if !success {
		if action == ActionApply || action == ActionSave {
			return SeverityCritical
		}
		return SeverityHigh
	}
	switch action {
	case ActionApply, ActionSave:
		return SeverityHigh
	case ActionStage, ActionDiscard:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// record stamps entry with an ID, severity, time and request origin, then
// stores it. A journal failure is logged and otherwise ignored.
func (s *Service) record(ctx context.Context, entry JournalEntry) {
	if s.journal == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.Severity = journalSeverity(entry.Action, entry.Success)
	entry.CreatedAt = time.Now().UTC()
	entry.Source = GetSourceFromContext(ctx)
	entry.IPAddress = GetIPAddressFromContext(ctx)
	entry.UserAgent = GetUserAgentFromContext(ctx)

	// The edit already happened; recording it must not be cancelled with
	// the request.
	if err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.FromContext(ctx).Warn("journal record failed",
			"action", entry.Action,
			"table", entry.TableKey,
			"error", err,
		)
	}
}

// Journal returns matching journal entries, newest first.
func (s *Service) Journal(ctx context.Context, filter JournalFilter) ([]JournalEntry, error) {
	if s.journal == nil {
		return []JournalEntry{}, nil
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	return s.journal.List(ctx, filter)
}

// MemoryJournal keeps the newest entries in memory.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []JournalEntry
	size    int
}

// NewMemoryJournal returns a journal holding at most size entries.
func NewMemoryJournal(size int) *MemoryJournal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &MemoryJournal{size: size}
}

// Record implements Journal.
func (j *MemoryJournal) Record(_ context.Context, entry JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	if over := len(j.entries) - j.size; over > 0 {
		j.entries = append([]JournalEntry(nil), j.entries[over:]...)
	}
	return nil
}

// List implements Journal.
func (j *MemoryJournal) List(_ context.Context, filter JournalFilter) ([]JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]JournalEntry, 0)
	for i := len(j.entries) - 1; i >= 0; i-- {
		if e := j.entries[i]; filter.matches(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []JournalEntry{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Prune implements Journal.
func (j *MemoryJournal) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	kept := j.entries[:0]
	for _, e := range j.entries {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := int64(len(j.entries) - len(kept))
	j.entries = kept
	return removed, nil
}

// Close implements Journal.
func (j *MemoryJournal) Close() error { return nil }

func (f JournalFilter) matches(e JournalEntry) bool {
	switch {
	case f.TableKey != "" && e.TableKey != f.TableKey:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.Severity != "" && e.Severity != f.Severity:
		return false
	case f.Success != nil && e.Success != *f.Success:
		return false
	case !f.Since.IsZero() && e.CreatedAt.Before(f.Since):
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(e.TableKey), q) ||
			strings.Contains(strings.ToLower(e.Message), q)
	}
	return true
}
