package core

// service_mutations.go is the write side of the Table Session.
//
// The application keeps one staging area for the whole process. Each
// UpdateTable call replaces the staged rows of its table; ApplyEdits commits
// every staged table at once and DiscardEdits drops them. This service only
// forwards the rows: it tracks which tables were staged, not their data.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/oapi"
)

// ErrCommitRejected is returned by ApplyEdits when the application reports
// fatal errors or errors. Parts of the edit may already be in the model.
var ErrCommitRejected = errors.New("staged edits rejected")

// ErrNoColumns is returned when rows to stage carry no fields.
var ErrNoColumns = errors.New("rows have no columns")

// UpdateTable stages rows as the new content of table key. The first row's
// fields are the header. With autoApply the staged edits are applied at
// once and the report is returned; otherwise the report is nil.
//
// A failed stage is never applied, whatever autoApply says.
func (s *Service) UpdateTable(ctx context.Context, key string, rows []TableRow, autoApply bool) (*CommitReport, error) {
	return s.UpdateFrame(ctx, key, FrameFromRows(rows), autoApply)
}

// UpdateFrame is UpdateTable for column-oriented data. A frame with columns
// and no rows stages an empty table.
func (s *Service) UpdateFrame(ctx context.Context, key string, frame Frame, autoApply bool) (*CommitReport, error) {
	if len(frame.Columns) == 0 {
		return nil, fmt.Errorf("update table %q: %w", key, ErrNoColumns)
	}
	flat := frame.Flatten()

	var report *CommitReport
	err := s.withLease(ctx, "update", func() error {
		if err := s.stage(ctx, key, frame.Columns, flat); err != nil {
			return err
		}
		if !autoApply {
			return nil
		}
		r, err := s.apply(ctx)
		report = &r
		return err
	})
	return report, err
}

// stage sends one table's rows to the staging area. The caller holds the
// lease.
func (s *Service) stage(ctx context.Context, key string, headers []string, flat []any) error {
	if err := checkShape(len(headers), len(flat)); err != nil {
		return err
	}
	records := 0
	if len(headers) > 0 {
		records = len(flat) / len(headers)
	}
	logger := logging.WithFields(ctx, "table", key)

	_, err := s.call(ctx, oapi.SetTableForEditingArray, key, oapi.TableFormatVersion, headers, records, flat)
	if err != nil {
		err = s.tableCallError(ctx, key, err)
		s.record(ctx, JournalEntry{
			Action:   ActionStage,
			TableKey: key,
			Rows:     records,
			Message:  err.Error(),
		})
		return fmt.Errorf("stage table %q: %w", key, err)
	}

	s.markPending(key)
	s.record(ctx, JournalEntry{Action: ActionStage, TableKey: key, Rows: records, Success: true})
	logger.Info("table staged", "rows", records, "fields", len(headers))
	return nil
}

// ApplyEdits commits every staged table.
//
// The report is logged at the level of its first matching tier: fatal or
// error counts give error, then warnings, then info, else debug. A non-zero
// status is then logged at critical level and returned as a *CallError.
// Fatal or error counts return ErrCommitRejected with the report.
func (s *Service) ApplyEdits(ctx context.Context) (CommitReport, error) {
	var report CommitReport
	err := s.withLease(ctx, "apply", func() error {
		var err error
		report, err = s.apply(ctx)
		return err
	})
	return report, err
}

// apply is ApplyEdits for a caller holding the lease.
func (s *Service) apply(ctx context.Context) (CommitReport, error) {
	logger := logging.FromContext(ctx)
	pending := s.PendingEdits()

	raw, err := s.invoke(ctx, oapi.ApplyEditedTables, true)
	if err != nil {
		s.record(ctx, JournalEntry{Action: ActionApply, Message: err.Error()})
		return CommitReport{}, err
	}

	// Tiers are read before the status is checked, so a failed apply is
	// still logged with its counts.
	var report CommitReport
	var decodeErr error
	if tuple, ok := raw.([]any); ok && len(tuple) > 0 {
		var outcome oapi.ApplyOutcome
		outcome, decodeErr = oapi.DecodeApplyOutcome(tuple[:len(tuple)-1])
		if decodeErr == nil {
			report = CommitReport{
				Fatal:    outcome.Fatal,
				Errors:   outcome.Errors,
				Warnings: outcome.Warnings,
				Info:     outcome.Info,
				Message:  outcome.Log,
			}
			logger.Log(ctx, report.Level(), "staged edits applied",
				"tables", pending,
				"fatal", report.Fatal,
				"errors", report.Errors,
				"warnings", report.Warnings,
				"info", report.Info,
				"message", report.Message,
			)
		}
	} else {
		decodeErr = fmt.Errorf("expected a result tuple, got %T", raw)
	}

	if _, err := Normalize(raw); err != nil {
		var ce *CallError
		if errors.As(err, &ce) {
			ce.Method = oapi.ApplyEditedTables
		}
		logging.Critical(ctx, logger, "apply edits failed",
			"error", err,
			"message", report.Message,
			"raw", raw,
		)
		s.recordApply(ctx, report, false, err.Error())
		return report, err
	}
	if decodeErr != nil {
		err := s.malformed(ctx, oapi.ApplyEditedTables, raw, decodeErr)
		s.recordApply(ctx, report, false, err.Error())
		return report, err
	}

	s.clearPending()
	s.recordApply(ctx, report, !report.Rejected(), report.Message)

	if report.Rejected() {
		return report, fmt.Errorf("%w: %d fatal, %d errors", ErrCommitRejected, report.Fatal, report.Errors)
	}
	return report, nil
}

func (s *Service) recordApply(ctx context.Context, r CommitReport, success bool, message string) {
	s.record(ctx, JournalEntry{
		Action:   ActionApply,
		Fatal:    r.Fatal,
		Errors:   r.Errors,
		Warnings: r.Warnings,
		Info:     r.Info,
		Message:  message,
		Success:  success,
	})
}

// DiscardEdits drops every staged table.
func (s *Service) DiscardEdits(ctx context.Context) error {
	return s.withLease(ctx, "discard", func() error {
		if _, err := s.call(ctx, oapi.CancelTableEditing); err != nil {
			s.record(ctx, JournalEntry{Action: ActionDiscard, Message: err.Error()})
			return err
		}
		discarded := s.PendingEdits()
		s.clearPending()
		s.record(ctx, JournalEntry{Action: ActionDiscard, Message: strings.Join(discarded, ", "), Success: true})
		logging.FromContext(ctx).Info("staged edits discarded", "tables", discarded)
		return nil
	})
}
