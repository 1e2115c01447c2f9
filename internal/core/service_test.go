package core

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/oapi"
)

const (
	jointTable   = "Joint Coordinates"
	patternTable = "Load Pattern Definitions"
	emptyTable   = "Frame Loads - Distributed"
	resultTable  = "Base Reactions"
)

func newTestService(t *testing.T) (*Service, *oapi.Simulator) {
	t.Helper()
	sim := oapi.NewSimulator(oapi.SeedModel())
	svc, err := NewService(sim, Options{HandleWait: time.Second})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, sim
}

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *logging.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	diag := logging.NewBuffer(200)
	logging.Setup("critical", "text", diag, "debug")
	return diag
}

func hasLine(lines []string, parts ...string) bool {
	for _, line := range lines {
		ok := true
		for _, p := range parts {
			if !strings.Contains(line, p) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func countCalls(sim *oapi.Simulator, method oapi.Method) int {
	n := 0
	for _, c := range sim.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func TestNewService(t *testing.T) {
	sim := oapi.NewSimulator(nil)

	if _, err := NewService(nil, Options{}); err == nil {
		t.Error("NewService(nil) succeeded")
	}
	if _, err := NewService(sim, Options{Canonical: oapi.Units(99)}); !errors.Is(err, ErrUnknownUnits) {
		t.Errorf("NewService(units 99) error = %v, want ErrUnknownUnits", err)
	}

	svc, err := NewService(sim, Options{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if svc.CanonicalUnits() != oapi.KNmC {
		t.Errorf("CanonicalUnits() = %v, want kN_m_C", svc.CanonicalUnits())
	}
}

// ----------------------------------------------------------------------------
// Listing
// ----------------------------------------------------------------------------

func TestService_ListAllTables(t *testing.T) {
	svc, _ := newTestService(t)

	tables, err := svc.ListAllTables(context.Background())
	if err != nil {
		t.Fatalf("ListAllTables() error = %v", err)
	}
	if len(tables) != 5 {
		t.Fatalf("got %d tables, want 5", len(tables))
	}

	byKey := make(map[string]TableDescriptor)
	for _, td := range tables {
		byKey[td.Key] = td
	}
	if got := byKey[emptyTable]; !got.IsEmpty {
		t.Errorf("%s IsEmpty = false, want true", emptyTable)
	}
	if got := byKey[jointTable]; got.IsEmpty || got.ImportType != ImportWhenUnlocked {
		t.Errorf("%s = %+v", jointTable, got)
	}
	if got := byKey[resultTable]; got.ImportType != ImportNotImportable {
		t.Errorf("%s ImportType = %v, want not importable", resultTable, got.ImportType)
	}
}

func TestService_ListAvailableTables(t *testing.T) {
	svc, sim := newTestService(t)
	ctx := context.Background()

	tables, err := svc.ListAvailableTables(ctx)
	if err != nil {
		t.Fatalf("ListAvailableTables() error = %v", err)
	}
	if len(tables) != 4 {
		t.Fatalf("got %d tables, want 4", len(tables))
	}
	for _, td := range tables {
		if td.IsEmpty {
			t.Errorf("%s IsEmpty = true, want false for the available listing", td.Key)
		}
	}

	sim.SetLocked(true)
	tables, err = svc.ListAvailableTables(ctx)
	if err != nil {
		t.Fatalf("ListAvailableTables() locked error = %v", err)
	}
	if len(tables) != 1 || tables[0].Key != patternTable {
		t.Errorf("locked listing = %+v, want only %s", tables, patternTable)
	}
}

func TestService_ListTablesMalformed(t *testing.T) {
	svc, sim := newTestService(t)

	sim.Inject(oapi.GetAllTables, oapi.Fault{Result: []any{1, []string{"a"}, 0}})
	tables, err := svc.ListAllTables(context.Background())
	if tables != nil || !errors.Is(err, ErrCallFailed) {
		t.Errorf("ListAllTables() = %v, %v; want nil and a call error", tables, err)
	}
}

func TestService_TableFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	fields, err := svc.TableFields(ctx, jointTable)
	if err != nil {
		t.Fatalf("TableFields() error = %v", err)
	}
	if len(fields) != 6 {
		t.Fatalf("got %d fields, want 6", len(fields))
	}
	z := fields[5]
	if z.FieldKey != "Z" || z.UnitsLabel != "m" || !z.IsImportable {
		t.Errorf("Z field = %+v", z)
	}

	if _, err := svc.TableFields(ctx, "Nope"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("TableFields(Nope) error = %v, want ErrUnknownTable", err)
	}
}

// ----------------------------------------------------------------------------
// Reading under canonical units
// ----------------------------------------------------------------------------

func TestService_TableDataReadsCanonicalUnits(t *testing.T) {
	svc, sim := newTestService(t)

	if sim.PresentUnits() != oapi.KipInF {
		t.Fatalf("simulator starts in %v, want kip_in_F", sim.PresentUnits())
	}

	rows, err := svc.TableData(context.Background(), jointTable)
	if err != nil {
		t.Fatalf("TableData() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if got := rows[1].Value("Z"); got != "3.5" {
		t.Errorf("joint 2 Z = %v, want 3.5 in metres", got)
	}
	want := []string{"Joint", "CoordSys", "CoordType", "XorR", "Y", "Z"}
	if got := rows[0].Fields(); !reflect.DeepEqual(got, want) {
		t.Errorf("fields = %v, want %v", got, want)
	}

	if sim.PresentUnits() != oapi.KipInF {
		t.Errorf("present units after read = %v, want kip_in_F restored", sim.PresentUnits())
	}
	if n := countCalls(sim, oapi.SetPresentUnits); n != 2 {
		t.Errorf("SetPresentUnits called %d times, want 2", n)
	}
}

func TestService_TableDataSkipsSwitchWhenCanonical(t *testing.T) {
	svc, sim := newTestService(t)
	ctx := context.Background()

	if err := svc.SetPresentUnits(ctx, oapi.KNmC); err != nil {
		t.Fatalf("SetPresentUnits() error = %v", err)
	}
	before := countCalls(sim, oapi.SetPresentUnits)

	if _, err := svc.TableData(ctx, jointTable); err != nil {
		t.Fatalf("TableData() error = %v", err)
	}
	if n := countCalls(sim, oapi.SetPresentUnits); n != before {
		t.Errorf("SetPresentUnits called %d more times, want none", n-before)
	}
}

func TestService_TableDataRestoresUnitsOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		fault   *oapi.Fault
		wantErr error
	}{
		{
			name:    "unknown table",
			key:     "Nope",
			wantErr: ErrUnknownTable,
		},
		{
			name:    "read panics",
			key:     jointTable,
			fault:   &oapi.Fault{Panic: "disconnected"},
			wantErr: ErrCallFailed,
		},
		{
			name: "cells out of step with headers",
			key:  jointTable,
			fault: &oapi.Fault{Result: []any{
				[]string{}, 1, []string{"Joint", "Z"}, 2, []string{"1", "0", "2"}, 0,
			}},
			wantErr: ErrShapeMismatch,
		},
		{
			name: "record count disagrees with cells",
			key:  jointTable,
			fault: &oapi.Fault{Result: []any{
				[]string{}, 1, []string{"Joint", "Z"}, 3, []string{"1", "0", "2", "3.5"}, 0,
			}},
			wantErr: ErrCallFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sim := newTestService(t)
			if tt.fault != nil {
				sim.Inject(oapi.GetTableForDisplayArray, *tt.fault)
			}

			rows, err := svc.TableData(context.Background(), tt.key)
			if rows != nil {
				t.Errorf("TableData() = %v, want nil rows", rows)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("TableData() error = %v, want %v", err, tt.wantErr)
			}
			if sim.PresentUnits() != oapi.KipInF {
				t.Errorf("present units = %v, want kip_in_F restored", sim.PresentUnits())
			}
		})
	}
}

func TestService_TableDataReportsFailedRestore(t *testing.T) {
	svc, sim := newTestService(t)
	diag := captureLogs(t)

	sim.Inject(oapi.SetPresentUnits, oapi.Fault{})
	sim.Inject(oapi.SetPresentUnits, oapi.Fault{Status: 1})

	_, err := svc.TableData(context.Background(), jointTable)
	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("TableData() error = %v, want the restore failure", err)
	}
	if !hasLine(diag.Lines(), "level=CRITICAL", "present units not restored") {
		t.Errorf("restore failure not logged at critical level")
	}
}

func TestService_TableFrame(t *testing.T) {
	svc, _ := newTestService(t)

	f, err := svc.TableFrame(context.Background(), patternTable)
	if err != nil {
		t.Fatalf("TableFrame() error = %v", err)
	}
	if !reflect.DeepEqual(f.Columns, []string{"LoadPat", "DesignType", "SelfWtMult"}) {
		t.Errorf("Columns = %v", f.Columns)
	}
	want := [][]any{{"DEAD", "Dead", "1"}, {"LIVE", "Live", "0"}}
	if !reflect.DeepEqual(f.Rows, want) {
		t.Errorf("Rows = %v, want %v", f.Rows, want)
	}
}

// ----------------------------------------------------------------------------
// Staging, apply and discard
// ----------------------------------------------------------------------------

func patternRows(extra ...string) []TableRow {
	rows := []TableRow{
		NewRow([]string{"LoadPat", "DesignType", "SelfWtMult"}, []any{"DEAD", "Dead", 1}),
		NewRow([]string{"LoadPat", "DesignType", "SelfWtMult"}, []any{"LIVE", "Live", 0}),
	}
	for _, name := range extra {
		rows = append(rows, NewRow([]string{"LoadPat", "DesignType", "SelfWtMult"}, []any{name, "Other", ""}))
	}
	return rows
}

func TestService_UpdateTableAutoApply(t *testing.T) {
	svc, sim := newTestService(t)
	diag := captureLogs(t)
	ctx := context.Background()

	report, err := svc.UpdateTable(ctx, patternTable, patternRows("WIND"), true)
	if err != nil {
		t.Fatalf("UpdateTable() error = %v", err)
	}
	if report == nil {
		t.Fatal("UpdateTable() report = nil with autoApply")
	}
	if report.Info != 1 || report.Rejected() {
		t.Errorf("report = %+v", report)
	}
	if !strings.Contains(report.Message, "3 records imported") {
		t.Errorf("Message = %q", report.Message)
	}

	records := sim.Records(patternTable)
	if len(records) != 3 || records[2][0] != "WIND" || records[2][2] != "" {
		t.Errorf("stored records = %v", records)
	}
	if got := svc.PendingEdits(); len(got) != 0 {
		t.Errorf("PendingEdits() = %v, want none after apply", got)
	}
	if !hasLine(diag.Lines(), "level=INFO", "staged edits applied") {
		t.Errorf("apply not logged at info level")
	}
}

func TestService_UpdateTableStagesOnly(t *testing.T) {
	svc, sim := newTestService(t)
	ctx := context.Background()

	report, err := svc.UpdateTable(ctx, patternTable, patternRows(), false)
	if err != nil {
		t.Fatalf("UpdateTable() error = %v", err)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil without autoApply", report)
	}
	if got := sim.Staged(); !reflect.DeepEqual(got, []string{patternTable}) {
		t.Errorf("staged = %v", got)
	}
	if got := svc.PendingEdits(); !reflect.DeepEqual(got, []string{patternTable}) {
		t.Errorf("PendingEdits() = %v", got)
	}
	if n := countCalls(sim, oapi.ApplyEditedTables); n != 0 {
		t.Errorf("ApplyEditedTables called %d times", n)
	}

	// The write call carries the fixed format version and the flat layout.
	for _, c := range sim.Calls() {
		if c.Method != oapi.SetTableForEditingArray {
			continue
		}
		if c.Args[1] != oapi.TableFormatVersion || c.Args[3] != 2 {
			t.Errorf("write args = %v", c.Args)
		}
		want := []any{"DEAD", "Dead", "1", "LIVE", "Live", "0"}
		if !reflect.DeepEqual(c.Args[4], want) {
			t.Errorf("flat cells = %#v, want %#v", c.Args[4], want)
		}
	}
}

func TestService_FailedStageIsNeverApplied(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		rows    []TableRow
		wantErr error
	}{
		{
			name:    "unknown field",
			key:     patternTable,
			rows:    []TableRow{NewRow([]string{"LoadPat", "Color"}, []any{"WIND", "red"})},
			wantErr: ErrCallFailed,
		},
		{
			name:    "unknown table",
			key:     "Nope",
			rows:    patternRows(),
			wantErr: ErrUnknownTable,
		},
		{
			name:    "no columns",
			key:     patternTable,
			rows:    nil,
			wantErr: ErrNoColumns,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sim := newTestService(t)

			report, err := svc.UpdateTable(context.Background(), tt.key, tt.rows, true)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpdateTable() error = %v, want %v", err, tt.wantErr)
			}
			if report != nil {
				t.Errorf("report = %+v, want nil", report)
			}
			if n := countCalls(sim, oapi.ApplyEditedTables); n != 0 {
				t.Errorf("ApplyEditedTables called %d times after a failed stage", n)
			}
			if got := svc.PendingEdits(); len(got) != 0 {
				t.Errorf("PendingEdits() = %v", got)
			}
		})
	}
}

func TestService_ApplyEditsSeverity(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, svc *Service, sim *oapi.Simulator)
		wantLevel string
		wantErr   error
		want      CommitReport
	}{
		{
			name:      "nothing staged",
			setup:     func(*testing.T, *Service, *oapi.Simulator) {},
			wantLevel: "level=DEBUG",
		},
		{
			name: "clean import",
			setup: func(t *testing.T, svc *Service, _ *oapi.Simulator) {
				stageOrFail(t, svc, patternTable, patternRows())
			},
			wantLevel: "level=INFO",
			want:      CommitReport{Info: 1},
		},
		{
			name: "non-numeric coordinate",
			setup: func(t *testing.T, svc *Service, _ *oapi.Simulator) {
				stageOrFail(t, svc, jointTable, []TableRow{
					NewRow([]string{"Joint", "Z"}, []any{"9", "high"}),
				})
			},
			wantLevel: "level=WARN",
			want:      CommitReport{Warnings: 1, Info: 1},
		},
		{
			name: "missing key",
			setup: func(t *testing.T, svc *Service, _ *oapi.Simulator) {
				stageOrFail(t, svc, jointTable, []TableRow{
					NewRow([]string{"Joint", "Z"}, []any{"", "1"}),
				})
			},
			wantLevel: "level=ERROR",
			wantErr:   ErrCommitRejected,
			want:      CommitReport{Errors: 1, Info: 1},
		},
		{
			name: "result table",
			setup: func(t *testing.T, svc *Service, _ *oapi.Simulator) {
				stageOrFail(t, svc, resultTable, []TableRow{
					NewRow([]string{"OutputCase"}, []any{"DEAD"}),
				})
			},
			wantLevel: "level=ERROR",
			wantErr:   ErrCommitRejected,
			want:      CommitReport{Fatal: 1},
		},
		{
			name: "locked model",
			setup: func(t *testing.T, svc *Service, sim *oapi.Simulator) {
				stageOrFail(t, svc, jointTable, []TableRow{
					NewRow([]string{"Joint", "Z"}, []any{"9", "1"}),
				})
				sim.SetLocked(true)
			},
			wantLevel: "level=ERROR",
			wantErr:   ErrCommitRejected,
			want:      CommitReport{Fatal: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sim := newTestService(t)
			tt.setup(t, svc, sim)
			diag := captureLogs(t)

			report, err := svc.ApplyEdits(context.Background())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ApplyEdits() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ApplyEdits() error = %v, want %v", err, tt.wantErr)
			}

			report.Message = ""
			if report != tt.want {
				t.Errorf("report = %+v, want %+v", report, tt.want)
			}
			if !hasLine(diag.Lines(), tt.wantLevel, "staged edits applied") {
				t.Errorf("apply not logged with %s: %v", tt.wantLevel, diag.Lines())
			}
			if got := svc.PendingEdits(); len(got) != 0 {
				t.Errorf("PendingEdits() = %v after apply", got)
			}
		})
	}
}

func stageOrFail(t *testing.T, svc *Service, key string, rows []TableRow) {
	t.Helper()
	if _, err := svc.UpdateTable(context.Background(), key, rows, false); err != nil {
		t.Fatalf("UpdateTable(%s) error = %v", key, err)
	}
}

func TestService_ApplyEditsStatusFailure(t *testing.T) {
	svc, sim := newTestService(t)
	diag := captureLogs(t)
	stageOrFail(t, svc, patternTable, patternRows())

	sim.Inject(oapi.ApplyEditedTables, oapi.Fault{Result: []any{0, 0, 1, 0, "partial", 5}})
	report, err := svc.ApplyEdits(context.Background())

	var ce *CallError
	if !errors.As(err, &ce) || ce.Status != 5 || ce.Method != oapi.ApplyEditedTables {
		t.Fatalf("ApplyEdits() error = %v, want status 5 from %s", err, oapi.ApplyEditedTables)
	}
	if report.Warnings != 1 || report.Message != "partial" {
		t.Errorf("report = %+v, want the decoded counts", report)
	}
	lines := diag.Lines()
	if !hasLine(lines, "level=WARN", "staged edits applied") {
		t.Error("tier not logged before the status check")
	}
	if !hasLine(lines, "level=CRITICAL", "apply edits failed", "partial") {
		t.Error("status failure not logged at critical level with the message")
	}
	if got := svc.PendingEdits(); !reflect.DeepEqual(got, []string{patternTable}) {
		t.Errorf("PendingEdits() = %v, want them kept after a failed apply", got)
	}
}

func TestService_DiscardEdits(t *testing.T) {
	svc, sim := newTestService(t)
	ctx := ContextWithSource(context.Background(), "test")

	if _, err := svc.UpdateTable(ctx, patternTable, patternRows("WIND"), false); err != nil {
		t.Fatalf("UpdateTable() error = %v", err)
	}
	if err := svc.DiscardEdits(ctx); err != nil {
		t.Fatalf("DiscardEdits() error = %v", err)
	}

	if got := sim.Staged(); len(got) != 0 {
		t.Errorf("staged after discard = %v", got)
	}
	if got := svc.PendingEdits(); len(got) != 0 {
		t.Errorf("PendingEdits() = %v", got)
	}
	if n := len(sim.Records(patternTable)); n != 2 {
		t.Errorf("stored records = %d, want the original 2", n)
	}

	entries, err := svc.Journal(ctx, JournalFilter{Action: ActionDiscard})
	if err != nil {
		t.Fatalf("Journal() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Message != patternTable || entries[0].Source != "test" {
		t.Errorf("discard entries = %+v", entries)
	}

	sim.Inject(oapi.CancelTableEditing, oapi.Fault{Status: 1})
	if err := svc.DiscardEdits(ctx); !errors.Is(err, ErrCallFailed) {
		t.Errorf("DiscardEdits() error = %v, want a call failure", err)
	}
}

func TestService_JournalRecordsEdits(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ContextWithIPAddress(ContextWithUserAgent(ContextWithSource(context.Background(), "web"), "curl/8"), "10.0.0.7")

	if _, err := svc.UpdateTable(ctx, patternTable, patternRows(), true); err != nil {
		t.Fatalf("UpdateTable() error = %v", err)
	}
	_, _ = svc.UpdateTable(ctx, resultTable, []TableRow{NewRow([]string{"OutputCase"}, []any{"DEAD"})}, true)

	entries, err := svc.Journal(ctx, JournalFilter{})
	if err != nil {
		t.Fatalf("Journal() error = %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4: %+v", len(entries), entries)
	}

	for _, e := range entries {
		if e.ID == "" || e.Source != "web" || e.IPAddress != "10.0.0.7" || e.UserAgent != "curl/8" {
			t.Errorf("entry not stamped: %+v", e)
		}
	}

	failed := false
	applies, _ := svc.Journal(ctx, JournalFilter{Action: ActionApply, Success: &failed})
	if len(applies) != 1 || applies[0].Fatal != 1 || applies[0].Severity != SeverityCritical {
		t.Errorf("failed applies = %+v", applies)
	}

	staged, _ := svc.Journal(ctx, JournalFilter{Action: ActionStage, TableKey: patternTable})
	if len(staged) != 1 || staged[0].Rows != 2 || staged[0].Severity != SeverityMedium {
		t.Errorf("stage entries = %+v", staged)
	}
}

// ----------------------------------------------------------------------------
// Handle lease
// ----------------------------------------------------------------------------

func TestService_BusyHandle(t *testing.T) {
	sim := oapi.NewSimulator(oapi.SeedModel())
	svc, err := NewService(sim, Options{HandleWait: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if !svc.lease.TryAcquire("test") {
		t.Fatal("TryAcquire() failed on an idle lease")
	}
	if st := svc.LeaseStatus(); !st.Held || st.Operation != "test" {
		t.Errorf("LeaseStatus() = %+v", st)
	}

	if _, err := svc.TableData(context.Background(), jointTable); !errors.Is(err, ErrHandleBusy) {
		t.Errorf("TableData() error = %v, want ErrHandleBusy", err)
	}
	if n := len(sim.Calls()); n != 0 {
		t.Errorf("%d calls reached the application while the lease was held", n)
	}

	svc.lease.Release()
	if _, err := svc.TableData(context.Background(), jointTable); err != nil {
		t.Errorf("TableData() after release error = %v", err)
	}
}

func TestService_ConcurrentReadsKeepUnits(t *testing.T) {
	svc, sim := newTestService(t)
	ctx := context.Background()

	errs := make(chan error, 8)
	for i := 0; i < cap(errs); i++ {
		go func() {
			rows, err := svc.TableData(ctx, jointTable)
			if err == nil && rows[1].Value("Z") != "3.5" {
				err = errors.New("read in the wrong units")
			}
			errs <- err
		}()
	}
	for i := 0; i < cap(errs); i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
	if sim.PresentUnits() != oapi.KipInF {
		t.Errorf("present units = %v, want kip_in_F", sim.PresentUnits())
	}
}

func TestService_Close(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := svc.ListAllTables(ctx); !errors.Is(err, oapi.ErrClosed) {
		t.Errorf("ListAllTables() after Close error = %v, want ErrClosed", err)
	}
}
