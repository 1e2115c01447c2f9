package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/saptables/internal/oapi"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		raw        any
		want       any
		wantStatus int
		wantErr    bool
	}{
		{name: "value and status", raw: []any{0.001, 0}, want: 0.001},
		{name: "tuple strips status", raw: []any{3, []string{"a"}, "x", 0}, want: []any{3, []string{"a"}, "x"}},
		{name: "scalar zero", raw: 0, want: 0},
		{name: "int32 zero", raw: int32(0), want: int32(0)},
		{name: "float status zero", raw: []any{"v", float64(0)}, want: "v"},
		{name: "non-zero tuple status", raw: []any{nil, nil, 1}, wantStatus: 1, wantErr: true},
		{name: "non-zero scalar", raw: 2, wantStatus: 2, wantErr: true},
		{name: "negative status", raw: []any{"v", -1}, wantStatus: -1, wantErr: true},
		{name: "empty tuple", raw: []any{}, wantErr: true},
		{name: "nil", raw: nil, wantErr: true},
		{name: "string status", raw: []any{"v", "0"}, wantErr: true},
		{name: "bool status", raw: []any{"v", false}, wantErr: true},
		{name: "nil status", raw: []any{"v", nil}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.wantErr {
				if got != nil {
					t.Errorf("Normalize() = %v, want nil on failure", got)
				}
				var ce *CallError
				if !errors.As(err, &ce) {
					t.Fatalf("Normalize() error = %v, want *CallError", err)
				}
				if !errors.Is(err, ErrCallFailed) {
					t.Error("error does not match ErrCallFailed")
				}
				if ce.Status != tt.wantStatus {
					t.Errorf("Status = %d, want %d", ce.Status, tt.wantStatus)
				}
				if !reflect.DeepEqual(ce.Raw, tt.raw) {
					t.Errorf("Raw = %v, want %v", ce.Raw, tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCallError_Error(t *testing.T) {
	tests := []struct {
		err  *CallError
		want string
	}{
		{&CallError{Method: oapi.GetMergeTol, Status: 1}, "GetMergeTol: returned status 1"},
		{&CallError{Method: oapi.FileSave, Err: errors.New("boom")}, "File.Save: boom"},
		{&CallError{}, "call: failed"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestService_CallFailures(t *testing.T) {
	native := errors.New("RPC server is unavailable")

	tests := []struct {
		name       string
		fault      oapi.Fault
		wantStatus int
		wantIn     string
		wantWrap   error
	}{
		{name: "non-zero status", fault: oapi.Fault{Status: 3}, wantStatus: 3, wantIn: "returned status 3"},
		{name: "native error", fault: oapi.Fault{Err: native}, wantIn: "RPC server", wantWrap: native},
		{name: "panic", fault: oapi.Fault{Panic: "access violation"}, wantIn: "panic: access violation"},
		{name: "garbage", fault: oapi.Fault{Result: "OK"}, wantIn: "status is string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sim := newTestService(t)
			sim.Inject(oapi.GetMergeTol, tt.fault)

			tol, err := svc.MergeTolerance(context.Background())
			if tol != 0 {
				t.Errorf("MergeTolerance() = %v, want 0 on failure", tol)
			}
			var ce *CallError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *CallError", err)
			}
			if ce.Method != oapi.GetMergeTol {
				t.Errorf("Method = %q, want %q", ce.Method, oapi.GetMergeTol)
			}
			if ce.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", ce.Status, tt.wantStatus)
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantIn)
			}
			if tt.wantWrap != nil && !errors.Is(err, tt.wantWrap) {
				t.Errorf("error does not wrap %v", tt.wantWrap)
			}

			// The fault was one-shot and the lease was released.
			if _, err := svc.MergeTolerance(context.Background()); err != nil {
				t.Errorf("second call error = %v", err)
			}
		})
	}
}

func TestService_CallFailureLoggedCritical(t *testing.T) {
	svc, sim := newTestService(t)
	diag := captureLogs(t)

	sim.Inject(oapi.GetAllTables, oapi.Fault{Status: 1})
	tables, err := svc.ListAllTables(context.Background())
	if err == nil || tables != nil {
		t.Fatalf("ListAllTables() = %v, %v; want nil and an error", tables, err)
	}

	var traced, critical bool
	for _, line := range diag.Lines() {
		if strings.Contains(line, "level=DEBUG") && strings.Contains(line, "automation call") {
			traced = true
		}
		if strings.Contains(line, "level=CRITICAL") && strings.Contains(line, "DatabaseTables.GetAllTables") {
			critical = true
		}
	}
	if !traced {
		t.Error("call was not traced at debug level")
	}
	if !critical {
		t.Errorf("failure not logged at critical level: %v", diag.Lines())
	}
}
