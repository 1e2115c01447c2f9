package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/saptables/internal/oapi"
)

func TestMapError(t *testing.T) {
	callFailed := &CallError{Method: oapi.GetAllTables, Status: 1}

	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "busy handle",
			err:         fmt.Errorf("list tables: %w", ErrHandleBusy),
			wantCode:    "OAPI002",
			wantMessage: "The application is busy with another operation",
		},
		{
			name:        "closed handle inside call error",
			err:         &CallError{Method: oapi.GetAllTables, Err: oapi.ErrClosed},
			wantCode:    "OAPI003",
			wantMessage: "The connection to the application is closed",
		},
		{
			name:        "unknown table wins over call failure",
			err:         fmt.Errorf("%w: %q (%w)", ErrUnknownTable, "Nope", callFailed),
			wantCode:    "TBL001",
			wantMessage: "Table not found in the model",
		},
		{
			name:        "shape mismatch",
			err:         &ShapeMismatchError{Cells: 5, Headers: 2},
			wantCode:    "SHAPE001",
			wantMessage: "Cell count does not fit the table's columns",
		},
		{
			name:        "no columns",
			err:         fmt.Errorf("update table %q: %w", "Joint Coordinates", ErrNoColumns),
			wantCode:    "COL001",
			wantMessage: "The rows have no columns",
		},
		{
			name:        "unknown units",
			err:         fmt.Errorf("%w: %q", ErrUnknownUnits, "furlongs"),
			wantCode:    "UNIT001",
			wantMessage: "Unknown unit system",
		},
		{
			name:        "commit rejected",
			err:         fmt.Errorf("%w: 1 fatal, 0 errors", ErrCommitRejected),
			wantCode:    "COMMIT001",
			wantMessage: "The application rejected the staged edits",
		},
		{
			name:        "cancelled call is a request error",
			err:         &CallError{Method: oapi.GetAllTables, Err: context.Canceled},
			wantCode:    "REQ001",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "deadline",
			err:         context.DeadlineExceeded,
			wantCode:    "REQ002",
			wantMessage: "Request timed out",
		},
		{
			name:        "non-zero status",
			err:         callFailed,
			wantCode:    "OAPI001",
			wantMessage: "The application rejected the request",
		},
		{
			name:        "status text without chain",
			err:         errors.New("GetMergeTol: returned status 1"),
			wantCode:    "OAPI001",
			wantMessage: "The application rejected the request",
		},
		{
			name:        "rate limit text",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("TABLE NOT FOUND: Frames"),
			wantCode:    "TBL001",
			wantMessage: "Table not found in the model",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrHandleBusy)

	expected := "The application is busy with another operation (Code: OAPI002). Wait for the running operation and try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrCommitRejected,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("read table %q: %w", "Nope", ErrUnknownTable)
		userErr := NewUserError(techErr)

		if userErr.Error() != "Table not found in the model" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrUnknownTable) {
			t.Error("Unwrap() should return original error")
		}
	})
}
