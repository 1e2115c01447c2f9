package core

// error_messages.go maps service errors to user-facing messages with codes
// for support reference. Users quote the code; support looks it up here.
//
// # Automation (OAPI001-OAPI099)
//
//	OAPI001 - The application rejected a call
//	          Action: Check the diagnostics log for the method and status
//	OAPI002 - The automation handle is busy with another operation
//	          Action: Wait for the running operation and try again
//	OAPI003 - The automation handle is closed
//	          Action: Restart the service
//
// # Tables (TBL001-TBL099, SHAPE001, COL001)
//
//	TBL001   - Table not found in the model
//	SHAPE001 - Cell count does not fit the header count
//	COL001   - Rows to stage have no columns
//
// # Units (UNIT001)
//
//	UNIT001 - Unit system name or number is not recognised
//
// # Edits (COMMIT001)
//
//	COMMIT001 - The application rejected staged edits with fatal errors or
//	            errors. The import log holds the details.
//
// # Requests (REQ001-REQ002, RATE001)
//
//	REQ001  - Request was cancelled
//	REQ002  - Request timed out
//	RATE001 - Too many requests
//
// # Default (ERR000)
//
//	ERR000 - Anything else. Check the logs for the technical error.
//
// Sentinels are matched with errors.Is first, in table order, so an unknown
// table is reported as TBL001 and a cancelled call as REQ001 even though
// both wrap a failed call. Errors
// that lost their chain are then matched case-insensitively on their text.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/saptables/internal/oapi"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorKind ties a sentinel and a text pattern to one message.
type errorKind struct {
	target  error
	pattern string
	msg     UserMessage
}

var errorKinds = []errorKind{
	{
		target:  ErrHandleBusy,
		pattern: "automation handle is busy",
		msg: UserMessage{
			Message: "The application is busy with another operation",
			Action:  "Wait for the running operation and try again",
			Code:    "OAPI002",
		},
	},
	{
		target:  oapi.ErrClosed,
		pattern: "automation handle closed",
		msg: UserMessage{
			Message: "The connection to the application is closed",
			Action:  "Restart the service",
			Code:    "OAPI003",
		},
	},
	{
		target:  ErrUnknownTable,
		pattern: "table not found",
		msg: UserMessage{
			Message: "Table not found in the model",
			Action:  "Check the table key against the table listing",
			Code:    "TBL001",
		},
	},
	{
		target:  ErrShapeMismatch,
		pattern: "is not divisible by header length",
		msg: UserMessage{
			Message: "Cell count does not fit the table's columns",
			Action:  "Make sure every row has a value for every column",
			Code:    "SHAPE001",
		},
	},
	{
		target:  ErrNoColumns,
		pattern: "rows have no columns",
		msg: UserMessage{
			Message: "The rows have no columns",
			Action:  "Send at least one row with field names",
			Code:    "COL001",
		},
	},
	{
		target:  ErrUnknownUnits,
		pattern: "unknown unit system",
		msg: UserMessage{
			Message: "Unknown unit system",
			Action:  "Use a unit system name such as kN_m_C or kip_in_F",
			Code:    "UNIT001",
		},
	},
	{
		target:  ErrCommitRejected,
		pattern: "staged edits rejected",
		msg: UserMessage{
			Message: "The application rejected the staged edits",
			Action:  "Review the import log, fix the rows and stage them again",
			Code:    "COMMIT001",
		},
	},
	{
		target:  context.Canceled,
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		target:  context.DeadlineExceeded,
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again when the application is idle",
			Code:    "REQ002",
		},
	},
	{
		target:  ErrCallFailed,
		pattern: "returned status",
		msg: UserMessage{
			Message: "The application rejected the request",
			Action:  "Check the diagnostics log for details",
			Code:    "OAPI001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	_, err := svc.TableData(ctx, "Nope")
//	MapError(err).Code // "TBL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if k.target != nil && errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, k := range errorKinds {
		if strings.Contains(errStr, k.pattern) {
			return k.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err, or returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
