// Package oapi is the boundary with the external structural-analysis
// application's object automation interface.
//
// The external application exposes a flat, positional calling convention:
// every method returns either a bare integer status or a tuple whose last
// element is the status, zero meaning success. This package keeps that raw
// convention at the edge:
//
//   - [Automation] is the single handle to one running application process.
//   - [Method] names every call this repository makes.
//   - The Decode* functions turn status-stripped tuples into named records
//     once, so callers never index into positional results.
//
// Two backends implement [Automation]: a COM backend (windows only) that
// drives a live application, and [Simulator], an in-memory stand-in used by
// tests and offline operation.
package oapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Method identifies one call on the external automation object graph.
// The value is the dotted path below the model object.
type Method string

// Database table calls.
const (
	GetAllTables            Method = "DatabaseTables.GetAllTables"
	GetAvailableTables      Method = "DatabaseTables.GetAvailableTables"
	GetAllFieldsInTable     Method = "DatabaseTables.GetAllFieldsInTable"
	GetTableForDisplayArray Method = "DatabaseTables.GetTableForDisplayArray"
	SetTableForEditingArray Method = "DatabaseTables.SetTableForEditingArray"
	ApplyEditedTables       Method = "DatabaseTables.ApplyEditedTables"
	CancelTableEditing      Method = "DatabaseTables.CancelTableEditing"
)

// Model calls.
const (
	GetPresentUnits      Method = "GetPresentUnits"
	SetPresentUnits      Method = "SetPresentUnits"
	GetDatabaseUnits     Method = "GetDatabaseUnits"
	GetModelIsLocked     Method = "GetModelIsLocked"
	SetModelIsLocked     Method = "SetModelIsLocked"
	GetModelFilename     Method = "GetModelFilename"
	GetVersion           Method = "GetVersion"
	GetMergeTol          Method = "GetMergeTol"
	SetMergeTol          Method = "SetMergeTol"
	GetProjectInfo       Method = "GetProjectInfo"
	SetProjectInfo       Method = "SetProjectInfo"
	GetUserComment       Method = "GetUserComment"
	SetUserComment       Method = "SetUserComment"
	FileSave             Method = "File.Save"
	RefreshView          Method = "View.RefreshView"
	GetOAPIVersionNumber Method = "GetOAPIVersionNumber"
)

// TableFormatVersion is the only table layout version this repository
// writes with SetTableForEditingArray.
const TableFormatVersion = 1

// Automation is a live handle to one external application process.
//
// Invoke returns the raw result of a call: a []any tuple whose last element
// is the status code, or a scalar. A non-nil error means the call failed
// natively (the handle is gone, the process raised) before any status was
// produced. Implementations are not required to be safe for concurrent use;
// callers serialize access.
type Automation interface {
	Invoke(ctx context.Context, method Method, args ...any) (any, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendCOM       = "com"
	BackendSimulator = "sim"
)

// ErrUnsupportedPlatform is returned when the COM backend is requested on a
// platform without COM.
var ErrUnsupportedPlatform = errors.New("com automation is only available on windows")

// KnownProgramPaths lists application executables tried, in order, when a
// new instance is started without an explicit program path.
var KnownProgramPaths = []string{
	`C:\Program Files\Computers and Structures\SAP2000 24\SAP2000.exe`,
	`C:\Program Files\Computers and Structures\SAP2000 21\SAP2000.exe`,
}

// Options selects and configures an automation backend.
type Options struct {
	// Backend is BackendCOM or BackendSimulator.
	Backend string

	// Attach connects to an already running application instead of
	// starting a new one.
	Attach bool

	// ProgramPath is the executable started when Attach is false. Empty
	// means the first of KnownProgramPaths that exists.
	ProgramPath string
}

// Open returns an Automation for the configured backend.
func Open(ctx context.Context, opts Options) (Automation, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendSimulator:
		return NewSimulator(SeedModel()), nil
	case BackendCOM, "":
		return dialCOM(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown automation backend %q", opts.Backend)
	}
}
