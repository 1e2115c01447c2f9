package core

import (
	"fmt"
	"log/slog"
)

// ImportType says whether and when a table can be imported (written).
type ImportType int

const (
	ImportNotImportable ImportType = iota
	ImportNotInteractive
	ImportWhenUnlocked
	ImportWhenLockedOrUnlocked
)

func (t ImportType) String() string {
	switch t {
	case ImportNotImportable:
		return "not importable"
	case ImportNotInteractive:
		return "importable, not interactive"
	case ImportWhenUnlocked:
		return "importable when unlocked"
	case ImportWhenLockedOrUnlocked:
		return "importable when locked or unlocked"
	}
	return fmt.Sprintf("ImportType(%d)", int(t))
}

// Interactive reports whether rows of the table can be staged and applied
// from this process.
func (t ImportType) Interactive() bool {
	return t == ImportWhenUnlocked || t == ImportWhenLockedOrUnlocked
}

// MarshalText implements encoding.TextMarshaler.
func (t ImportType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts the four
// names MarshalText produces.
func (t *ImportType) UnmarshalText(text []byte) error {
	for c := ImportNotImportable; c <= ImportWhenLockedOrUnlocked; c++ {
		if string(text) == c.String() {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown import type %q", text)
}

// Valid reports whether t is one of the four import types.
func (t ImportType) Valid() bool {
	return t >= ImportNotImportable && t <= ImportWhenLockedOrUnlocked
}

// TableDescriptor identifies one table of the active model. It is a
// read-time snapshot, rebuilt on every listing.
type TableDescriptor struct {
	Key         string     `json:"key" yaml:"key"`
	DisplayName string     `json:"displayName" yaml:"displayName"`
	ImportType  ImportType `json:"importType" yaml:"importType"`
	// IsEmpty is only reported by ListAllTables; it is always false for
	// ListAvailableTables.
	IsEmpty bool `json:"isEmpty" yaml:"isEmpty"`
}

// FieldDescriptor describes one column of a table.
type FieldDescriptor struct {
	FieldKey     string `json:"fieldKey" yaml:"fieldKey"`
	FieldName    string `json:"fieldName" yaml:"fieldName"`
	Description  string `json:"description" yaml:"description"`
	UnitsLabel   string `json:"unitsLabel" yaml:"unitsLabel"`
	IsImportable bool   `json:"isImportable" yaml:"isImportable"`
}

// CommitReport is the outcome of applying staged edits.
type CommitReport struct {
	Fatal    int    `json:"fatal" yaml:"fatal"`
	Errors   int    `json:"errors" yaml:"errors"`
	Warnings int    `json:"warnings" yaml:"warnings"`
	Info     int    `json:"info" yaml:"info"`
	Message  string `json:"message" yaml:"message"`
}

// Level returns the log level of the report. Tiers are checked in order
// and the first match wins.
func (r CommitReport) Level() slog.Level {
	switch {
	case r.Fatal != 0 || r.Errors != 0:
		return slog.LevelError
	case r.Warnings != 0:
		return slog.LevelWarn
	case r.Info != 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Rejected reports whether the application refused the edits. The model
// may still have been partly changed; nothing is rolled back.
func (r CommitReport) Rejected() bool {
	return r.Fatal != 0 || r.Errors != 0
}
