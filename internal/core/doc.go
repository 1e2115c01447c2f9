// Package core provides the table marshaling layer over the external
// structural-analysis application.
//
// This package sits between presentation (web handlers, the CLI) and the raw
// automation handle in package oapi. Presentation code calls [Service] only;
// it never reaches the handle directly.
//
// # Architecture
//
//   - Converter: [ToRows], [ToFlat], [ToFrame] and [Frame.Flatten] reshape
//     between the application's flat, row-major cell sequence and ordered
//     records. They are pure and safe for concurrent use.
//   - Call Normalizer: [Normalize] applies the trailing-status convention to
//     a raw result. [Service] wraps every call with it, logs the call at
//     debug level, and turns failures into a [*CallError] logged at
//     critical level. No panic from the backend escapes.
//   - Table Session: [Service.ListAllTables], [Service.ListAvailableTables],
//     [Service.TableFields], [Service.TableData], [Service.UpdateTable],
//     [Service.ApplyEdits] and [Service.DiscardEdits].
//   - Model facade: units, lock, filename, save, version and project
//     information.
//
// # Unit Bracketing
//
// Table values depend on the application's present unit system. Reads run
// under the canonical system (kN_m_C unless configured otherwise) and the
// previous system is restored on every exit path, including failures.
//
// # Handle Lease
//
// The application keeps one present unit setting and one staging area for
// the whole process. Every Service operation holds a [HandleLease] for its
// duration, so operations on one handle never interleave. Callers that
// cannot get the lease within the configured wait receive [ErrHandleBusy].
//
// # Commit Severity
//
// [Service.ApplyEdits] reports a [CommitReport]. Its log level is chosen by
// the first matching tier: fatal or error counts give error, warnings give
// warn, info gives info, otherwise debug.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - OAPI001-OAPI002: Automation call failures and a busy handle
//   - SHAPE001: Flat cell sequence out of step with its headers
//   - TBL001: Unknown table
//   - UNIT001: Unknown unit system
//   - COMMIT001: Apply rejected staged edits
//
// # Edit Journal
//
// Every stage, apply and discard outcome is recorded in a [Journal]. The
// default store is an in-memory ring; [PostgresJournal] persists entries.
// Journal failures are logged and never fail the edit itself.
package core
