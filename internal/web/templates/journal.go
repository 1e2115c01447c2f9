package templates

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/saptables/internal/core"
)

// JournalPage lists edit journal entries, newest first.
func JournalPage(entries []core.JournalEntry) templ.Component {
	return Layout("Journal", PageJournal, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>Edit journal</h1><p class="muted">%d entries</p>`, len(entries)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<table><thead><tr><th>Time</th><th>Action</th><th>Severity</th><th>Table</th><th>Rows</th><th>Result</th><th>Message</th><th>Source</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, e := range entries {
			result := "ok"
			if !e.Success {
				result = "failed"
			}
			if _, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				e.CreatedAt.Local().Format(time.DateTime), e.Action, e.Severity, templ.EscapeString(e.TableKey),
				e.Rows, result, templ.EscapeString(e.Message), templ.EscapeString(e.Source)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	}))
}

// DiagnosticsPage shows the most recent log lines.
func DiagnosticsPage(lines []string, lease core.LeaseStatus) templ.Component {
	return Layout("Diagnostics", PageDiagnostics, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		state := "idle"
		if lease.Held {
			state = fmt.Sprintf("held by %s for %s, %d waiting", lease.Operation, lease.HeldFor.Round(time.Millisecond), lease.Waiting)
		}
		if _, err := fmt.Fprintf(w, `<h1>Diagnostics</h1><p>Automation handle: %s</p><pre>`, templ.EscapeString(state)); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := io.WriteString(w, templ.EscapeString(line)+"\n"); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</pre>`)
		return err
	}))
}
