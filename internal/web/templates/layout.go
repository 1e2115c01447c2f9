// Package templates holds the HTML components of the browser GUI.
//
// Components are plain templ.Component values so the pages render without a
// code generation step.
package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

// Page names used to highlight the navigation.
const (
	PageDashboard   = "dashboard"
	PageTable       = "table"
	PageJournal     = "journal"
	PageDiagnostics = "diagnostics"
)

const styles = `body{font-family:system-ui,sans-serif;margin:0;color:#1f2933}
nav{background:#1f2933;padding:.6rem 1rem}nav a{color:#cbd2d9;margin-right:1rem;text-decoration:none}
nav a.active{color:#fff;font-weight:600}main{padding:1rem 1.5rem}
table{border-collapse:collapse;font-size:.9rem}th,td{border:1px solid #d9e2ec;padding:.25rem .5rem;text-align:left}
th{background:#f0f4f8}.muted{color:#7b8794}.alert{border:1px solid #e12d39;background:#ffe3e3;padding:.75rem;margin:1rem 0}
pre{background:#f5f7fa;padding:.75rem;overflow:auto;font-size:.8rem}`

// Layout wraps body in the page chrome.
func Layout(title, active string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body>`,
			templ.EscapeString(title), styles); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<nav>"); err != nil {
			return err
		}
		for _, link := range []struct{ href, page, label string }{
			{"/", PageDashboard, "Tables"},
			{"/journal", PageJournal, "Journal"},
			{"/diagnostics", PageDiagnostics, "Diagnostics"},
		} {
			class := ""
			if link.page == active {
				class = ` class="active"`
			}
			if _, err := fmt.Fprintf(w, `<a href="%s"%s>%s</a>`, link.href, class, link.label); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</nav><main>"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main></body></html>")
		return err
	})
}

// ErrorAlert renders a user-facing error block.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert" role="alert"><strong>%s</strong>`, templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p>%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="muted">Code: %s</p></div>`, templ.EscapeString(code))
		return err
	})
}

// tableHref is the GUI link for a table key. Keys contain spaces and
// punctuation.
func tableHref(key string) string {
	return "/table/" + url.PathEscape(key)
}
