package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
	"github.com/spf13/cast"

	"github.com/JonMunkholm/saptables/internal/core"
)

// DashboardParams feeds the table listing page.
type DashboardParams struct {
	Tables   []core.TableDescriptor
	ShowAll  bool
	Model    core.ModelInfo
	ModelErr *core.UserMessage
	Lease    core.LeaseStatus
	Pending  []string
}

// Dashboard lists the tables of the active model.
func Dashboard(p DashboardParams) templ.Component {
	return Layout("Tables", PageDashboard, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := modelSummary(w, p); err != nil {
			return err
		}

		toggle, label := "?all=true", "Show all tables"
		if p.ShowAll {
			toggle, label = "?all=false", "Show available tables only"
		}
		if _, err := fmt.Fprintf(w, `<h2>Tables (%d)</h2><p><a href="/%s">%s</a></p>`, len(p.Tables), toggle, label); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<table><thead><tr><th>Table</th><th>Import</th>`); err != nil {
			return err
		}
		if p.ShowAll {
			if _, err := io.WriteString(w, `<th>Has data</th>`); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</tr></thead><tbody>`); err != nil {
			return err
		}
		for _, t := range p.Tables {
			if _, err := fmt.Fprintf(w, `<tr><td><a href="%s">%s</a></td><td>%s</td>`,
				templ.EscapeString(tableHref(t.Key)), templ.EscapeString(t.Key), t.ImportType); err != nil {
				return err
			}
			if p.ShowAll {
				has := "yes"
				if t.IsEmpty {
					has = `<span class="muted">no</span>`
				}
				if _, err := fmt.Fprintf(w, `<td>%s</td>`, has); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</tr>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	}))
}

func modelSummary(w io.Writer, p DashboardParams) error {
	if p.ModelErr != nil {
		return ErrorAlert(p.ModelErr.Message, p.ModelErr.Action, p.ModelErr.Code).Render(context.Background(), w)
	}
	m := p.Model
	lock := "unlocked"
	if m.Locked {
		lock = "locked"
	}
	_, err := fmt.Fprintf(w, `<h1>%s</h1><p class="muted">Version %s, %s. Present units %s, reads in %s.</p>`,
		templ.EscapeString(m.Filename), templ.EscapeString(m.Version), lock, m.PresentUnits, m.CanonicalUnits)
	if err != nil {
		return err
	}
	if len(p.Pending) > 0 {
		if _, err := fmt.Fprintf(w, `<p><strong>%d table(s) staged, not yet applied.</strong></p>`, len(p.Pending)); err != nil {
			return err
		}
	}
	if p.Lease.Held {
		_, err = fmt.Fprintf(w, `<p class="muted">Automation handle busy: %s (%d waiting)</p>`,
			templ.EscapeString(p.Lease.Operation), p.Lease.Waiting)
	}
	return err
}

// TableViewParams feeds the single table page.
type TableViewParams struct {
	Key    string
	Fields []core.FieldDescriptor
	Frame  core.Frame
	Units  string
}

// TableView shows the field descriptors and the rows of one table.
func TableView(p TableViewParams) templ.Component {
	return Layout(p.Key, PageTable, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		escaped := url.PathEscape(p.Key)
		if _, err := fmt.Fprintf(w, `<h1>%s</h1><p class="muted">%d rows in %s. Export <a href="/api/tables/%s/export.csv">CSV</a> or <a href="/api/tables/%s/export.xlsx">XLSX</a>.</p>`,
			templ.EscapeString(p.Key), p.Frame.Len(), templ.EscapeString(p.Units),
			templ.EscapeString(escaped), templ.EscapeString(escaped)); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<h2>Fields</h2><table><thead><tr><th>Key</th><th>Name</th><th>Description</th><th>Units</th><th>Importable</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, f := range p.Fields {
			if _, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%t</td></tr>`,
				templ.EscapeString(f.FieldKey), templ.EscapeString(f.FieldName), templ.EscapeString(f.Description),
				templ.EscapeString(f.UnitsLabel), f.IsImportable); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</tbody></table><h2>Data</h2>`); err != nil {
			return err
		}
		return FrameTable(p.Frame).Render(ctx, w)
	}))
}

// FrameTable renders a frame as an HTML table. Absent cells are blank.
func FrameTable(f core.Frame) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(f.Columns) == 0 {
			_, err := io.WriteString(w, `<p class="muted">No rows.</p>`)
			return err
		}
		if _, err := io.WriteString(w, `<table><thead><tr>`); err != nil {
			return err
		}
		for _, c := range f.Columns {
			if _, err := fmt.Fprintf(w, `<th>%s</th>`, templ.EscapeString(c)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</tr></thead><tbody>`); err != nil {
			return err
		}
		for _, row := range f.Rows {
			if _, err := io.WriteString(w, `<tr>`); err != nil {
				return err
			}
			for j := range f.Columns {
				var cell string
				if j < len(row) && row[j] != nil {
					cell = cast.ToString(row[j])
				}
				if _, err := fmt.Fprintf(w, `<td>%s</td>`, templ.EscapeString(cell)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</tr>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}
