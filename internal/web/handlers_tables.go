package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/web/templates"
)

// handleDashboard renders the table listing with a model summary.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	showAll := parseBoolParam(r, "all")

	tables, err := s.listTables(r, showAll)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	params := templates.DashboardParams{
		Tables:  tables,
		ShowAll: showAll,
		Lease:   s.service.LeaseStatus(),
		Pending: s.service.PendingEdits(),
	}
	// The listing is still useful when the model summary fails.
	if info, err := s.service.ModelInfo(ctx); err != nil {
		msg := core.MapError(err)
		params.ModelErr = &msg
	} else {
		params.Model = info
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = templates.Dashboard(params).Render(ctx, w)
}

// handleTableView renders one table's fields and rows.
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	key := tableKey(r)
	ctx := r.Context()

	fields, err := s.service.TableFields(ctx, key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	frame, err := s.service.TableFrame(ctx, key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = templates.TableView(templates.TableViewParams{
		Key:    key,
		Fields: fields,
		Frame:  frame,
		Units:  s.service.CanonicalUnits().String(),
	}).Render(ctx, w)
}

// handleListTables returns the table listing. ?all=true lists every table
// the application knows; otherwise only tables present in the model.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.listTables(r, parseBoolParam(r, "all"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, tables)
}

func (s *Server) listTables(r *http.Request, all bool) ([]core.TableDescriptor, error) {
	if all {
		return s.service.ListAllTables(r.Context())
	}
	return s.service.ListAvailableTables(r.Context())
}

// handleTableFields returns a table's field descriptors.
func (s *Server) handleTableFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.service.TableFields(r.Context(), tableKey(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, fields)
}

// handleTableData returns a table's rows as objects in canonical units.
func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	rows, err := s.service.TableData(r.Context(), tableKey(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.TableRow{}
	}
	writeJSON(w, rows)
}

// handleTableFrame returns a table as columns plus positional rows.
func (s *Server) handleTableFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := s.service.TableFrame(r.Context(), tableKey(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, frame)
}

// handleExport downloads a table as CSV or XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key := tableKey(r)
	format := chi.URLParam(r, "format")
	if format != "csv" && format != "xlsx" {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}

	frame, err := s.service.TableFrame(r.Context(), key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", core.SheetName(key), time.Now().Format("20060102_150405"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	if format == "csv" {
		w.Header().Set("Content-Type", contentCSV)
		err = core.WriteCSV(w, frame)
	} else {
		w.Header().Set("Content-Type", contentXLSX)
		err = core.WriteXLSX(w, key, frame)
	}
	if err != nil {
		// Headers are gone; all that is left is to log.
		logging.FromContext(r.Context()).Error("export failed", "table", key, "format", format, "error", err)
	}
}
