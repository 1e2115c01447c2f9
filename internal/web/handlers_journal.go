package web

import (
	"net/http"

	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/JonMunkholm/saptables/internal/web/templates"
)

// handleJournal returns journal entries, newest first. Query parameters:
// table, action, severity, success, search, since, limit, offset.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.Journal(r.Context(), journalFilter(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.JournalEntry{}
	}
	writeJSON(w, entries)
}

// handleJournalPage renders the journal with the same filters.
func (s *Server) handleJournalPage(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.Journal(r.Context(), journalFilter(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = templates.JournalPage(entries).Render(r.Context(), w)
}

// handleLogs returns the newest diagnostic log lines. ?lines=N limits the
// count (default 200).
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"lines": s.logLines(parseIntParam(r, "lines", 200))})
}

// handleDiagnostics renders the diagnostic log and lease state.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = templates.DiagnosticsPage(s.logLines(parseIntParam(r, "lines", 200)), s.service.LeaseStatus()).Render(r.Context(), w)
}

func (s *Server) logLines(n int) []string {
	if s.diag == nil {
		return []string{}
	}
	return s.diag.Tail(n)
}
