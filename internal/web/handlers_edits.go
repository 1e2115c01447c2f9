package web

import (
	"net/http"

	"github.com/JonMunkholm/saptables/internal/core"
)

// UpdateResponse is the body returned after staging a table.
type UpdateResponse struct {
	Table   string             `json:"table"`
	Rows    int                `json:"rows"`
	Applied bool               `json:"applied"`
	Report  *core.CommitReport `json:"report,omitempty"`
	Pending []string           `json:"pending"`
}

// handleUpdateTable stages the uploaded rows for a table, replacing the
// table's staged content. ?apply=true applies all staged edits at once.
func (s *Server) handleUpdateTable(w http.ResponseWriter, r *http.Request) {
	key := tableKey(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)

	frame, err := readUpload(r, s.cfg.Server.MaxBodySize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	apply := parseBoolParam(r, "apply")
	ctx := WithRequestMetadata(r.Context(), r)
	report, err := s.service.UpdateFrame(ctx, key, frame, apply)
	if err != nil {
		s.respondReport(w, r, err, report)
		return
	}

	writeJSON(w, UpdateResponse{
		Table:   key,
		Rows:    frame.Len(),
		Applied: apply,
		Report:  report,
		Pending: s.pending(),
	})
}

// handleApplyEdits applies everything staged.
func (s *Server) handleApplyEdits(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	report, err := s.service.ApplyEdits(ctx)
	if err != nil {
		s.respondReport(w, r, err, &report)
		return
	}
	writeJSON(w, report)
}

// handleDiscardEdits drops everything staged.
func (s *Server) handleDiscardEdits(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.DiscardEdits(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"status": "discarded", "pending": s.pending()})
}

// handlePendingEdits lists the tables staged through this process.
func (s *Server) handlePendingEdits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"pending": s.pending()})
}

func (s *Server) pending() []string {
	if p := s.service.PendingEdits(); p != nil {
		return p
	}
	return []string{}
}
