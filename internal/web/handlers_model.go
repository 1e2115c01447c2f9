package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/JonMunkholm/saptables/internal/core"
)

// handleStatus reports the automation handle lease and staged tables.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"lease":          s.service.LeaseStatus(),
		"pending":        s.pending(),
		"canonicalUnits": s.service.CanonicalUnits(),
	})
}

// handleModelInfo returns a snapshot of the active model.
func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.ModelInfo(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, info)
}

// handleSetUnits changes the application's present units.
// Body: {"units": "kN_m_C"}
func (s *Server) handleSetUnits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Units string `json:"units"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := core.ParseUnits(req.Units)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.SetPresentUnits(ctx, u); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"units": u})
}

// handleSave saves the model, to its current file or to {"path": ...}.
// An empty body saves in place.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.Save(ctx, req.Path); err != nil {
		s.respondError(w, r, err)
		return
	}
	name, err := s.service.ModelFilename(r.Context(), true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "saved", "filename": name})
}

// handleLock returns a handler that locks or unlocks the model.
func (s *Server) handleLock(locked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequestMetadata(r.Context(), r)
		if err := s.service.SetLocked(ctx, locked); err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, map[string]bool{"locked": locked})
	}
}

// handleSetMergeTolerance sets the joint merge tolerance.
// Body: {"tolerance": 0.001}
func (s *Server) handleSetMergeTolerance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tolerance *float64 `json:"tolerance"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Tolerance == nil {
		writeError(w, r, http.StatusBadRequest, "body must be {\"tolerance\": number}")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.SetMergeTolerance(ctx, *req.Tolerance); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]float64{"tolerance": *req.Tolerance})
}

// handleProjectInfo returns the model's project information items.
func (s *Server) handleProjectInfo(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ProjectInfo(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, items)
}

// handleSetProjectInfo sets one project information item.
// Body: {"item": "Engineer", "data": "..."}
func (s *Server) handleSetProjectInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item string `json:"item"`
		Data string `json:"data"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Item == "" {
		writeError(w, r, http.StatusBadRequest, "body must be {\"item\": string, \"data\": string}")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.SetProjectInfo(ctx, req.Item, req.Data); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, req)
}

// handleUserComment returns the model's user comments.
func (s *Server) handleUserComment(w http.ResponseWriter, r *http.Request) {
	comment, err := s.service.UserComment(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"comment": comment})
}

// handleSetUserComment appends to or replaces the user comments.
// Body: {"comment": "...", "replace": false}
func (s *Server) handleSetUserComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment string `json:"comment"`
		Replace bool   `json:"replace"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.SetUserComment(ctx, req.Comment, req.Replace); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.handleUserComment(w, r)
}

// handleRefreshView redraws the application's views.
func (s *Server) handleRefreshView(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RefreshView(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "refreshed"})
}
