package web

// errors.go turns service errors into HTTP responses.
//
// The technical error is logged with the request ID; the client gets the
// core.MapError message as JSON for API calls and as an error block for
// pages.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/oapi"
	"github.com/JonMunkholm/saptables/internal/web/templates"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	// Report is set when applying staged edits was rejected.
	Report *core.CommitReport `json:"report,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrHandleBusy), errors.Is(err, oapi.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, core.ErrShapeMismatch),
		errors.Is(err, core.ErrNoColumns),
		errors.Is(err, core.ErrUnknownUnits),
		errors.Is(err, core.ErrEmptySheet):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrCommitRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrCallFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondReport(w, r, err, nil)
}

// respondReport is respondError carrying a commit report.
func (s *Server) respondReport(w http.ResponseWriter, r *http.Request, err error, report *core.CommitReport) {
	status := statusFor(err)
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)

	if errors.Is(err, core.ErrHandleBusy) {
		w.Header().Set("Retry-After", "5")
	}

	if !wantsJSON(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.Layout("Error", "", templates.ErrorAlert(msg.Message, msg.Action, msg.Code)).Render(r.Context(), w)
		return
	}

	writeJSONStatus(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Report:  report,
	})
}

// writeError writes a request validation error that never reached the
// service.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("bad request",
		"path", r.URL.Path,
		"status", status,
		"error", message,
	)
	writeJSONStatus(w, status, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "HTTP" + strconv.Itoa(status),
	})
}

// writeJSON encodes v as a 200 response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// wantsJSON reports whether the client expects a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
