package web

// handlers_common.go holds request parsing shared by the handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/saptables/internal/core"
)

// Upload content types accepted by handleUpdateTable.
const (
	contentJSON = "application/json"
	contentCSV  = "text/csv"
	contentXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errUnsupportedBody = errors.New("unsupported content type; send JSON rows, CSV or XLSX")

// tableKey returns the {tableKey} route parameter. Keys contain spaces and
// sometimes slashes, which arrive escaped.
func tableKey(r *http.Request) string {
	key := chi.URLParam(r, "tableKey")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(key); err == nil {
			key = unescaped
		}
	}
	return strings.TrimSpace(key)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseBoolParam parses a boolean query parameter; anything unparsable is
// false.
func parseBoolParam(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// journalFilter builds a journal filter from the query string.
func journalFilter(r *http.Request) core.JournalFilter {
	q := r.URL.Query()
	f := core.JournalFilter{
		TableKey: q.Get("table"),
		Action:   core.JournalAction(q.Get("action")),
		Severity: core.JournalSeverity(q.Get("severity")),
		Search:   q.Get("search"),
		Limit:    parseIntParam(r, "limit", 100),
		Offset:   parseIntParam(r, "offset", 0),
	}
	if v := q.Get("success"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Success = &b
		}
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.Since = t
		} else if t, err := time.Parse(time.DateOnly, v); err == nil {
			f.Since = t
		}
	}
	return f
}

// decodeJSON decodes a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// readUpload reads table rows from the request body. JSON bodies are an
// array of row objects; CSV and XLSX bodies have a header row. Multipart
// forms carry the file in the "file" field and are told apart by extension.
func readUpload(r *http.Request, maxSize int64) (core.Frame, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return readTableBody(mediaType, r.Body)
	}

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return core.Frame{}, fmt.Errorf("file too large or invalid form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return core.Frame{}, fmt.Errorf("no file provided: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		return readTableBody(contentCSV, file)
	case ".xlsx":
		return readTableBody(contentXLSX, file)
	case ".json":
		return readTableBody(contentJSON, file)
	default:
		return core.Frame{}, errUnsupportedBody
	}
}

func readTableBody(mediaType string, body io.Reader) (core.Frame, error) {
	switch mediaType {
	case contentJSON, "":
		dec := json.NewDecoder(body)
		dec.UseNumber()
		var rows []core.TableRow
		if err := dec.Decode(&rows); err != nil {
			return core.Frame{}, fmt.Errorf("invalid rows: %w", err)
		}
		return core.FrameFromRows(rows), nil
	case contentCSV:
		return core.ReadCSV(body)
	case contentXLSX:
		return core.ReadXLSX(body)
	default:
		return core.Frame{}, errUnsupportedBody
	}
}
