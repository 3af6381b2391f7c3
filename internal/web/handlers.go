package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dictx/internal/codec"
	"github.com/JonMunkholm/dictx/internal/core"
	"github.com/JonMunkholm/dictx/internal/logging"
	"github.com/JonMunkholm/dictx/internal/wire"
)

// ExportRequestBody is the JSON body of POST /api/export.
type ExportRequestBody struct {
	Tables               []string `json:"tables"`
	Format               string   `json:"format"`
	SubstituteMacros     *bool    `json:"substitute_macros"`
	IncludeReservedIDs   *bool    `json:"include_reserved_ids"`
	IncludeVariablePaths *bool    `json:"include_variable_paths"`
}

// FormatInfo describes one document format.
type FormatInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Extension   string `json:"extension"`
	Default     bool   `json:"default"`
}

// =============================================================================
// Listings
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	defaultName := s.cfg.Codec.DefaultFormat
	if defaultName == "" {
		defaultName = wire.DefaultFormat
	}
	var out []FormatInfo
	for _, name := range s.service.Formats() {
		f, err := wire.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, FormatInfo{
			Name:        f.Name(),
			ContentType: f.ContentType(),
			Extension:   f.Extension(),
			Default:     f.Name() == strings.ToLower(defaultName),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.service.ListTables(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleListTableTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.service.ListTableTypes(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// =============================================================================
// Export and import
// =============================================================================

// handleExport writes the encoded document as an attachment. The run ID and
// warning count travel in response headers.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body ExportRequestBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			s.respondError(w, r, fmt.Errorf("%w: export request: %v", codec.ErrMalformedDocument, err), http.StatusBadRequest)
			return
		}
	}
	if body.Format == "" {
		body.Format = r.URL.Query().Get("format")
	}

	res, err := s.service.Export(r.Context(), core.ExportRequest{
		Tables:               body.Tables,
		Format:               body.Format,
		SubstituteMacros:     body.SubstituteMacros,
		IncludeReservedIDs:   body.IncludeReservedIDs,
		IncludeVariablePaths: body.IncludeVariablePaths,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	logger := logging.FromContext(r.Context(), "run_id", res.RunID)
	for _, warn := range res.Warnings {
		logger.Warn("export warning", "table", warn.Table, "message", warn.Message)
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "dictionary" + res.Extension,
	}))
	w.Header().Set("X-Run-ID", res.RunID)
	w.Header().Set("X-Export-Warnings", strconv.Itoa(len(res.Warnings)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		logger.Error("write export", "error", err)
	}
}

// handleImport reads a raw document body. The format comes from the format
// query parameter or the Content-Type. scope, on_error and dry_run are
// optional query parameters.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	scope, err := codec.ParseScope(q.Get("scope"))
	if err != nil {
		s.respondError(w, r, badRequest(err), http.StatusBadRequest)
		return
	}
	var decide codec.DecideFunc
	if v := q.Get("on_error"); v != "" {
		d, err := codec.ParseDecision(v)
		if err != nil {
			s.respondError(w, r, badRequest(err), http.StatusBadRequest)
			return
		}
		decide = codec.Always(d)
	}
	dryRun := false
	if v := q.Get("dry_run"); v != "" {
		if dryRun, err = strconv.ParseBool(v); err != nil {
			s.respondError(w, r, badRequest(fmt.Errorf("dry_run: %w", err)), http.StatusBadRequest)
			return
		}
	}

	format := q.Get("format")
	if format == "" {
		format = formatFromContentType(r.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxDocumentSize))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	sum, err := s.service.Import(r.Context(), core.ImportRequest{
		Format: format,
		Data:   data,
		Scope:  scope,
		Decide: decide,
		DryRun: dryRun,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.Header().Set("X-Run-ID", sum.RunID)
	writeJSON(w, http.StatusOK, sum)
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", codec.ErrMalformedDocument, err)
}

// formatFromContentType maps a media type to a registered format name. An
// unrecognized or generic type yields "" so the service default applies.
func formatFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	for _, name := range wire.Names() {
		f, err := wire.Lookup(name)
		if err == nil && f.ContentType() == mediaType {
			return f.Name()
		}
	}
	switch mediaType {
	case "text/xml":
		return "xml"
	case "text/yaml", "application/x-yaml":
		return "yaml"
	}
	return ""
}

// =============================================================================
// Runs
// =============================================================================

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, s.service.History().Recent(limit))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.service.History().Get(chi.URLParam(r, "runID"))
	if !ok {
		respondErrorJSON(w, core.UserMessage{
			Message: "Run not found",
			Action:  "Only recent runs are kept",
			Code:    "RUN004",
		}, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"runs": s.service.Limiter().Status(),
	})
}
