package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/interfaces"
	"github.com/thebunny221/smartcms-export/internal/models"
)

// exportRequestBody is the POST /api/exports payload.
type exportRequestBody struct {
	Format     string               `json:"format"`
	ReportName string               `json:"report_name"`
	Filters    models.ExportFilters `json:"filters"`
}

// handleExportCreate handles POST /api/exports: runs the pipeline and, on
// success, returns the artifact inline as an attachment.
func (s *Server) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body exportRequestBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	format, err := models.ParseFormat(body.Format)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := interfaces.ExportRequest{
		Format:     format,
		Filters:    body.Filters,
		ReportName: body.ReportName,
		Role:       common.ResolveRole(r.Context()),
		Ward:       common.ResolveWard(r.Context()),
	}

	artifact, err := s.app.ExportService.Export(r.Context(), req)
	if err != nil {
		WriteExportError(w, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Data)
}

// routeExports dispatches /api/exports/* subpaths.
func (s *Server) routeExports(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/api/exports/active":
		s.handleExportActive(w, r)
	case path == "/api/exports/capabilities":
		s.handleExportCapabilities(w, r)
	case path == "/api/exports/history":
		s.handleExportHistory(w, r)
	case path == "/api/exports/ws":
		s.app.ExportService.Hub().ServeWS(w, r)
	case strings.HasPrefix(path, "/api/exports/status/"):
		s.handleExportStatus(w, r)
	default:
		s.handleExportCancel(w, r)
	}
}

// handleExportStatus handles GET /api/exports/status/{id}.
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := PathParam(r, "/api/exports/status/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Export id is required")
		return
	}

	state, ok := s.app.ExportService.Status(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "No export found for id '"+id+"'")
		return
	}
	WriteJSON(w, http.StatusOK, state)
}

// handleExportActive handles GET /api/exports/active.
func (s *Server) handleExportActive(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"exports": s.app.ExportService.Active(),
	})
}

// handleExportCapabilities handles GET /api/exports/capabilities.
func (s *Server) handleExportCapabilities(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"formats": s.app.ExportService.Capabilities(),
	})
}

// handleExportHistory handles GET /api/exports/history?limit=N.
func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.app.History.List(r.Context(), limit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list export history")
		WriteError(w, http.StatusInternalServerError, "Failed to list export history")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": records,
	})
}

// handleExportCancel handles DELETE /api/exports/{fingerprint}.
func (s *Server) handleExportCancel(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	fingerprint := PathParam(r, "/api/exports/", "")
	if fingerprint == "" {
		WriteError(w, http.StatusBadRequest, "Export fingerprint is required")
		return
	}

	if !s.app.ExportService.Cancel(fingerprint) {
		WriteError(w, http.StatusNotFound, "No in-flight export for fingerprint '"+fingerprint+"'")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cancelled": fingerprint,
	})
}
