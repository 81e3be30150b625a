package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/okikae/internal/archive"
	"github.com/hyperjump/okikae/internal/models"
	"github.com/hyperjump/okikae/internal/storage"
)

// runIDHeader carries the persisted run ID alongside the archive response,
// since the body is the zip itself.
const runIDHeader = "X-Okikae-Run-Id"

// parseRequest reads the multipart form and builds the replacement request
// plus the uploaded documents. Files arrive under the "files" field; the
// replacement terms under "find", "replace" and "case_sensitive".
func (s *Server) parseRequest(r *http.Request) (models.ReplacementRequest, []*models.SourceDocument, error) {
	maxBytes := s.config.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return models.ReplacementRequest{}, nil, errors.New("invalid multipart form")
	}

	caseSensitive, _ := strconv.ParseBool(r.FormValue("case_sensitive"))
	req := models.ReplacementRequest{
		Find:          r.FormValue("find"),
		Replace:       r.FormValue("replace"),
		CaseSensitive: caseSensitive,
	}

	var docs []*models.SourceDocument
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				return req, nil, errors.New("failed to read uploaded file " + header.Filename)
			}
			content, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return req, nil, errors.New("failed to read uploaded file " + header.Filename)
			}
			docs = append(docs, &models.SourceDocument{Name: header.Filename, Content: content})
		}
	}
	return req, docs, nil
}

// runBatch executes the batch and, when persist is set, records the run.
// Persistence failures are logged but do not fail the request; the caller
// already has the result.
func (s *Server) runBatch(r *http.Request, persist bool) (*models.BatchSummary, int, error) {
	req, docs, err := s.parseRequest(r)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	summary, err := s.orchestrator.Run(r.Context(), req, docs)
	if err != nil {
		if errors.Is(err, models.ErrConfiguration) {
			return nil, http.StatusBadRequest, err
		}
		return nil, http.StatusInternalServerError, err
	}

	if persist && s.storage != nil {
		if err := s.storage.SaveRun(r.Context(), summary); err != nil {
			s.logger.Warn("failed to persist run", zap.Error(err))
		}
	}
	return summary, http.StatusOK, nil
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	summary, status, err := s.runBatch(r, true)
	if err != nil {
		s.logger.Error("replace failed", zap.Error(err))
		s.respondError(w, status, err.Error())
		return
	}

	data, err := archive.Build(summary)
	if err != nil {
		s.logger.Error("archive build failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archive.DefaultName+`"`)
	if summary.ID != "" {
		w.Header().Set(runIDHeader, summary.ID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleReplacePreview runs the same batch but returns the JSON summary
// instead of the archive, so callers can inspect counts before committing
// to a download. Previews are not recorded in run history.
func (s *Server) handleReplacePreview(w http.ResponseWriter, r *http.Request) {
	summary, status, err := s.runBatch(r, false)
	if err != nil {
		s.logger.Error("preview failed", zap.Error(err))
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summaryResponse(summary))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "run history not enabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.storage.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		out = append(out, summaryResponse(run))
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": out})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "run history not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	s.respondJSON(w, http.StatusOK, summaryResponse(run))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"supported_formats": s.orchestrator.Registry().Supported(),
	}

	if s.storage != nil {
		count, err := s.storage.CountRuns(r.Context())
		if err != nil {
			s.logger.Error("status: count runs failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["runs"] = count
	}

	configInfo := map[string]interface{}{
		"workers":          s.config.Batch.Workers,
		"max_upload_bytes": s.config.Server.MaxUploadBytes,
		"database_path":    s.config.Storage.DatabasePath,
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

// summaryResponse shapes a run for JSON output, adding the aggregate
// counters clients otherwise have to recompute.
func summaryResponse(summary *models.BatchSummary) map[string]interface{} {
	return map[string]interface{}{
		"id":                 summary.ID,
		"request":            summary.Request,
		"outcomes":           summary.Outcomes,
		"created_at":         summary.CreatedAt,
		"total_replacements": summary.TotalReplacements(),
		"succeeded":          summary.Succeeded(),
		"failed":             summary.Failed(),
		"skipped":            summary.Skipped(),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
