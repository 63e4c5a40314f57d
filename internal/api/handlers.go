package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/circuitlens/circuitlens/core/engine"
	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/internal/detect"
	"github.com/circuitlens/circuitlens/internal/logging"
	"github.com/circuitlens/circuitlens/internal/store"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// DetectRequest is the request body for dialect detection.
type DetectRequest struct {
	Code string `json:"code"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status    string   `json:"status"`
	Uptime    string   `json:"uptime"`
	Languages []string `json:"languages"`
	CacheHits int64    `json:"cacheHits"`
	CacheSize int      `json:"cacheSize"`
	Analyses  int      `json:"analyses,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "POST required")
		return
	}
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	ctx := r.Context()
	logging.AnalysisStarted(ctx, req.Language, len(req.Code))
	start := time.Now()
	report, err := s.engine.Analyze(ctx, req)
	if err != nil {
		logging.AnalysisFailed(ctx, req.Language, err)
		status, code := statusForError(err)
		respondError(w, status, code, err.Error())
		return
	}
	logging.AnalysisCompleted(ctx, req.Language, report.Classification, report.Confidence, time.Since(start))

	if s.store != nil {
		if _, err := s.store.Save(ctx, report); err != nil {
			logging.ErrorContext(ctx, "history save failed", "error", err)
		}
	}
	respond(w, http.StatusOK, report)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "POST required")
		return
	}
	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	respond(w, http.StatusOK, detect.Detect(req.Code))
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "GET required")
		return
	}
	respond(w, http.StatusOK, s.engine.Languages())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.CacheStats()
	info := HealthInfo{
		Status:    "ok",
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Languages: s.engine.Languages(),
		CacheHits: stats.Hits,
		CacheSize: stats.Size,
	}
	if s.store != nil {
		if n, err := s.store.Count(r.Context()); err == nil {
			info.Analyses = n
		}
	}
	respond(w, http.StatusOK, info)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "GET required")
		return
	}
	if s.store == nil {
		respondTotal(w, http.StatusOK, []store.Record{}, 0)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	respondTotal(w, http.StatusOK, records, len(records))
}

// statusForError maps the error taxonomy to HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, errors.ErrUnsupportedLanguage):
		return http.StatusBadRequest, "UNSUPPORTED_LANGUAGE"
	case errors.Is(err, errors.ErrParse):
		return http.StatusUnprocessableEntity, "PARSE_ERROR"
	case errors.Is(err, errors.ErrUnknownGate):
		return http.StatusUnprocessableEntity, "UNKNOWN_GATE"
	case errors.Is(err, errors.ErrRegisterBounds):
		return http.StatusUnprocessableEntity, "REGISTER_BOUNDS"
	case errors.Is(err, errors.ErrResourceLimit):
		return http.StatusRequestEntityTooLarge, "RESOURCE_LIMIT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondTotal(w http.ResponseWriter, status int, data interface{}, total int) {
	writeResponse(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Total: total, Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func writeResponse(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
