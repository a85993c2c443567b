// Package handlers exposes sessions, uploads and questions over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/statement-analyst/internal/api/middleware"
	"github.com/dvloznov/statement-analyst/internal/domain"
	"github.com/dvloznov/statement-analyst/internal/gcsuploader"
	"github.com/dvloznov/statement-analyst/internal/logger"
	"github.com/dvloznov/statement-analyst/internal/pipeline"
	"github.com/dvloznov/statement-analyst/internal/session"
)

// Upload slots as they appear in URLs.
const (
	SlotBalanceSheet  = "balance-sheet"
	SlotProfitAndLoss = "profit-and-loss"
)

var slotKinds = map[string]domain.StatementKind{
	SlotBalanceSheet:  domain.KindBalanceSheet,
	SlotProfitAndLoss: domain.KindProfitAndLoss,
}

// SessionsHandler handles session, upload and question endpoints.
type SessionsHandler struct {
	registry       *session.Registry
	maxUploadBytes int64
}

// NewSessionsHandler creates a new sessions handler. maxUploadBytes of zero
// means no limit.
func NewSessionsHandler(registry *session.Registry, maxUploadBytes int64) *SessionsHandler {
	return &SessionsHandler{registry: registry, maxUploadBytes: maxUploadBytes}
}

// Register adds every route to mux.
func (h *SessionsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.CreateSession)
	mux.HandleFunc("GET /api/sessions", h.ListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.GetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.DeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/uploads/{slot}", h.Upload)
	mux.HandleFunc("POST /api/sessions/{id}/questions", h.Ask)
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.Reset)
	mux.HandleFunc("GET /api/sessions/{id}/history", h.History)
	mux.HandleFunc("GET /health", h.Health)
}

// CreateSession handles POST /api/sessions
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.registry.Create(r.Context())
	middleware.WriteJSON(w, http.StatusCreated, s.Status())
}

// ListSessions handles GET /api/sessions
func (h *SessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := session.Filter{}

	if loaded := query.Get("loaded"); loaded != "" {
		v, err := strconv.ParseBool(loaded)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid loaded value")
			return
		}
		filter.Loaded = v
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	sessions := h.registry.List(r.Context(), filter)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, s.Status())
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionsHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload handles POST /api/sessions/{id}/uploads/{slot}
//
// The body is either multipart form data with a "file" field, or JSON
// {"gcs_uri": "gs://bucket/object"}.
func (h *SessionsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	kind, ok := slotKinds[r.PathValue("slot")]
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Unknown upload slot")
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	in, status, msg := h.readUpload(r)
	if status != 0 {
		middleware.WriteError(w, status, "BAD_REQUEST", msg)
		return
	}
	in.Slot = kind

	result, err := s.Upload(r.Context(), in)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

type gcsUploadRequest struct {
	GCSURI string `json:"gcs_uri"`
}

// readUpload returns the upload input or a non-zero status with a message.
func (h *SessionsHandler) readUpload(r *http.Request) (pipeline.UploadInput, int, string) {
	var in pipeline.UploadInput

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		maxMemory := h.maxUploadBytes
		if maxMemory <= 0 {
			maxMemory = 32 << 20
		}
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return in, uploadErrorStatus(err), "Invalid multipart body"
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return in, http.StatusBadRequest, "file is required"
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return in, uploadErrorStatus(err), "Failed to read file"
		}
		in.Filename = filepath.Base(header.Filename)
		in.Data = data
		return in, 0, ""
	}

	var req gcsUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return in, uploadErrorStatus(err), "Invalid request body"
	}
	if !gcsuploader.IsGCSURI(req.GCSURI) {
		return in, http.StatusBadRequest, "gcs_uri must be a gs:// URI"
	}
	in.GCSURI = req.GCSURI
	in.Filename = gcsuploader.ExtractFilenameFromGCSURI(req.GCSURI)
	return in, 0, ""
}

func uploadErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

type askRequest struct {
	Question string `json:"question"`
}

// AskResponse is the body returned for a question.
type AskResponse struct {
	Response  string           `json:"response"`
	HTML      string           `json:"html"`
	Code      []string         `json:"code"`
	Execution []string         `json:"execution"`
	Segments  []domain.Segment `json:"segments"`
}

// Ask handles POST /api/sessions/{id}/questions
func (h *SessionsHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		middleware.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "question is required")
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	result, err := s.Ask(r.Context(), req.Question)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	html, err := RenderMarkdown(result.Response)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Msg("Failed to render answer")
	}

	middleware.WriteJSON(w, http.StatusOK, AskResponse{
		Response:  result.Response,
		HTML:      html,
		Code:      result.Code,
		Execution: result.Execution,
		Segments:  result.Transcript.Segments,
	})
}

// Reset handles POST /api/sessions/{id}/reset
func (h *SessionsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Reset(); err != nil {
		writeFailure(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, s.Status())
}

// History handles GET /api/sessions/{id}/history
func (h *SessionsHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	turns := s.History()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"turns": turns,
		"count": len(turns),
	})
}

// Health handles GET /health
func (h *SessionsHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"sessions": h.registry.Len(),
	})
}

func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, r, err)
		return nil, false
	}
	return s, true
}

// writeFailure maps session and pipeline errors to HTTP responses.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	switch {
	case errors.Is(err, session.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Session not found")
		return
	case errors.Is(err, session.ErrBusy):
		middleware.WriteError(w, http.StatusConflict, "BUSY", "Session is busy with another request")
		return
	}

	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		log.Error().Err(err).Msg("Request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch pe.Code {
	case pipeline.CodeReadFailure, pipeline.CodeSchemaViolation:
		status = http.StatusUnprocessableEntity
	case pipeline.CodeServiceFailure:
		status = http.StatusBadGateway
	case pipeline.CodeEmptyStore:
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", string(pe.Code)).Msg("Request failed")
	} else {
		log.Warn().Err(err).Str("code", string(pe.Code)).Msg("Request rejected")
	}
	middleware.WriteError(w, status, string(pe.Code), pe.Message)
}
