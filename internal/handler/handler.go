package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"osintgraph/internal/codec"
	"osintgraph/internal/domain"
	"osintgraph/internal/report"
	"osintgraph/internal/repository"
	"osintgraph/internal/service"
	"osintgraph/internal/store"
)

// MaxBodyBytes bounds request bodies
const MaxBodyBytes = 32 << 20

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GraphHandler serves the session graph and its analyses
type GraphHandler struct {
	session *service.Session
	logger  *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(session *service.Session, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{session: session, logger: logger}
}

// Health reports liveness and graph size
func (h *GraphHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"entities":  snap.Len(),
		"relations": len(snap.Relations()),
	}, http.StatusOK)
}

// EntityRequest registers one entity
type EntityRequest struct {
	ID         string            `json:"id"`
	Attributes domain.Attributes `json:"attributes"`
}

// AddEntity registers or merges an entity
func (h *GraphHandler) AddEntity(w http.ResponseWriter, r *http.Request) {
	var req EntityRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.session.AddEntity(req.ID, req.Attributes)
	if err != nil {
		h.fail(w, "Failed to add entity", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, map[string]interface{}{"id": req.ID, "created": created}, status)
}

// GetEntity returns one entity
func (h *GraphHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	e, err := h.session.Entity(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to get entity", err)
		return
	}
	writeJSON(w, e, http.StatusOK)
}

// RelationRequest registers one relation
type RelationRequest struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// AddRelation registers or relabels a relation
func (h *GraphHandler) AddRelation(w http.ResponseWriter, r *http.Request) {
	var req RelationRequest
	if !h.decode(w, r, &req) {
		return
	}

	change, err := h.session.AddRelation(req.Source, req.Target, req.Relation)
	if err != nil {
		h.fail(w, "Failed to add relation", err)
		return
	}

	status := http.StatusOK
	if change.Kind == store.ChangeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, change, status)
}

// ApplyFragment ingests producer output. The format query parameter names
// the codec (json by default).
func (h *GraphHandler) ApplyFragment(w http.ResponseWriter, r *http.Request) {
	format := formatParam(r, "json")
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	result, err := h.session.Ingest(body, format)
	if err != nil {
		h.failInput(w, "Failed to apply fragment", err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// ExportGraph writes the node-link document
func (h *GraphHandler) ExportGraph(w http.ResponseWriter, r *http.Request) {
	format := formatParam(r, "json")

	var buf bytes.Buffer
	if err := h.session.Export(&buf, format); err != nil {
		h.fail(w, "Failed to export graph", err)
		return
	}

	contentType := "application/json"
	if format == "yaml" {
		contentType = "application/x-yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=correlation_graph.%s", format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ImportGraph replaces the session graph with the posted document
func (h *GraphHandler) ImportGraph(w http.ResponseWriter, r *http.Request) {
	format := formatParam(r, "json")
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	result, err := h.session.Import(body, format)
	if err != nil {
		h.failInput(w, "Failed to import graph", err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// Patterns returns cliques, communities and modularity
func (h *GraphHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	result, err := h.session.FindPatterns(r.Context())
	if err != nil {
		h.fail(w, "Failed to find patterns", err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// Anomalies returns the outlier entities
func (h *GraphHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	result, err := h.session.DetectAnomalies(r.Context())
	if err != nil {
		h.fail(w, "Failed to detect anomalies", err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// TimelineRequest carries events to correlate. A bare JSON array of events
// is accepted too.
type TimelineRequest struct {
	Events []domain.Event `json:"events"`
}

// Timeline correlates posted events
func (h *GraphHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !h.decode(w, r, &raw) {
		return
	}

	var req TimelineRequest
	var err error
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &req.Events)
	} else {
		err = json.Unmarshal(raw, &req)
	}
	if err != nil {
		writeError(w, "Invalid events", err.Error(), http.StatusBadRequest)
		return
	}

	pairs := h.session.CorrelateTimeline(req.Events)
	writeJSON(w, map[string]interface{}{"pairs": pairs}, http.StatusOK)
}

// TextRequest carries free text for the language capabilities
type TextRequest struct {
	Text string `json:"text"`
	// Merge applies extracted entities to the session graph
	Merge bool `json:"merge,omitempty"`
}

// Extract runs the entity extractor
func (h *GraphHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.session.ExtractEntities(r.Context(), req.Text, req.Merge)
	if err != nil {
		h.fail(w, "Failed to extract entities", err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// Insights returns a free-text analysis
func (h *GraphHandler) Insights(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !h.decode(w, r, &req) {
		return
	}

	summary, status, err := h.session.Insights(r.Context(), req.Text)
	if err != nil {
		h.fail(w, "Failed to analyze text", err)
		return
	}
	writeJSON(w, map[string]interface{}{"status": status, "summary": summary}, http.StatusOK)
}

// Report renders the correlation report as plain text
func (h *GraphHandler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.session.Report(r.Context(), nil, "")
	if err != nil {
		h.fail(w, "Failed to build report", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, rep); err != nil {
		h.fail(w, "Failed to render report", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// SessionHandler serves the session archive
type SessionHandler struct {
	session *service.Session
	archive repository.Archive
	logger  *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(session *service.Session, archive repository.Archive, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{session: session, archive: archive, logger: logger}
}

// SaveRequest labels an archived session
type SaveRequest struct {
	Label string `json:"label"`
}

// List returns archived sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.archive.List(r.Context())
	if err != nil {
		fail(h.logger, w, "Failed to list sessions", err)
		return
	}
	writeJSON(w, sessions, http.StatusOK)
}

// Save archives the current graph
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if r.ContentLength != 0 {
		if !decodeBody(h.logger, w, r, &req) {
			return
		}
	}

	info, err := h.archive.Save(r.Context(), req.Label, h.session.Graph())
	if err != nil {
		fail(h.logger, w, "Failed to save session", err)
		return
	}
	writeJSON(w, info, http.StatusCreated)
}

// Get returns one archived session with its document
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.archive.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(h.logger, w, "Failed to get session", err)
		return
	}
	writeJSON(w, s, http.StatusOK)
}

// Restore replaces the live graph with an archived document
func (h *SessionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	s, err := h.archive.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(h.logger, w, "Failed to get session", err)
		return
	}

	result, err := h.session.Replace(s.Document)
	if err != nil {
		fail(h.logger, w, "Failed to restore session", err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// Delete removes an archived session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.archive.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(h.logger, w, "Failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *GraphHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	return decodeBody(h.logger, w, r, v)
}

func (h *GraphHandler) fail(w http.ResponseWriter, msg string, err error) {
	fail(h.logger, w, msg, err)
}

// failInput reports errors of handlers whose body is a document: anything
// that is not a known server-side failure is the client's input
func (h *GraphHandler) failInput(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		status = http.StatusBadRequest
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	h.logger.Debug(msg, zap.Error(err), zap.Int("status", status))
	writeError(w, msg, err.Error(), status)
}

func decodeBody(logger *zap.Logger, w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("empty request body")
		}
		logger.Debug("invalid request body", zap.Error(err))
		writeError(w, "Invalid request body", err.Error(), status)
		return false
	}
	return true
}

func fail(logger *zap.Logger, w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err), zap.Int("status", status))
	} else {
		logger.Debug(msg, zap.Error(err), zap.Int("status", status))
	}
	writeError(w, msg, err.Error(), status)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var capErr *domain.CapabilityError
	switch {
	case errors.Is(err, domain.ErrInvalidEntity),
		errors.Is(err, domain.ErrInvalidRelation),
		errors.Is(err, codec.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, repository.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGraphTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &capErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func formatParam(r *http.Request, fallback string) string {
	if f := strings.TrimSpace(r.URL.Query().Get("format")); f != "" {
		return strings.ToLower(f)
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
