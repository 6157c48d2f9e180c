// Package api exposes the study engine over HTTP. Identity arrives in the
// X-Learner-ID header; authenticating it is the job of whatever sits in front.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/studyengine/internal/study"
)

// Handler serves the study endpoints
type Handler struct {
	study  *study.Service
	topics study.TopicStore
	items  study.ItemStore
	logger *slog.Logger
}

// NewHandler creates the HTTP handler set
func NewHandler(service *study.Service, topics study.TopicStore, items study.ItemStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{study: service, topics: topics, items: items, logger: logger}
}

type startRequest struct {
	Limit int `json:"limit"`
}

type gradeRequest struct {
	ItemID         int64 `json:"item_id"`
	Grade          int   `json:"grade"`
	ElapsedSeconds *int  `json:"elapsed_seconds"`
}

type pauseRequest struct {
	ElapsedSeconds int `json:"elapsed_seconds"`
}

// StartSession handles POST /api/study/topics/{topicID}/start
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := h.learnerID(w, r)
	if !ok {
		return
	}
	topicID, err := strconv.ParseInt(r.PathValue("topicID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid topic ID", http.StatusBadRequest)
		return
	}

	var req startRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	result, err := h.study.StartSession(r.Context(), learnerID, topicID, req.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GradeItem handles POST /api/study/sessions/{sessionID}/grade
func (h *Handler) GradeItem(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := h.learnerID(w, r)
	if !ok {
		return
	}
	sessionID := r.PathValue("sessionID")

	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.study.GradeItem(r.Context(), learnerID, sessionID, req.ItemID, req.Grade, req.ElapsedSeconds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PauseSession handles POST /api/study/sessions/{sessionID}/pause
func (h *Handler) PauseSession(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := h.learnerID(w, r)
	if !ok {
		return
	}
	sessionID := r.PathValue("sessionID")

	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.study.PauseSession(r.Context(), learnerID, sessionID, req.ElapsedSeconds); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetOverview handles GET /api/study/overview
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := h.learnerID(w, r)
	if !ok {
		return
	}

	overview, err := h.study.GetOverview(r.Context(), learnerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// GetTopics handles GET /api/topics
func (h *Handler) GetTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.GetAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

// GetTopicItems handles GET /api/topics/{topicID}/items
func (h *Handler) GetTopicItems(w http.ResponseWriter, r *http.Request) {
	topicID, err := strconv.ParseInt(r.PathValue("topicID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid topic ID", http.StatusBadRequest)
		return
	}

	topic, err := h.topics.GetByID(r.Context(), topicID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if topic == nil {
		http.Error(w, "topic not found", http.StatusNotFound)
		return
	}

	items, err := h.items.GetByTopic(r.Context(), topicID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// learnerID extracts the caller identity, failing the request when absent
func (h *Handler) learnerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	learnerID := r.Header.Get("X-Learner-ID")
	if learnerID == "" {
		http.Error(w, "X-Learner-ID header is required", http.StatusBadRequest)
		return "", false
	}
	return learnerID, true
}

// writeError maps the service error taxonomy onto HTTP statuses
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, study.ErrNotFound),
		errors.Is(err, study.ErrNoContent),
		errors.Is(err, study.ErrEmptyQueue):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, study.ErrInvalidInput),
		errors.Is(err, study.ErrInvalidGrade):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, study.ErrOutOfOrder),
		errors.Is(err, study.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
