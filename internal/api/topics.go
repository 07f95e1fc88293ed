package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/models"
)

// ListTopics handles GET /api/topics.
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.store.ListTopics(r.Context(), owner(r))
	if err != nil {
		slog.Error("list topics failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

// GetTopic handles GET /api/topics/{id}.
func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("topic id must be numeric"))
		return
	}
	topic, err := h.store.GetTopic(r.Context(), owner(r), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get topic failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// DeleteTopic handles DELETE /api/topics/{id}. A topic still referenced
// by notes is rejected with the exact referencing count.
func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("topic id must be numeric"))
		return
	}
	ownerID := owner(r)

	count, err := h.store.CountNotesByTopic(r.Context(), ownerID, id)
	if err != nil {
		slog.Error("count topic notes failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusBadRequest, errorBody(
			fmt.Sprintf("topic is still referenced by %d notes", count)))
		return
	}

	if err := h.store.DeleteTopic(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete topic failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if h.broker != nil {
		h.broker.PublishTopicDeleted(id)
	}
	w.WriteHeader(http.StatusNoContent)
}
