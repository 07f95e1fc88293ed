package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/auth"
	"github.com/holteng/minne/internal/models"
	"github.com/holteng/minne/internal/store"
)

// TopicRef names (and optionally colors) the topic a note belongs to.
// Topics are created inline when the name is new.
type TopicRef struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// NoteRequest is the request body for creating or updating a note.
type NoteRequest struct {
	Content        string              `json:"content"`
	StartTimestamp *time.Time          `json:"startTimestamp"`
	EndTimestamp   *time.Time          `json:"endTimestamp"`
	Granularity    *models.Granularity `json:"granularity"`
	Metadata       map[string]any      `json:"metadata"`
	Topic          *TopicRef           `json:"topic"`
}

func owner(r *http.Request) string {
	o, _ := auth.OwnerFromContext(r.Context())
	return o
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// buildNote shapes a NoteRequest into a Note, resolving the inline topic.
func (h *Handler) buildNote(ctx context.Context, ownerID string, req *NoteRequest) (*models.Note, error) {
	n := &models.Note{
		Owner:          ownerID,
		Content:        req.Content,
		StartTimestamp: req.StartTimestamp,
		EndTimestamp:   req.EndTimestamp,
		Granularity:    req.Granularity,
		Metadata:       req.Metadata,
	}
	if err := n.ValidateShape(); err != nil {
		return nil, err
	}
	if req.Topic != nil && req.Topic.Name != "" {
		topic, err := h.store.EnsureTopic(ctx, ownerID, req.Topic.Name, req.Topic.Color)
		if err != nil {
			return nil, err
		}
		n.TopicID = &topic.ID
	}
	return n, nil
}

// ListNotes handles GET /api/notes with optional pagination and filters.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := store.NoteFilter{Limit: limit, Offset: offset, Timeless: q.Get("timeless") == "true"}
	if raw := q.Get("topicId"); raw != "" {
		topicID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("topicId must be numeric"))
			return
		}
		filter.TopicID = &topicID
	}

	notes, total, err := h.store.ListNotes(r.Context(), owner(r), filter)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notes": notes,
		"total": total,
	})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("note id must be numeric"))
		return
	}
	note, err := h.store.GetNote(r.Context(), owner(r), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	n, err := h.buildNote(r.Context(), owner(r), &req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	created, err := h.store.CreateNote(r.Context(), n)
	if err != nil {
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.broker != nil {
		h.broker.PublishNoteEvent("created", created.ID)
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateNote handles PATCH /api/notes/{id}. The provided fields replace
// the stored ones; attachments are preserved.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("note id must be numeric"))
		return
	}

	existing, err := h.store.GetNote(r.Context(), owner(r), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	n, err := h.buildNote(r.Context(), owner(r), &req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	n.ID = id
	n.Attachments = existing.Attachments

	updated, err := h.store.UpdateNote(r.Context(), n)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update note failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if h.broker != nil {
		h.broker.PublishNoteEvent("updated", id)
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteNote handles DELETE /api/notes/{id}. Attachment blobs are cleaned
// up best-effort after the row is gone.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("note id must be numeric"))
		return
	}
	ownerID := owner(r)
	if err := h.store.DeleteNote(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete note failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if err := h.objects.DeleteAll(r.Context(), ownerID, id); err != nil {
		slog.Warn("attachment cleanup failed", slog.Int64("id", id), slog.String("error", err.Error()))
	}
	if h.broker != nil {
		h.broker.PublishNoteEvent("deleted", id)
	}
	w.WriteHeader(http.StatusNoContent)
}
