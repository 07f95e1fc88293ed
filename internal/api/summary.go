package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/holteng/minne/internal/apperr"
)

// GetUserSummary handles GET /api/user-summary.
func (h *Handler) GetUserSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.GetSummary(r.Context(), owner(r))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("no summary yet"))
		} else {
			slog.Error("get summary failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// PutUserSummary handles PUT /api/user-summary (manual edit, upsert).
func (h *Handler) PutUserSummary(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	if err := h.store.UpsertSummary(r.Context(), owner(r), req.Content); err != nil {
		slog.Error("upsert summary failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CronUserNoteSummary handles POST /api/cron/user-note-summary. The
// endpoint regenerates the rolling summary from recent notes; first-time
// generation requires a minimum number of notes. When a cron token is
// configured the caller must present it.
func (h *Handler) CronUserNoteSummary(w http.ResponseWriter, r *http.Request) {
	if h.cronToken != "" && r.Header.Get("X-Cron-Token") != h.cronToken {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		return
	}
	if err := h.chat.RegenerateSummary(r.Context(), owner(r)); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		} else {
			slog.Error("summary regeneration failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
