package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/chat"
)

// StreamChatTurn handles POST /api/chat: it validates the turn request
// and streams the model response as SSE. Errors before the first event
// use plain JSON statuses; once the stream has started they arrive as an
// in-stream error event.
func (h *Handler) StreamChatTurn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	req, err := chat.ParseTurnRequest(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody("streaming unsupported"))
		return
	}

	started := false
	emit := func(ev chat.StreamEvent) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	runErr := h.chat.RunTurn(r.Context(), owner(r), req, emit)
	if runErr != nil {
		if !started {
			switch {
			case errors.Is(runErr, apperr.ErrNotImplemented):
				writeJSON(w, http.StatusNotImplemented, errorBody("note-id context references are not implemented"))
			case errors.Is(runErr, chat.ErrInvalidContextRef):
				writeJSON(w, http.StatusBadRequest, errorBody(runErr.Error()))
			default:
				slog.Error("chat turn failed", slog.String("chat_id", req.ChatID), slog.String("error", runErr.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}
		// In-stream failures were already reported as an error event.
		slog.Error("chat turn failed mid-stream", slog.String("chat_id", req.ChatID), slog.String("error", runErr.Error()))
		return
	}

	if h.broker != nil {
		h.broker.PublishChatUpdated(req.ChatID)
	}
}
