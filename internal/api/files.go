package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/models"
)

// safeFilename validates that the name is a plain filename with no path
// separators or traversal.
func safeFilename(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

// noteForFiles loads the note an attachment operation targets.
func (h *Handler) noteForFiles(w http.ResponseWriter, r *http.Request) (*models.Note, bool) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("note id must be numeric"))
		return nil, false
	}
	note, err := h.store.GetNote(r.Context(), owner(r), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return nil, false
	}
	return note, true
}

// ListFiles handles GET /api/notes/{id}/files, returning each attachment
// with a signed download URL.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	note, ok := h.noteForFiles(w, r)
	if !ok {
		return
	}
	type fileEntry struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}
	files := make([]fileEntry, 0, len(note.Attachments))
	for _, name := range note.Attachments {
		url, err := h.objects.SignedURL(r.Context(), note.Owner, note.ID, name, h.signedURLTTL)
		if err != nil {
			slog.Error("sign url failed", slog.String("filename", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		files = append(files, fileEntry{Filename: name, URL: url})
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// UploadFile handles POST /api/notes/{id}/files (multipart/form-data,
// field "file").
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	note, ok := h.noteForFiles(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := safeFilename(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if err := h.objects.Put(r.Context(), note.Owner, note.ID, name, file, header.Size, contentType); err != nil {
		slog.Error("upload failed", slog.String("filename", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	if !slices.Contains(note.Attachments, name) {
		note.Attachments = append(note.Attachments, name)
		if err := h.store.SetAttachments(r.Context(), note.Owner, note.ID, note.Attachments); err != nil {
			slog.Error("record attachment failed", slog.String("filename", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
	}
	if h.broker != nil {
		h.broker.PublishNoteEvent("updated", note.ID)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"filename": name,
		"size":     header.Size,
	})
}

// GetFileURL handles GET /api/notes/{id}/files/{filename}, redirecting
// to a time-limited signed URL for the download.
func (h *Handler) GetFileURL(w http.ResponseWriter, r *http.Request) {
	note, ok := h.noteForFiles(w, r)
	if !ok {
		return
	}
	name, err := safeFilename(chi.URLParam(r, "filename"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if !slices.Contains(note.Attachments, name) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	url, err := h.objects.SignedURL(r.Context(), note.Owner, note.ID, name, h.signedURLTTL)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("sign url failed", slog.String("filename", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// DeleteFile handles DELETE /api/notes/{id}/files/{filename}.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	note, ok := h.noteForFiles(w, r)
	if !ok {
		return
	}
	name, err := safeFilename(chi.URLParam(r, "filename"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if !slices.Contains(note.Attachments, name) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}

	if err := h.objects.Delete(r.Context(), note.Owner, note.ID, name); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		slog.Error("delete blob failed", slog.String("filename", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	remaining := slices.DeleteFunc(slices.Clone(note.Attachments), func(f string) bool { return f == name })
	if err := h.store.SetAttachments(r.Context(), note.Owner, note.ID, remaining); err != nil {
		slog.Error("record attachment removal failed", slog.String("filename", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.broker != nil {
		h.broker.PublishNoteEvent("updated", note.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}
