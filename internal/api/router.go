// Package api implements the Minne REST API using chi.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/holteng/minne/internal/chat"
	"github.com/holteng/minne/internal/objectstore"
	"github.com/holteng/minne/internal/sse"
	"github.com/holteng/minne/internal/store"
)

// Handler holds API route handlers and their collaborators.
type Handler struct {
	store   store.Store
	objects objectstore.Provider
	chat    *chat.Service
	broker  *sse.Broker

	maxUploadBytes int64
	signedURLTTL   time.Duration
	cronToken      string
}

// HandlerConfig tunes a Handler.
type HandlerConfig struct {
	MaxUploadBytes int64
	SignedURLTTL   time.Duration
	CronToken      string
}

// NewHandler creates a Handler.
func NewHandler(st store.Store, objects objectstore.Provider, chatSvc *chat.Service, broker *sse.Broker, cfg HandlerConfig) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20 // 20 MB
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 15 * time.Minute
	}
	return &Handler{
		store:          st,
		objects:        objects,
		chat:           chatSvc,
		broker:         broker,
		maxUploadBytes: cfg.MaxUploadBytes,
		signedURLTTL:   cfg.SignedURLTTL,
		cronToken:      cfg.CronToken,
	}
}

// NewRouter creates a chi router with all API routes mounted behind the
// auth middleware.
func NewRouter(h *Handler, authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Patch("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Note attachments.
	r.Get("/notes/{id}/files", h.ListFiles)
	r.Post("/notes/{id}/files", h.UploadFile)
	r.Get("/notes/{id}/files/{filename}", h.GetFileURL)
	r.Delete("/notes/{id}/files/{filename}", h.DeleteFile)

	// Topics.
	r.Get("/topics", h.ListTopics)
	r.Get("/topics/{id}", h.GetTopic)
	r.Delete("/topics/{id}", h.DeleteTopic)

	// Chats.
	r.Post("/chat", h.StreamChatTurn)
	r.Get("/chats", h.ListChats)
	r.Get("/chats/{id}", h.GetChat)
	r.Patch("/chats/{id}", h.RenameChat)
	r.Delete("/chats/{id}", h.DeleteChat)

	// User summary.
	r.Get("/user-summary", h.GetUserSummary)
	r.Put("/user-summary", h.PutUserSummary)

	// Cron.
	r.Post("/cron/user-note-summary", h.CronUserNoteSummary)

	// SSE event feed.
	if h.broker != nil {
		r.Get("/events", h.broker.ServeHTTP)
	}

	return r
}
