package store

import (
	"context"

	"github.com/holteng/minne/internal/models"
)

// Store defines the relational-store operations. Consumers should depend
// on this interface rather than the concrete *DB type to facilitate
// testing with fakes.
type Store interface {
	CreateNote(ctx context.Context, n *models.Note) (*models.Note, error)
	GetNote(ctx context.Context, owner string, id int64) (*models.Note, error)
	ListNotes(ctx context.Context, owner string, f NoteFilter) ([]models.Note, int, error)
	NotesByTopic(ctx context.Context, owner string, topicID int64) ([]models.Note, error)
	GeneralNotes(ctx context.Context, owner string, limit int) ([]models.Note, error)
	RecentNotes(ctx context.Context, owner string, limit int) ([]models.Note, error)
	SearchNotes(ctx context.Context, owner, query string, limit int) ([]models.Note, error)
	CountNotes(ctx context.Context, owner string) (int, error)
	CountNotesByTopic(ctx context.Context, owner string, topicID int64) (int, error)
	UpdateNote(ctx context.Context, n *models.Note) (*models.Note, error)
	SetAttachments(ctx context.Context, owner string, id int64, files []string) error
	DeleteNote(ctx context.Context, owner string, id int64) error

	EnsureTopic(ctx context.Context, owner, name, color string) (*models.Topic, error)
	GetTopic(ctx context.Context, owner string, id int64) (*models.Topic, error)
	ListTopics(ctx context.Context, owner string) ([]models.Topic, error)
	DeleteTopic(ctx context.Context, owner string, id int64) error

	InsertChat(ctx context.Context, c *models.Chat) error
	UpdateChatMessages(ctx context.Context, owner, id string, messages []models.Message) error
	RenameChat(ctx context.Context, owner, id, title string) error
	GetChat(ctx context.Context, owner, id string) (*models.Chat, error)
	ListChats(ctx context.Context, owner string) ([]models.Chat, error)
	DeleteChat(ctx context.Context, owner, id string) error

	GetSummary(ctx context.Context, owner string) (*models.UserSummary, error)
	UpsertSummary(ctx context.Context, owner, content string) error

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
