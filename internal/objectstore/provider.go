// Package objectstore abstracts attachment blob storage. Objects are
// keyed by owner, note id, and filename.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Provider is the interface for attachment blob operations.
type Provider interface {
	// Put stores a blob under the owner/note/filename key.
	Put(ctx context.Context, owner string, noteID int64, filename string, r io.Reader, size int64, contentType string) error
	// Get returns a reader for the blob. Callers must close it.
	Get(ctx context.Context, owner string, noteID int64, filename string) (io.ReadCloser, error)
	// Delete removes one blob.
	Delete(ctx context.Context, owner string, noteID int64, filename string) error
	// DeleteAll removes every blob belonging to a note.
	DeleteAll(ctx context.Context, owner string, noteID int64) error
	// SignedURL issues a time-limited URL for client-side download.
	SignedURL(ctx context.Context, owner string, noteID int64, filename string, ttl time.Duration) (string, error)
}

// objectKey builds the canonical storage key for an attachment.
func objectKey(owner string, noteID int64, filename string) string {
	return fmt.Sprintf("%s/%d/%s", owner, noteID, filename)
}

// notePrefix builds the key prefix covering every attachment of a note.
func notePrefix(owner string, noteID int64) string {
	return fmt.Sprintf("%s/%d/", owner, noteID)
}
