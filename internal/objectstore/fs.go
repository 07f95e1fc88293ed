package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/holteng/minne/internal/apperr"
)

// FS implements Provider backed by the local file system, for local
// deployments and tests. Signed URLs are single-token paths resolved by
// TokenHandler; tokens live in memory and expire after their TTL.
type FS struct {
	root string // absolute path to the attachments directory

	mu     sync.Mutex
	tokens map[string]fsToken
}

type fsToken struct {
	path    string
	expires time.Time
}

// NewFS creates an FS provider rooted at the given directory, creating it
// when missing.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("objectstore: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create root: %w", err)
	}
	return &FS{root: abs, tokens: make(map[string]fsToken)}, nil
}

// safePath resolves a storage key against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("objectstore: invalid key: %s", key)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("objectstore: key escapes root: %s", key)
	}
	return abs, nil
}

// Put atomically writes the blob: tmp file, fsync, rename.
func (f *FS) Put(_ context.Context, owner string, noteID int64, filename string, r io.Reader, _ int64, _ string) error {
	abs, err := f.safePath(objectKey(owner, noteID, filename))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("objectstore: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".minne-tmp-*")
	if err != nil {
		return fmt.Errorf("objectstore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("objectstore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("objectstore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("objectstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("objectstore: rename: %w", err)
	}
	success = true
	return nil
}

// Get opens the blob for reading.
func (f *FS) Get(_ context.Context, owner string, noteID int64, filename string) (io.ReadCloser, error) {
	abs, err := f.safePath(objectKey(owner, noteID, filename))
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if os.IsNotExist(err) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("objectstore: open: %w", err)
	}
	return file, nil
}

// Delete removes one blob.
func (f *FS) Delete(_ context.Context, owner string, noteID int64, filename string) error {
	abs, err := f.safePath(objectKey(owner, noteID, filename))
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("objectstore: delete: %w", err)
	}
	return nil
}

// DeleteAll removes the note's attachment directory.
func (f *FS) DeleteAll(_ context.Context, owner string, noteID int64) error {
	abs, err := f.safePath(strings.TrimSuffix(notePrefix(owner, noteID), "/"))
	if err != nil {
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("objectstore: delete all: %w", err)
	}
	return nil
}

// SignedURL mints a random token valid for ttl and returns the download
// path served by TokenHandler.
func (f *FS) SignedURL(_ context.Context, owner string, noteID int64, filename string, ttl time.Duration) (string, error) {
	abs, err := f.safePath(objectKey(owner, noteID, filename))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return "", apperr.ErrNotFound
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	token := uuid.NewString()

	f.mu.Lock()
	f.pruneLocked(time.Now())
	f.tokens[token] = fsToken{path: abs, expires: time.Now().Add(ttl)}
	f.mu.Unlock()

	return "/files/" + token, nil
}

// pruneLocked drops expired tokens. Caller holds f.mu.
func (f *FS) pruneLocked(now time.Time) {
	for t, tok := range f.tokens {
		if now.After(tok.expires) {
			delete(f.tokens, t)
		}
	}
}

// TokenHandler serves GET /files/{token} downloads for signed URLs.
func (f *FS) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.URL.Path, "/files/")
		if i := strings.LastIndex(token, "/"); i >= 0 {
			token = token[i+1:]
		}

		f.mu.Lock()
		tok, ok := f.tokens[token]
		f.mu.Unlock()

		if !ok || time.Now().After(tok.expires) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, tok.path)
	}
}
