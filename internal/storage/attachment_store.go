// Package storage persists attachment binaries and hands back the public URL the
// front end downloads them from.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Metadata describes the binary being stored.
type Metadata struct {
	TicketID  string
	ContentID string
	FileName  string
	MimeType  string
}

// AttachmentStore saves attachment content.
type AttachmentStore interface {
	Save(ctx context.Context, content []byte, meta Metadata) (string, error)
}

// FileStore writes attachments below a root directory of an afero filesystem.
// Files are laid out as <ticket id>/<uuid>_<file name>.
type FileStore struct {
	fs      afero.Fs
	baseURL string
}

// NewFileStore stores attachments under dir on the OS filesystem.
func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if err := afero.NewOsFs().MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return NewFileStoreFs(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL), nil
}

// NewFileStoreFs stores attachments on fsys.
func NewFileStoreFs(fsys afero.Fs, baseURL string) *FileStore {
	return &FileStore{fs: fsys, baseURL: strings.TrimRight(baseURL, "/")}
}

// Save writes content and returns its public URL.
func (s *FileStore) Save(ctx context.Context, content []byte, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(meta.TicketID) == "" {
		return "", fmt.Errorf("attachment %q has no ticket", meta.ContentID)
	}

	dir := sanitizeSegment(meta.TicketID)
	name := uuid.NewString() + "_" + sanitizeFileName(meta.FileName)
	rel := path.Join(dir, name)

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create ticket dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, rel, content, 0o644); err != nil {
		return "", fmt.Errorf("write attachment %s: %w", rel, err)
	}

	return s.baseURL + "/" + url.PathEscape(dir) + "/" + url.PathEscape(name), nil
}

func sanitizeSegment(s string) string {
	s = strings.ReplaceAll(s, "..", "_")
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
	return strings.TrimSpace(s)
}

var fileNameReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = fileNameReplacer.Replace(name)
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "_" {
		return "attachment"
	}
	return name
}
