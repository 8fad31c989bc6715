package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileSource reads the document from the local filesystem.
type FileSource struct {
	Path string
}

// NewFileSource creates a source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads the whole file. A missing file returns ErrNotFound, any other
// read failure ErrUnreadable, and whitespace-only content ErrEmptyDocument.
func (s *FileSource) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, s.Path, err)
	}

	return New(s.Path, string(data))
}

// New builds a Document from already fetched content.
func New(source, content string) (*Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, source)
	}
	return &Document{
		Source:   source,
		Name:     filepath.Base(source),
		Content:  content,
		LoadedAt: time.Now(),
	}, nil
}

// IsMarkdown reports whether the document should be split at markdown headers.
func (d *Document) IsMarkdown() bool {
	switch strings.ToLower(filepath.Ext(d.Name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
