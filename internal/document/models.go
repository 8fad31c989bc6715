// Package document loads the biography document and splits it into chunks.
package document

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Document is the raw text the assistant answers questions about.
// It is read once at startup and never modified.
type Document struct {
	Source   string    // File path or remote URL the content came from
	Name     string    // Base name, used to pick a splitter: "bio.md"
	Content  string    // Full text content
	LoadedAt time.Time // When the content was read
}

// Chunk is a contiguous span of a document, the unit that is embedded and retrieved.
// Content is always doc.Content[Offset : Offset+len(Content)].
type Chunk struct {
	ID         string // Deterministic UUID derived from source and index
	Index      int    // Position in document (0, 1, 2...)
	Offset     int    // Byte offset of Content in the document
	HeaderPath string // Section hierarchy for markdown: "# About > ## Experience"
	Content    string // Chunk text content
}

// EmbeddingText returns the text that gets embedded for the chunk.
// Markdown chunks carry their header path so that section titles contribute to retrieval.
func (c Chunk) EmbeddingText() string {
	if c.HeaderPath == "" {
		return c.Content
	}
	return c.HeaderPath + "\n\n" + c.Content
}

// Source loads a document from wherever it lives.
type Source interface {
	Load(ctx context.Context) (*Document, error)
}

// Splitter divides a document into chunks.
type Splitter interface {
	Split(doc *Document) ([]Chunk, error)
}

// chunkNamespace scopes chunk IDs so that the same document always yields the same IDs.
var chunkNamespace = uuid.MustParse("6f1d7a0e-3c55-4c1b-9a57-2f3b8e0b7c11")

// ChunkID returns the stable identifier of the chunk at index in source.
func ChunkID(source string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(source+"#"+strconv.Itoa(index))).String()
}
