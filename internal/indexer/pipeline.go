// Package indexer builds the retrieval index from the biography document.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/portfolio-buddy/internal/document"
	"github.com/bull/portfolio-buddy/internal/storage"
)

// ErrNoChunks is returned when splitting produced nothing to index.
var ErrNoChunks = errors.New("document produced no chunks")

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	Source         string
	Chunks         int
	EmbeddingModel string
	Dimension      int
	BuiltAt        time.Time
	Duration       time.Duration
}

// Embedder turns chunk texts into vectors.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Splitters picks a splitter by document type.
type Splitters struct {
	Markdown document.Splitter
	Text     document.Splitter
}

// For returns the splitter for doc, falling back to Text.
func (s Splitters) For(doc *document.Document) document.Splitter {
	if doc.IsMarkdown() && s.Markdown != nil {
		return s.Markdown
	}
	return s.Text
}

// Pipeline orchestrates the full indexing process from loading to storage.
type Pipeline struct {
	source    document.Source
	splitters Splitters
	embedder  Embedder
	store     storage.VectorStore
	logger    *slog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
func NewPipeline(
	source document.Source,
	splitters Splitters,
	embedder Embedder,
	store storage.VectorStore,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:    source,
		splitters: splitters,
		embedder:  embedder,
		store:     store,
		logger:    logger,
	}
}

// Chunks loads and splits the document without embedding it.
func (p *Pipeline) Chunks(ctx context.Context) (*document.Document, []document.Chunk, error) {
	doc, err := p.source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load: %w", err)
	}
	p.logger.Debug("Loaded document", "source", doc.Source, "size", len(doc.Content))

	chunks, err := p.splitters.For(doc).Split(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("split: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil, ErrNoChunks
	}
	p.logger.Debug("Split document", "source", doc.Source, "chunks", len(chunks))
	return doc, chunks, nil
}

// Build rebuilds the index from scratch. Any failure aborts the build and
// leaves the store unusable; callers treat it as fatal.
func (p *Pipeline) Build(ctx context.Context) (*IndexResult, error) {
	start := time.Now()

	doc, chunks, err := p.Chunks(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Starting indexing", "source", doc.Source, "chunks", len(chunks), "model", p.embedder.Model())

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.EmbeddingText()
	}

	embeddings, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	dimension := len(embeddings[0])

	if err := p.store.Reset(ctx, p.embedder.Model(), dimension); err != nil {
		return nil, fmt.Errorf("reset store: %w", err)
	}

	entries := make([]storage.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = storage.Entry{Chunk: chunk, Embedding: embeddings[i]}
	}
	if err := p.store.Upsert(ctx, entries); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	result := &IndexResult{
		Source:         doc.Source,
		Chunks:         len(chunks),
		EmbeddingModel: p.embedder.Model(),
		Dimension:      dimension,
		BuiltAt:        time.Now(),
	}
	result.Duration = result.BuiltAt.Sub(start)

	p.logger.Info("Indexing complete",
		"source", result.Source,
		"chunks", result.Chunks,
		"dimension", result.Dimension,
		"duration", result.Duration,
	)
	return result, nil
}
