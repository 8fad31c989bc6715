// Package storage holds the vector index that retrieval runs against.
package storage

import (
	"context"

	"github.com/bull/portfolio-buddy/internal/document"
)

// Entry is a chunk together with its embedding vector.
type Entry struct {
	Chunk     document.Chunk
	Embedding []float32
}

// ScoredChunk is a chunk returned by similarity search.
type ScoredChunk struct {
	document.Chunk
	Score float64 // Cosine similarity, higher is closer
}

// Stats describes the contents of an index.
type Stats struct {
	Backend        string // "memory" or "qdrant"
	Chunks         int
	Dimension      int
	EmbeddingModel string // Model every vector in the index was produced by
}

// VectorStore is a nearest-neighbour index over chunk embeddings.
// It is filled once by Reset followed by Upsert and only read afterwards.
type VectorStore interface {
	// Reset drops all entries and records the embedding model and dimension
	// that subsequent entries and queries must match.
	Reset(ctx context.Context, model string, dimension int) error
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to limit chunks with score >= minScore, ordered by
	// score descending and chunk index ascending on ties.
	Search(ctx context.Context, embedding []float32, limit int, minScore float64) ([]ScoredChunk, error)
	Stats(ctx context.Context) (Stats, error)
	Health(ctx context.Context) error
	Close() error
}

// DefaultCollectionName is the Qdrant collection used when none is configured.
const DefaultCollectionName = "portfolio_bio"
