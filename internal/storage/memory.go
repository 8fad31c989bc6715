package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process vector index using brute-force cosine similarity.
// The biography is small enough that a linear scan beats any ANN structure.
type MemoryStore struct {
	mu        sync.RWMutex
	model     string
	dimension int
	entries   []Entry
}

// NewMemoryStore creates an empty in-memory index.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Reset drops all entries.
func (s *MemoryStore) Reset(ctx context.Context, model string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	s.dimension = dimension
	s.entries = nil
	return nil
}

// Upsert adds entries, replacing any with the same chunk ID.
func (s *MemoryStore) Upsert(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		return ErrNotReset
	}

	for i, e := range entries {
		if len(e.Embedding) != s.dimension {
			return fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(e.Embedding), s.dimension)
		}
	}

	for _, e := range entries {
		replaced := false
		for j := range s.entries {
			if s.entries[j].Chunk.ID == e.Chunk.ID {
				s.entries[j] = e
				replaced = true
				break
			}
		}
		if !replaced {
			s.entries = append(s.entries, e)
		}
	}
	return nil
}

// Search scores every entry against embedding.
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, limit int, minScore float64) ([]ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	results := make([]ScoredChunk, 0, len(s.entries))
	for _, e := range s.entries {
		score := CosineSimilarity(embedding, e.Embedding)
		if score < minScore {
			continue
		}
		results = append(results, ScoredChunk{Chunk: e.Chunk, Score: score})
	}

	SortScored(results)

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// Stats reports the index size and the model it was built with.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Backend:        "memory",
		Chunks:         len(s.entries),
		Dimension:      s.dimension,
		EmbeddingModel: s.model,
	}, nil
}

// Health always succeeds; the index lives in this process.
func (s *MemoryStore) Health(ctx context.Context) error {
	return nil
}

// Close releases the entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// CosineSimilarity returns a value between -1 and 1, where 1 means identical direction.
// Vectors of different length or zero norm score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SortScored orders results by score descending, then by chunk index.
func SortScored(results []ScoredChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
}
