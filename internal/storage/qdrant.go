package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/portfolio-buddy/internal/document"
)

// QdrantConfig holds connection settings for a Qdrant server.
type QdrantConfig struct {
	Host       string
	Port       int // gRPC port
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantStore keeps the index in a Qdrant collection. The collection is
// dropped and recreated by Reset, so it never outlives one build.
type QdrantStore struct {
	client     *qdrant.Client
	collection string

	mu        sync.RWMutex
	model     string
	dimension int
	count     int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It retries the health check on startup and fails fast if Qdrant stays unreachable.
func NewQdrantStorage(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollectionName
	}

	store := &QdrantStore{
		client:     client,
		collection: collection,
	}

	if err := backoff.Retry(func() error { return store.Health(ctx) }, newBackOff(ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// newBackOff returns the retry policy shared by all Qdrant calls:
// initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Reset drops the collection if it exists and recreates it for dimension-sized
// cosine vectors.
func (s *QdrantStore) Reset(ctx context.Context, model string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	s.mu.Lock()
	s.model = model
	s.dimension = dimension
	s.count = 0
	s.mu.Unlock()
	return nil
}

// Upsert stores entries in batches of 100, retrying each batch with backoff.
func (s *QdrantStore) Upsert(ctx context.Context, entries []Entry) error {
	s.mu.RLock()
	dimension, model := s.dimension, s.model
	s.mu.RUnlock()

	if dimension == 0 {
		return ErrNotReset
	}
	for i, e := range entries {
		if len(e.Embedding) != dimension {
			return fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(e.Embedding), dimension)
		}
	}

	const batchSize = 100
	for i := 0; i < len(entries); i += batchSize {
		end := min(i+batchSize, len(entries))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, e := range entries[i:end] {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(e.Chunk.ID),
				Vectors: qdrant.NewVectors(e.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"chunk_index":     e.Chunk.Index,
					"offset":          e.Chunk.Offset,
					"header_path":     e.Chunk.HeaderPath,
					"content":         e.Chunk.Content,
					"embedding_model": model,
				}),
			})
		}

		operation := func() error {
			_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: s.collection,
				Wait:           qdrant.PtrOf(true),
				Points:         points,
			})
			return err
		}
		if err := backoff.Retry(operation, newBackOff(ctx)); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	s.mu.Lock()
	s.count += len(entries)
	s.mu.Unlock()
	return nil
}

// Search runs a cosine similarity query against the collection.
func (s *QdrantStore) Search(ctx context.Context, embedding []float32, limit int, minScore float64) ([]ScoredChunk, error) {
	s.mu.RLock()
	dimension, count := s.dimension, s.count
	s.mu.RUnlock()

	if len(embedding) != dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), dimension)
	}
	if limit <= 0 {
		limit = max(count, 1)
	}

	query := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	// Cosine scores start at -1, so anything above that is a real threshold.
	if minScore > -1 {
		query.ScoreThreshold = qdrant.PtrOf(float32(minScore))
	}

	points, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	results := make([]ScoredChunk, 0, len(points))
	for _, p := range points {
		payload := p.Payload
		results = append(results, ScoredChunk{
			Chunk: document.Chunk{
				ID:         p.Id.GetUuid(),
				Index:      int(payload["chunk_index"].GetIntegerValue()),
				Offset:     int(payload["offset"].GetIntegerValue()),
				HeaderPath: payload["header_path"].GetStringValue(),
				Content:    payload["content"].GetStringValue(),
			},
			Score: float64(p.Score),
		})
	}

	// Qdrant leaves tie order unspecified.
	SortScored(results)
	return results, nil
}

// Stats reports what this process wrote into the collection.
func (s *QdrantStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Backend:        "qdrant",
		Chunks:         s.count,
		Dimension:      s.dimension,
		EmbeddingModel: s.model,
	}, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
