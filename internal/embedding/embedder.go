package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the OpenAI model used for generating embeddings.
	DefaultModel = "text-embedding-3-small"

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	// A biography rarely needs more than one batch.
	DefaultBatchSize = 500

	// DefaultTimeout bounds a single embeddings request.
	DefaultTimeout = 30 * time.Second
)

// ErrBadResponse is returned when the API answers with the wrong number of vectors.
var ErrBadResponse = errors.New("embedding response does not match request")

// ErrTimeout is returned when one embeddings request exceeds its timeout.
var ErrTimeout = errors.New("embedding request timed out")

// EmbedderConfig selects the model and batching of an Embedder.
type EmbedderConfig struct {
	Model      string // Defaults to DefaultModel
	Dimensions int    // Optional output size for models that support shortening
	BatchSize  int    // Defaults to DefaultBatchSize

	// Timeout bounds each request attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxElapsedTime bounds retries of one batch. Zero means 30s.
	MaxElapsedTime time.Duration
}

// Embedder generates embeddings through the OpenAI embeddings endpoint.
// It batches requests and retries with exponential backoff on rate limit and server errors.
type Embedder struct {
	client *Client
	cfg    EmbedderConfig
}

// NewEmbedder creates a new Embedder with the given client, filling config defaults.
func NewEmbedder(client *Client, cfg EmbedderConfig) *Embedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 30 * time.Second
	}
	return &Embedder{client: client, cfg: cfg}
}

// Model returns the embedding model name. Index and queries must agree on it.
func (e *Embedder) Model() string {
	return e.cfg.Model
}

// Embed returns the embedding of a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// GenerateEmbeddings generates embeddings for the given texts, in order.
func (e *Embedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.cfg.BatchSize {
		end := min(i+e.cfg.BatchSize, len(texts))

		embeddings, err := e.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

// embedBatchWithRetry generates embeddings for a single batch.
// Errors other than HTTP 429 and 5xx are permanent and fail immediately.
// An attempt running past the timeout fails with ErrTimeout and is not retried.
func (e *Embedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.cfg.Model),
	}
	if e.cfg.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.cfg.Dimensions))
	}

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()

		resp, err := e.client.client.Embeddings.New(callCtx, params)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return backoff.Permanent(fmt.Errorf("%w after %s", ErrTimeout, e.cfg.Timeout))
			}
			if IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("%w: sent %d texts, got %d vectors",
				ErrBadResponse, len(texts), len(resp.Data)))
		}

		// Data carries its own index; do not rely on response order.
		embeddings = make([][]float32, len(texts))
		for _, data := range resp.Data {
			if data.Index < 0 || int(data.Index) >= len(texts) || embeddings[data.Index] != nil {
				return backoff.Permanent(fmt.Errorf("%w: unexpected index %d", ErrBadResponse, data.Index))
			}
			embeddings[data.Index] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = e.cfg.MaxElapsedTime

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return embeddings, err
}

// IsRetryable reports whether err is a rate limit (HTTP 429) or server (5xx) error.
func IsRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
