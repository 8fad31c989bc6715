// Package assistant answers recruiter questions about the biography.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bull/portfolio-buddy/internal/document"
	"github.com/bull/portfolio-buddy/internal/generation"
	"github.com/bull/portfolio-buddy/internal/prompt"
	"github.com/bull/portfolio-buddy/internal/storage"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

const excerptChars = 200

// QueryEmbedder embeds a question with the same model as the index.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Generator produces a completion for a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Assistant runs retrieval and generation for one question at a time.
type Assistant struct {
	embedder  QueryEmbedder
	store     storage.VectorStore
	generator Generator

	persona         prompt.Persona
	topK            int
	minScore        float64
	maxContextChars int
	logger          *slog.Logger

	// sem admits a single question at a time.
	sem chan struct{}
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithPersona sets who the assistant is and who it speaks for.
func WithPersona(p prompt.Persona) Option {
	return func(a *Assistant) { a.persona = p }
}

// WithTopK sets the number of retrieved chunks; values below 1 keep the default.
func WithTopK(k int) Option {
	return func(a *Assistant) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithMinScore drops retrieved chunks scoring below s.
func WithMinScore(s float64) Option {
	return func(a *Assistant) { a.minScore = s }
}

// WithMaxContextChars caps the context placed in the prompt; zero means no cap.
func WithMaxContextChars(n int) Option {
	return func(a *Assistant) { a.maxContextChars = n }
}

// WithLogger sets the logger; nil keeps slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Assistant over an index that has already been built.
func New(embedder QueryEmbedder, store storage.VectorStore, generator Generator, opts ...Option) *Assistant {
	a := &Assistant{
		embedder:        embedder,
		store:           store,
		generator:       generator,
		persona:         prompt.Persona{AssistantName: "Buddy"},
		topK:            DefaultTopK,
		maxContextChars: prompt.DefaultMaxContextChars,
		logger:          slog.Default(),
		sem:             make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Persona returns who the assistant speaks for.
func (a *Assistant) Persona() prompt.Persona {
	return a.persona
}

// CheckIndex verifies that the index was built with the query embedder's model.
func (a *Assistant) CheckIndex(ctx context.Context) error {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("index stats: %w", err)
	}
	if stats.EmbeddingModel != a.embedder.Model() {
		return fmt.Errorf("%w: index built with %q, query embedder is %q",
			ErrEmbeddingMismatch, stats.EmbeddingModel, a.embedder.Model())
	}
	return nil
}

// Ask answers question from the indexed biography. Questions are processed
// one at a time; waiting for a turn honors ctx.
func (a *Assistant) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	select {
	case a.sem <- struct{}{}:
		defer func() { <-a.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := time.Now()
	a.logger.Info("answering question", "length", len(question))
	a.logger.Debug("question text", "question", question)

	if err := a.CheckIndex(ctx); err != nil {
		return nil, err
	}

	vec, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := a.store.Search(ctx, vec, a.topK, a.minScore)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	a.logger.Debug("retrieved chunks", "count", len(results))

	chunks := make([]document.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	p := prompt.Build(a.persona, question, chunks, a.maxContextChars)

	text, err := a.generator.Generate(ctx, p.System, p.User)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("generate answer: %w", generation.ErrEmptyResponse)
	}

	sources := make([]Source, 0, p.ContextChunks)
	for _, r := range results[:p.ContextChunks] {
		sources = append(sources, Source{
			Index:      r.Index,
			HeaderPath: r.HeaderPath,
			Score:      r.Score,
			Excerpt:    excerpt(r.Content),
		})
	}

	answer := &Answer{Text: text, Sources: sources, Duration: time.Since(start)}
	a.logger.Info("answered question",
		"sources", len(sources),
		"answer_length", len(text),
		"duration", answer.Duration,
	)
	return answer, nil
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= excerptChars {
		return s
	}
	return string(runes[:excerptChars]) + "…"
}
