// Package app wires configuration into a ready-to-serve assistant.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/portfolio-buddy/internal/assistant"
	"github.com/bull/portfolio-buddy/internal/config"
	"github.com/bull/portfolio-buddy/internal/document"
	"github.com/bull/portfolio-buddy/internal/embedding"
	"github.com/bull/portfolio-buddy/internal/generation"
	ghsource "github.com/bull/portfolio-buddy/internal/github"
	"github.com/bull/portfolio-buddy/internal/indexer"
	"github.com/bull/portfolio-buddy/internal/markdown"
	mcpserver "github.com/bull/portfolio-buddy/internal/mcp"
	"github.com/bull/portfolio-buddy/internal/server"
	"github.com/bull/portfolio-buddy/internal/storage"
)

// Version is reported by the MCP server.
var Version = "v0.1.0"

// embedder is what both the index builder and the query path need.
type embedder interface {
	indexer.Embedder
	assistant.QueryEmbedder
}

// App holds the components built once at startup.
type App struct {
	Config    *config.Config
	Index     *indexer.IndexResult
	Store     storage.VectorStore
	Assistant *assistant.Assistant

	logger *slog.Logger
}

// New constructs every component and builds the index. Any failure is fatal
// and nothing is left open.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	openaiClient, err := embedding.NewClient(embedding.ClientConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	emb := newEmbedder(cfg, openaiClient)

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pipeline, err := newPipeline(cfg, emb, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	index, err := pipeline.Build(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	generator := generation.NewGenerator(openaiClient.Client(), generation.Config{
		Model:            cfg.LLM.Model,
		Params:           cfg.LLM.Params,
		Timeout:          cfg.LLM.Timeout,
		MaxRetries:       cfg.LLM.MaxRetries,
		ExtendedSampling: cfg.LLM.ExtendedSampling,
	}, logger)

	buddy := assistant.New(emb, store, generator,
		assistant.WithPersona(cfg.Profile.Persona()),
		assistant.WithTopK(cfg.Retrieval.TopK),
		assistant.WithMinScore(cfg.Retrieval.MinScore),
		assistant.WithMaxContextChars(cfg.Retrieval.MaxContextChars),
		assistant.WithLogger(logger),
	)
	if err := buddy.CheckIndex(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Config:    cfg,
		Index:     index,
		Store:     store,
		Assistant: buddy,
		logger:    logger,
	}, nil
}

// Chunks loads and splits the configured document without touching any model.
func Chunks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*document.Document, []document.Chunk, error) {
	pipeline, err := newPipeline(cfg, nil, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.Chunks(ctx)
}

// MCPServer returns an MCP server exposing the assistant.
func (a *App) MCPServer() *mcpserver.Server {
	return mcpserver.NewServer(&mcpserver.Config{
		Version:   Version,
		Assistant: a.Assistant,
		Store:     a.Store,
		Index:     a.Index,
	})
}

// HTTPServer returns the web server with MCP mounted at /mcp.
func (a *App) HTTPServer() *server.Server {
	p := a.Config.Profile
	return server.New(server.Config{
		Profile: server.Profile{
			Name:          p.Name,
			FullName:      p.FullName,
			Intro:         p.Intro,
			About:         p.About,
			Email:         p.Email,
			AssistantName: p.AssistantName,
		},
		Assistant: a.Assistant,
		Store:     a.Store,
		MCP:       a.MCPServer().HTTPHandler(true),
		Logger:    a.logger,
	})
}

// Close releases the vector store.
func (a *App) Close() error {
	return a.Store.Close()
}

func newEmbedder(cfg *config.Config, client *embedding.Client) embedder {
	if cfg.Embedding.Provider == "hash" {
		return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	}
	return embedding.NewEmbedder(client, embedding.EmbedderConfig{
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	})
}

func newStore(ctx context.Context, cfg *config.Config) (storage.VectorStore, error) {
	if cfg.Store.Backend != "qdrant" {
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewQdrantStorage(ctx, storage.QdrantConfig{
		Host:       cfg.Store.QdrantHost,
		Port:       cfg.Store.QdrantPort,
		APIKey:     cfg.Store.QdrantAPIKey,
		UseTLS:     cfg.Store.QdrantTLS,
		Collection: cfg.Store.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	return store, nil
}

func newSource(cfg *config.Config) (document.Source, error) {
	if cfg.Document.Source != "github" {
		return document.NewFileSource(cfg.Document.Path), nil
	}
	client, err := ghsource.NewClient(cfg.Document.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return ghsource.NewSource(client, cfg.Document.GitHubRepo, cfg.Document.Path, cfg.Document.GitHubRef)
}

func newPipeline(cfg *config.Config, emb indexer.Embedder, store storage.VectorStore, logger *slog.Logger) (*indexer.Pipeline, error) {
	source, err := newSource(cfg)
	if err != nil {
		return nil, err
	}
	splitters := indexer.Splitters{
		Markdown: markdown.NewChunker(),
		Text:     document.NewTextSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap),
	}
	return indexer.NewPipeline(source, splitters, emb, store, logger), nil
}
