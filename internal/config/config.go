// Package config reads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bull/portfolio-buddy/internal/document"
	"github.com/bull/portfolio-buddy/internal/embedding"
	"github.com/bull/portfolio-buddy/internal/generation"
	"github.com/bull/portfolio-buddy/internal/logger"
	"github.com/bull/portfolio-buddy/internal/prompt"
	"github.com/bull/portfolio-buddy/internal/storage"
)

// Config is the complete runtime configuration.
type Config struct {
	Port      string
	Document  DocumentConfig
	Chunking  ChunkingConfig
	Embedding EmbeddingConfig
	OpenAI    OpenAIConfig
	Store     StoreConfig
	Retrieval RetrievalConfig
	LLM       LLMConfig
	Profile   ProfileConfig
	Log       logger.Config
}

// DocumentConfig locates the biography.
type DocumentConfig struct {
	Source      string // "file" or "github"
	Path        string // Local path, or path within the repository
	GitHubRepo  string // owner/name
	GitHubRef   string
	GitHubToken string
}

// ChunkingConfig sizes plain-text chunks. Markdown splits at headers instead.
type ChunkingConfig struct {
	Size    int // Runes per plain-text chunk
	Overlap int
}

// EmbeddingConfig selects the embedding provider and model.
type EmbeddingConfig struct {
	Provider   string // "openai" or "hash"
	Model      string
	Dimensions int
	Timeout    time.Duration // Per request
}

// OpenAIConfig holds credentials for the OpenAI-compatible API.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend      string // "memory" or "qdrant"
	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantTLS    bool
	Collection   string
}

// RetrievalConfig controls which chunks reach the prompt.
type RetrievalConfig struct {
	TopK            int
	MinScore        float64
	MaxContextChars int
}

// LLMConfig configures answer generation.
type LLMConfig struct {
	Model            string
	Timeout          time.Duration
	MaxRetries       int
	Params           generation.Params
	ExtendedSampling bool
}

// ProfileConfig describes the person the portfolio belongs to.
type ProfileConfig struct {
	Name          string // Short name used by the assistant
	FullName      string
	Pronoun       string // Possessive: "her", "his", "their"
	Email         string
	Intro         string
	About         string
	AssistantName string
}

// Persona returns the assistant persona for this profile.
func (p ProfileConfig) Persona() prompt.Persona {
	return prompt.Persona{
		AssistantName: p.AssistantName,
		OwnerName:     p.Name,
		Pronoun:       p.Pronoun,
		ContactEmail:  p.Email,
	}
}

// Load reads the configuration from environment variables.
// Malformed values are reported together; missing values take defaults.
func Load() (*Config, error) {
	env := &loader{}
	params := generation.DefaultParams()

	cfg := &Config{
		Port: env.getEnv("PORT", "8080"),
		Document: DocumentConfig{
			Source:      env.getEnv("DOCUMENT_SOURCE", "file"),
			Path:        env.getEnv("DOCUMENT_PATH", "bio.txt"),
			GitHubRepo:  env.getEnv("GITHUB_REPO", ""),
			GitHubRef:   env.getEnv("GITHUB_REF", ""),
			GitHubToken: env.getEnv("GITHUB_TOKEN", ""),
		},
		Chunking: ChunkingConfig{
			Size:    env.getEnvInt("CHUNK_SIZE", document.DefaultChunkSize),
			Overlap: env.getEnvInt("CHUNK_OVERLAP", document.DefaultChunkOverlap),
		},
		Embedding: EmbeddingConfig{
			Provider:   env.getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:      env.getEnv("EMBEDDING_MODEL", embedding.DefaultModel),
			Dimensions: env.getEnvInt("EMBEDDING_DIMENSIONS", 0),
			Timeout:    env.getEnvDuration("EMBEDDING_TIMEOUT", embedding.DefaultTimeout),
		},
		OpenAI: OpenAIConfig{
			APIKey:  env.getEnv("OPENAI_API_KEY", ""),
			BaseURL: env.getEnv("OPENAI_BASE_URL", ""),
		},
		Store: StoreConfig{
			Backend:      env.getEnv("VECTOR_STORE", "memory"),
			QdrantHost:   env.getEnv("QDRANT_HOST", "localhost"),
			QdrantPort:   env.getEnvInt("QDRANT_PORT", 6334),
			QdrantAPIKey: env.getEnv("QDRANT_API_KEY", ""),
			QdrantTLS:    env.getEnvBool("QDRANT_USE_TLS", false),
			Collection:   env.getEnv("QDRANT_COLLECTION", storage.DefaultCollectionName),
		},
		Retrieval: RetrievalConfig{
			TopK:            env.getEnvInt("RETRIEVAL_TOP_K", 3),
			MinScore:        env.getEnvFloat("RETRIEVAL_MIN_SCORE", 0),
			MaxContextChars: env.getEnvInt("PROMPT_MAX_CONTEXT_CHARS", prompt.DefaultMaxContextChars),
		},
		LLM: LLMConfig{
			Model:      env.getEnv("LLM_MODEL", generation.DefaultModel),
			Timeout:    env.getEnvDuration("LLM_TIMEOUT", generation.DefaultTimeout),
			MaxRetries: env.getEnvInt("LLM_MAX_RETRIES", generation.DefaultMaxRetries),
			Params: generation.Params{
				MaxTokens:   env.getEnvInt("LLM_MAX_TOKENS", params.MaxTokens),
				MinTokens:   env.getEnvInt("LLM_MIN_TOKENS", params.MinTokens),
				Temperature: env.getEnvFloat("LLM_TEMPERATURE", params.Temperature),
				TopP:        env.getEnvFloat("LLM_TOP_P", params.TopP),
				TopK:        env.getEnvInt("LLM_TOP_K", params.TopK),
			},
			ExtendedSampling: env.getEnvBool("LLM_EXTENDED_SAMPLING", false),
		},
		Profile: ProfileConfig{
			Name:          env.getEnv("PROFILE_NAME", ""),
			FullName:      env.getEnv("PROFILE_FULL_NAME", ""),
			Pronoun:       env.getEnv("PROFILE_PRONOUN", "their"),
			Email:         env.getEnv("PROFILE_EMAIL", ""),
			Intro:         env.getEnv("PROFILE_INTRO", ""),
			About:         env.getEnv("PROFILE_ABOUT", ""),
			AssistantName: env.getEnv("ASSISTANT_NAME", "Buddy"),
		},
		Log: logger.Config{
			Level:  env.getEnvLevel("LOG_LEVEL", slog.LevelInfo),
			Format: env.getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Profile.FullName == "" {
		cfg.Profile.FullName = cfg.Profile.Name
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration needed to build the index and answer questions.
func (c *Config) Validate() error {
	if err := c.ValidateDocument(); err != nil {
		return err
	}

	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be openai or hash, got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must not be negative")
	}
	if c.Embedding.Timeout <= 0 {
		return fmt.Errorf("EMBEDDING_TIMEOUT must be positive, got %s", c.Embedding.Timeout)
	}

	// Generation always goes through the OpenAI-compatible endpoint.
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Retrieval.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// ValidateDocument checks only what loading and splitting the document needs.
func (c *Config) ValidateDocument() error {
	if c.Document.Path == "" {
		return fmt.Errorf("DOCUMENT_PATH is required")
	}
	switch c.Document.Source {
	case "file":
	case "github":
		if c.Document.GitHubRepo == "" {
			return fmt.Errorf("GITHUB_REPO is required when DOCUMENT_SOURCE=github")
		}
	default:
		return fmt.Errorf("DOCUMENT_SOURCE must be file or github, got %q", c.Document.Source)
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.Chunking.Overlap)
	}
	return nil
}

// Validate checks the backend and its connection settings.
func (s StoreConfig) Validate() error {
	switch s.Backend {
	case "memory":
	case "qdrant":
		if s.QdrantHost == "" {
			return fmt.Errorf("QDRANT_HOST is required when VECTOR_STORE=qdrant")
		}
		if s.QdrantPort <= 0 || s.QdrantPort > 65535 {
			return fmt.Errorf("QDRANT_PORT out of range: %d", s.QdrantPort)
		}
	default:
		return fmt.Errorf("VECTOR_STORE must be memory or qdrant, got %q", s.Backend)
	}
	return nil
}

// Validate checks the retrieval limits.
func (r RetrievalConfig) Validate() error {
	if r.TopK < 1 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be at least 1, got %d", r.TopK)
	}
	if r.MinScore < -1 || r.MinScore > 1 {
		return fmt.Errorf("RETRIEVAL_MIN_SCORE must be in [-1, 1], got %g", r.MinScore)
	}
	if r.MaxContextChars < 0 {
		return fmt.Errorf("PROMPT_MAX_CONTEXT_CHARS must not be negative")
	}
	return nil
}

// Validate checks retry and sampling settings.
func (l LLMConfig) Validate() error {
	if l.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive, got %s", l.Timeout)
	}
	if l.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative")
	}
	p := l.Params
	if p.MaxTokens < 1 {
		return fmt.Errorf("LLM_MAX_TOKENS must be at least 1")
	}
	if p.MinTokens < 0 || p.MinTokens > p.MaxTokens {
		return fmt.Errorf("LLM_MIN_TOKENS must be in [0, LLM_MAX_TOKENS]")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be in [0, 2], got %g", p.Temperature)
	}
	if p.TopP <= 0 || p.TopP > 1 {
		return fmt.Errorf("LLM_TOP_P must be in (0, 1], got %g", p.TopP)
	}
	if p.TopK < 0 {
		return fmt.Errorf("LLM_TOP_K must not be negative")
	}
	return nil
}

// loader reads typed environment variables, collecting parse errors.
type loader struct {
	errs []error
}

func (l *loader) getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func (l *loader) getEnvInt(key string, defaultValue int) int {
	v := l.getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return defaultValue
	}
	return i
}

func (l *loader) getEnvFloat(key string, defaultValue float64) float64 {
	v := l.getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return defaultValue
	}
	return f
}

func (l *loader) getEnvBool(key string, defaultValue bool) bool {
	v := l.getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func (l *loader) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := l.getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return defaultValue
	}
	return d
}

func (l *loader) getEnvLevel(key string, defaultValue slog.Level) slog.Level {
	v := l.getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	level, err := logger.ParseLevel(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return level
}
