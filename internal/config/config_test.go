package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/portfolio-buddy/internal/generation"
)

// clearEnv blanks every variable Load reads; blank means default.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DOCUMENT_SOURCE", "DOCUMENT_PATH", "GITHUB_REPO", "GITHUB_REF", "GITHUB_TOKEN",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS", "EMBEDDING_TIMEOUT",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "VECTOR_STORE", "QDRANT_HOST", "QDRANT_PORT",
		"QDRANT_API_KEY", "QDRANT_USE_TLS", "QDRANT_COLLECTION", "RETRIEVAL_TOP_K", "RETRIEVAL_MIN_SCORE",
		"PROMPT_MAX_CONTEXT_CHARS", "LLM_MODEL", "LLM_TIMEOUT", "LLM_MAX_RETRIES", "LLM_MAX_TOKENS",
		"LLM_MIN_TOKENS", "LLM_TEMPERATURE", "LLM_TOP_P", "LLM_TOP_K", "LLM_EXTENDED_SAMPLING",
		"PROFILE_NAME", "PROFILE_FULL_NAME", "PROFILE_PRONOUN", "PROFILE_EMAIL", "PROFILE_INTRO",
		"PROFILE_ABOUT", "ASSISTANT_NAME", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "file", cfg.Document.Source)
	assert.Equal(t, "bio.txt", cfg.Document.Path)
	assert.Equal(t, 512, cfg.Chunking.Size)
	assert.Equal(t, 64, cfg.Chunking.Overlap)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 0.0, cfg.Retrieval.MinScore)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, generation.DefaultParams(), cfg.LLM.Params)
	assert.False(t, cfg.LLM.ExtendedSampling)
	assert.Equal(t, "Buddy", cfg.Profile.AssistantName)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DOCUMENT_PATH", "data/bio.md")
	t.Setenv("RETRIEVAL_TOP_K", "5")
	t.Setenv("RETRIEVAL_MIN_SCORE", "0.25")
	t.Setenv("LLM_TIMEOUT", "15")
	t.Setenv("EMBEDDING_TIMEOUT", "500ms")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_EXTENDED_SAMPLING", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PROFILE_NAME", "Jane")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/bio.md", cfg.Document.Path)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 0.25, cfg.Retrieval.MinScore)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Embedding.Timeout)
	assert.Equal(t, 0.2, cfg.LLM.Params.Temperature)
	assert.True(t, cfg.LLM.ExtendedSampling)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "Jane", cfg.Profile.FullName, "full name falls back to name")

	persona := cfg.Profile.Persona()
	assert.Equal(t, "Jane", persona.OwnerName)
	assert.Equal(t, "their", persona.Pronoun)
}

func TestLoad_MalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRIEVAL_TOP_K", "three")
	t.Setenv("LLM_TIMEOUT", "soon")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRIEVAL_TOP_K")
	assert.Contains(t, err.Error(), "LLM_TIMEOUT")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing api key", mutate: func(c *Config) { c.OpenAI.APIKey = "" }, want: "OPENAI_API_KEY"},
		{name: "empty path", mutate: func(c *Config) { c.Document.Path = "" }, want: "DOCUMENT_PATH"},
		{name: "github without repo", mutate: func(c *Config) { c.Document.Source = "github" }, want: "GITHUB_REPO"},
		{name: "unknown source", mutate: func(c *Config) { c.Document.Source = "s3" }, want: "DOCUMENT_SOURCE"},
		{name: "overlap too large", mutate: func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }, want: "CHUNK_OVERLAP"},
		{name: "unknown provider", mutate: func(c *Config) { c.Embedding.Provider = "cohere" }, want: "EMBEDDING_PROVIDER"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Backend = "redis" }, want: "VECTOR_STORE"},
		{name: "bad qdrant port", mutate: func(c *Config) { c.Store.Backend = "qdrant"; c.Store.QdrantPort = 0 }, want: "QDRANT_PORT"},
		{name: "zero top k", mutate: func(c *Config) { c.Retrieval.TopK = 0 }, want: "RETRIEVAL_TOP_K"},
		{name: "min score range", mutate: func(c *Config) { c.Retrieval.MinScore = 2 }, want: "RETRIEVAL_MIN_SCORE"},
		{name: "zero embedding timeout", mutate: func(c *Config) { c.Embedding.Timeout = 0 }, want: "EMBEDDING_TIMEOUT"},
		{name: "zero timeout", mutate: func(c *Config) { c.LLM.Timeout = 0 }, want: "LLM_TIMEOUT"},
		{name: "top p range", mutate: func(c *Config) { c.LLM.Params.TopP = 0 }, want: "LLM_TOP_P"},
		{name: "min above max tokens", mutate: func(c *Config) { c.LLM.Params.MinTokens = 2000 }, want: "LLM_MIN_TOKENS"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, want: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDocument_NoAPIKeyNeeded(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateDocument())
	assert.Error(t, cfg.Validate())
}
