// Package generation turns a rendered prompt into an answer using a hosted chat model.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 2
)

// Params are the sampling settings sent with every request.
type Params struct {
	MaxTokens   int
	MinTokens   int
	Temperature float64
	TopP        float64
	TopK        int
}

// DefaultParams returns sampling mode with temperature 0.8, top-k 50, top-p 1
// and up to 1024 new tokens.
func DefaultParams() Params {
	return Params{
		MaxTokens:   1024,
		MinTokens:   1,
		Temperature: 0.8,
		TopP:        1,
		TopK:        50,
	}
}

// Config controls a Generator.
type Config struct {
	Model      string
	Params     Params
	Timeout    time.Duration // Per attempt
	MaxRetries int           // Retries after the first attempt, for 429 and 5xx only

	// ExtendedSampling sends min_tokens and top_k, which OpenAI itself rejects
	// but vLLM and similar compatible servers accept.
	ExtendedSampling bool
}

// Generator produces answers with a chat completions endpoint.
type Generator struct {
	client *openai.Client
	cfg    Config
	logger *slog.Logger
}

// NewGenerator creates a generator with the given OpenAI client.
// Zero Model, Params or Timeout fall back to defaults; a negative MaxRetries disables retries.
func NewGenerator(client *openai.Client, cfg Config, logger *slog.Logger) *Generator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Params == (Params{}) {
		cfg.Params = DefaultParams()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, cfg: cfg, logger: logger}
}

// Model returns the configured chat model name.
func (g *Generator) Model() string {
	return g.cfg.Model
}

// Generate sends the system instruction and user message and returns the trimmed reply.
func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(g.cfg.Model),
		MaxTokens:   openai.Int(int64(g.cfg.Params.MaxTokens)),
		Temperature: openai.Float(g.cfg.Params.Temperature),
		TopP:        openai.Float(g.cfg.Params.TopP),
	}

	var opts []option.RequestOption
	if g.cfg.ExtendedSampling {
		opts = append(opts,
			option.WithJSONSet("min_tokens", g.cfg.Params.MinTokens),
			option.WithJSONSet("top_k", g.cfg.Params.TopK),
		)
	}

	var answer string
	attempt := 0

	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()

		start := time.Now()
		resp, err := g.client.Chat.Completions.New(callCtx, params, opts...)
		if err != nil {
			retry, err := g.classify(ctx, callCtx, err)
			if retry {
				g.logger.Warn("chat completion failed", "attempt", attempt, "error", err)
				return err
			}
			return backoff.Permanent(err)
		}

		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("%w: no choices", ErrEmptyResponse))
		}
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
		if answer == "" {
			return backoff.Permanent(fmt.Errorf("%w: finish reason %q", ErrEmptyResponse, resp.Choices[0].FinishReason))
		}

		g.logger.Debug("chat completion finished",
			"model", resp.Model,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
			"duration", time.Since(start),
		)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(g.cfg.MaxRetries)), ctx))
	if err != nil {
		return "", err
	}
	return answer, nil
}

// classify maps a client error onto the package's sentinel errors and reports
// whether another attempt may succeed. Only HTTP 429 and 5xx are retried.
func (g *Generator) classify(parent, call context.Context, err error) (bool, error) {
	if parent.Err() != nil {
		return false, parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(call.Err(), context.DeadlineExceeded) {
		return false, fmt.Errorf("%w after %s", ErrTimeout, g.cfg.Timeout)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		retry := apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
		return retry, fmt.Errorf("%w: status %d: %v", ErrUpstream, apiErr.StatusCode, err)
	}
	return false, fmt.Errorf("%w: %v", ErrUpstream, err)
}
