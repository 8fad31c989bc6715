package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientConfig holds credentials for an OpenAI-compatible API.
type ClientConfig struct {
	APIKey  string
	BaseURL string // Empty means api.openai.com
}

// Client wraps the OpenAI client shared by embedding and generation.
type Client struct {
	client *openai.Client
}

// NewClient creates a new OpenAI client. It returns an error if no API key is set.
// The SDK's own retry loop is disabled; callers retry with backoff.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
