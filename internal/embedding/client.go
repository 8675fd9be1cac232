package embedding

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrMissingAPIKey is returned when no OpenAI key is configured.
var ErrMissingAPIKey = errors.New("openai api key not set")

// Client wraps the OpenAI client shared by embeddings and answer generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client for the given key.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for other packages (answer generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
