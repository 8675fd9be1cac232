package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// DefaultModel answers questions when no model is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// Answerer generates text for a prompt.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
}

// OpenAIAnswerer answers with an OpenAI chat model.
type OpenAIAnswerer struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewOpenAIAnswerer creates an answerer. An empty model selects DefaultModel.
func NewOpenAIAnswerer(client *openai.Client, model string) *OpenAIAnswerer {
	m := openai.ChatModel(model)
	if model == "" {
		m = DefaultModel
	}
	return &OpenAIAnswerer{client: client, model: m}
}

// Answer sends prompt as a single user message.
func (a *OpenAIAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: a.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}
