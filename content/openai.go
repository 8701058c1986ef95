package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

// OpenAIChat completes prompts with the OpenAI chat completions API, or any
// endpoint compatible with it.
type OpenAIChat struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIChat creates a completer. An empty baseURL uses OpenAI itself.
func NewOpenAIChat(apiKey, baseURL, model string) (*OpenAIChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("[NewOpenAIChat] %w: OPENAI_API_KEY", apperrors.ErrConfigMissing)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIChat{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   600,
		temperature: 0.7,
	}, nil
}

func (c *OpenAIChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("[OpenAIChat Complete] %w", classifyOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("[OpenAIChat Complete] %w: no choices", apperrors.ErrMalformedPayload)
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps an API status onto the client error kinds. A
// rejected key is a configuration problem, not an expired session.
func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: OPENAI_API_KEY rejected: %w", apperrors.ErrConfigMissing, err)
	case status == http.StatusTooManyRequests || status >= 500 || status == 0:
		return fmt.Errorf("%w: %w", apperrors.ErrTransport, err)
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
}

var _ ChatCompleter = (*OpenAIChat)(nil)
