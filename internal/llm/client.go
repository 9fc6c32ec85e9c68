// Package llm calls a hosted OpenAI-compatible chat-completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/JakeFAU/webanalyst/internal/analysis"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// ErrNoChoices is returned when the completion carries no message.
var ErrNoChoices = errors.New("completion returned no choices")

// Config controls the completion client.
type Config struct {
	BaseURL string
	// HTTPClient overrides the transport; nil uses the SDK default.
	HTTPClient *http.Client
}

// Client implements analysis.Analyzer.
type Client struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger}
}

// Complete sends one user message and returns the first choice's text.
// The API key is used for this call only.
func (c *Client) Complete(ctx context.Context, req analysis.Completion) (string, error) {
	if req.APIKey == "" {
		return "", analysis.ErrMissingAPIKey
	}
	api := openai.NewClient(c.requestOptions(req.APIKey)...)

	resp, err := api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	c.logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) requestOptions(apiKey string) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(c.cfg.BaseURL, "/") + "/"),
		// A failed completion surfaces to the user; it is never retried.
		option.WithMaxRetries(0),
	}
	if c.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.cfg.HTTPClient))
	}
	return opts
}
