// Package openai wraps the official OpenAI SDK behind the three calls the
// assistant needs: query embedding, blocking chat completion (optionally in
// JSON mode), and streaming chat completion.
package openai

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Message is one chat message. Role is "system", "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// Config configures the client.
type Config struct {
	APIKey     string
	ChatModel  string
	EmbedModel string
	Timeout    time.Duration

	// BaseURL overrides the API endpoint. Tests point it at a local
	// httptest server; empty means api.openai.com.
	BaseURL string
}

// Client is a thin adapter over the OpenAI SDK.
type Client struct {
	api        openai.Client
	chatModel  string
	embedModel string
}

// New creates a client. The timeout applies per request; streaming requests
// inherit it as an overall deadline, which is why it defaults generously.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0), // one best-effort call per stage
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:        openai.NewClient(opts...),
		chatModel:  cfg.ChatModel,
		embedModel: cfg.EmbedModel,
	}
}

// EmbedQuery returns the dense vector for one query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// Complete performs one blocking chat completion and returns the trimmed
// message text. An empty result is returned as-is, not as an error.
func (c *Client) Complete(ctx context.Context, msgs []Message, temperature float64) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.chatModel),
		Messages:    toParams(msgs),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// CompleteJSON performs one chat completion in constrained JSON mode from a
// single user prompt and returns the raw (trimmed) JSON text.
func (c *Client) CompleteJSON(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai json completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai json completion: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Stream opens a streaming chat completion and yields text deltas as they
// arrive. Deltas are forwarded immediately, never buffered. A transport or
// decode failure is yielded once with an empty delta and the sequence ends;
// cancelling ctx aborts the upstream call.
func (c *Client) Stream(ctx context.Context, msgs []Message, temperature float64) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := c.api.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
			Model:       shared.ChatModel(c.chatModel),
			Messages:    toParams(msgs),
			Temperature: openai.Float(temperature),
		})
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("openai chat stream: %w", err))
		}
	}
}

// toParams converts local messages to SDK message params.
func toParams(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
