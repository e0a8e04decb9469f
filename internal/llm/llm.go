package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the API answers without any usable completion.
var ErrNoChoices = errors.New("LLM returned no choices")

const systemPrompt = "You are a quiz author. Write short, factual multiple-choice material. " +
	"Answer with plain text only, no explanations or commentary."

// GenerateOptions are the sampling parameters for a single generation call.
type GenerateOptions struct {
	MaxTokens    int     // upper bound on generated tokens (max_length); covers the question plus four choices
	MinTokens    int     // advisory lower bound (min_length); not every backend honours it
	Temperature  float32 // sampling temperature
	TopP         float32 // nucleus sampling cutoff
	NumSequences int     // number of completions to request (num_return_sequences)
}

// DefaultOptions returns the sampling parameters used when none are configured.
func DefaultOptions() GenerateOptions {
	return GenerateOptions{
		MaxTokens:    256,
		MinTokens:    10,
		Temperature:  0.7,
		TopP:         0.9,
		NumSequences: 1,
	}
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping checks that the endpoint is reachable by listing its models.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Generate sends prompt to the model and returns the generated text. When more than
// one sequence is requested the completions are joined with newlines, one per line.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	n := opts.NumSequences
	if n < 1 {
		n = 1
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		N:           n,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}

	var parts []string
	for _, ch := range resp.Choices {
		if text := strings.TrimSpace(ch.Message.Content); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoChoices
	}

	raw := strings.Join(parts, "\n")
	slog.Debug("LLM response", "model", c.model, "choices", len(parts), "raw", raw)
	return raw, nil
}
