package simplifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// CompletionClient abstracts the generative model call so tests can
// substitute a stub. Streaming implementations deliver text deltas to fn in
// model order and return the accumulated text once the stream ends.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string, maxTokens int64) (string, int64, error)
	CompleteStream(ctx context.Context, system, user string, maxTokens int64, fn func(delta string) error) (string, int64, error)
}

// anthropicClient is the production CompletionClient backed by the
// Anthropic Messages API.
type anthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient creates a CompletionClient for the given API key and
// model name.
func NewAnthropicClient(apiKey, model string) CompletionClient {
	return &anthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Complete issues one blocking completion call.
func (c *anthropicClient) Complete(ctx context.Context, system, user string, maxTokens int64) (string, int64, error) {
	message, err := c.client.Messages.New(ctx, c.params(system, user, maxTokens))
	if err != nil {
		return "", 0, fmt.Errorf("completion call: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	tokens := message.Usage.InputTokens + message.Usage.OutputTokens
	return text.String(), tokens, nil
}

// CompleteStream issues a streaming completion call, forwarding each text
// delta to fn as it arrives. A non-nil error from fn stops delivery to the
// caller but the stream is still drained so the full text can be returned
// for caching.
func (c *anthropicClient) CompleteStream(
	ctx context.Context,
	system, user string,
	maxTokens int64,
	fn func(delta string) error,
) (string, int64, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(system, user, maxTokens))

	var text strings.Builder
	var tokens int64
	delivering := true

	for stream.Next() {
		event := stream.Current()

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if deltaVariant, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok {
				text.WriteString(deltaVariant.Text)
				if delivering && fn != nil {
					if err := fn(deltaVariant.Text); err != nil {
						// The caller went away; keep draining for the cache.
						delivering = false
					}
				}
			}
		case anthropic.MessageDeltaEvent:
			tokens += eventVariant.Usage.OutputTokens
		case anthropic.MessageStartEvent:
			tokens += eventVariant.Message.Usage.InputTokens
		}
	}

	if err := stream.Err(); err != nil {
		return "", 0, fmt.Errorf("streaming completion: %w", err)
	}

	return text.String(), tokens, nil
}

func (c *anthropicClient) params(system, user string, maxTokens int64) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
}
