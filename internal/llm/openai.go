// ABOUTME: Provider over the OpenAI-compatible chat completions API.
// ABOUTME: Covers Groq, xAI and any other endpoint speaking the same protocol via base URL.

package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompat calls an OpenAI-compatible chat completions endpoint.
type OpenAICompat struct {
	name   string
	model  string
	client openai.Client
}

// NewOpenAICompat creates a provider for the given endpoint. baseURL
// selects the vendor (e.g. https://api.groq.com/openai/v1); leave it
// empty for OpenAI itself.
func NewOpenAICompat(name, apiKey, baseURL, model string) *OpenAICompat {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompat{
		name:   name,
		model:  model,
		client: openai.NewClient(opts...),
	}
}

// Name implements Provider.
func (p *OpenAICompat) Name() string {
	return p.name
}

// Complete implements Provider.
func (p *OpenAICompat) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
