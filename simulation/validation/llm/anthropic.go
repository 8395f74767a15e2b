package llm

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicMessages captures the subset of the Anthropic SDK used here, so
// tests can substitute a fake in place of *sdk.MessageService.
type AnthropicMessages interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicEngine answers judge requests via the Claude Messages API.
type AnthropicEngine struct {
	msg   AnthropicMessages
	model string
}

// NewAnthropicEngine builds an Engine backed by msg, asking the given model
// for every judgement.
func NewAnthropicEngine(msg AnthropicMessages, model string) (*AnthropicEngine, error) {
	if msg == nil {
		return nil, errors.New("llm: anthropic messages client is required")
	}
	if model == "" {
		return nil, errors.New("llm: anthropic model identifier is required")
	}
	return &AnthropicEngine{msg: msg, model: model}, nil
}

// NewAnthropicEngineFromAPIKey constructs an engine using the default
// Anthropic HTTP client.
func NewAnthropicEngineFromAPIKey(apiKey, model string) (*AnthropicEngine, error) {
	if apiKey == "" {
		return nil, errors.New("llm: anthropic api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicEngine(&ac.Messages, model)
}

// JudgeBool implements Engine.
func (e *AnthropicEngine) JudgeBool(ctx context.Context, req JudgeRequest) (bool, error) {
	msg, err := e.msg.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(e.model),
		MaxTokens: 8,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt())),
		},
	})
	if err != nil {
		return false, fmt.Errorf("llm: anthropic messages.new: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return ParseVerdict(block.Text)
		}
	}
	return false, errors.New("llm: anthropic response had no text content")
}
