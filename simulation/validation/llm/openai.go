package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIChat captures the subset of the OpenAI SDK used here, so tests can
// substitute a fake in place of client.Chat.Completions.
type OpenAIChat interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIEngine answers judge requests via the Chat Completions API.
type OpenAIEngine struct {
	chat  OpenAIChat
	model string
}

// NewOpenAIEngine builds an Engine backed by chat, asking the given model
// for every judgement.
func NewOpenAIEngine(chat OpenAIChat, model string) (*OpenAIEngine, error) {
	if chat == nil {
		return nil, errors.New("llm: openai chat client is required")
	}
	if model == "" {
		return nil, errors.New("llm: openai model identifier is required")
	}
	return &OpenAIEngine{chat: chat, model: model}, nil
}

// NewOpenAIEngineFromAPIKey constructs an engine using the default OpenAI
// HTTP client.
func NewOpenAIEngineFromAPIKey(apiKey, model string) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, errors.New("llm: openai api key is required")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return NewOpenAIEngine(&c.Chat.Completions, model)
}

// JudgeBool implements Engine.
func (e *OpenAIEngine) JudgeBool(ctx context.Context, req JudgeRequest) (bool, error) {
	resp, err := e.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt()),
		},
		MaxCompletionTokens: openai.Int(8),
	})
	if err != nil {
		return false, fmt.Errorf("llm: openai chat.completions.new: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, errors.New("llm: openai response had no choices")
	}
	return ParseVerdict(resp.Choices[0].Message.Content)
}
