package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

// BedrockRuntime captures the subset of the AWS Bedrock runtime client used
// here, matching *bedrockruntime.Client so callers can pass either the real
// client or a fake in tests.
type BedrockRuntime interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockEngine answers judge requests via the Bedrock Converse API.
type BedrockEngine struct {
	runtime BedrockRuntime
	model   string
}

// NewBedrockEngine builds an Engine backed by runtime, asking the given
// model identifier for every judgement.
func NewBedrockEngine(runtime BedrockRuntime, model string) (*BedrockEngine, error) {
	if runtime == nil {
		return nil, errors.New("llm: bedrock runtime client is required")
	}
	if model == "" {
		return nil, errors.New("llm: bedrock model identifier is required")
	}
	return &BedrockEngine{runtime: runtime, model: model}, nil
}

// JudgeBool implements Engine.
func (e *BedrockEngine) JudgeBool(ctx context.Context, req JudgeRequest) (bool, error) {
	out, err := e.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(e.model),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: req.Prompt()},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens: aws.Int32(8),
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return false, fmt.Errorf("llm: bedrock converse: %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return false, fmt.Errorf("llm: bedrock converse: %w", err)
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return false, errors.New("llm: bedrock response had no message output")
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok && text.Value != "" {
			return ParseVerdict(text.Value)
		}
	}
	return false, errors.New("llm: bedrock response had no text content")
}
