// Package llm provides the judge-facing abstraction over chat-completion
// providers used by soft checkers: a minimal "ask a yes/no question about
// two texts" contract, with throttled adapters for Anthropic, OpenAI and AWS
// Bedrock.
package llm

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

// JudgeRequest carries the rubric and the two texts being compared.
type JudgeRequest struct {
	// Rubric states the yes/no question the engine must answer.
	Rubric string
	// Candidate is the agent-produced text under judgement.
	Candidate string
	// Reference is the oracle's expected text, given as context.
	Reference string
}

// Engine answers a judge request with a boolean verdict.
type Engine interface {
	JudgeBool(ctx context.Context, req JudgeRequest) (bool, error)
}

// Prompt renders req into the single user message every adapter sends.
func (r JudgeRequest) Prompt() string {
	var b strings.Builder
	b.WriteString(r.Rubric)
	b.WriteString("\n\nREFERENCE:\n")
	b.WriteString(r.Reference)
	b.WriteString("\n\nCANDIDATE:\n")
	b.WriteString(r.Candidate)
	b.WriteString("\n\nAnswer with exactly one word, YES or NO.")
	return b.String()
}

// ParseVerdict extracts a boolean from a model's free-form reply, looking
// for a leading YES/NO token (case insensitive).
func ParseVerdict(reply string) (bool, error) {
	trimmed := strings.TrimSpace(reply)
	upper := strings.ToUpper(trimmed)
	switch {
	case strings.HasPrefix(upper, "YES"):
		return true, nil
	case strings.HasPrefix(upper, "NO"):
		return false, nil
	default:
		return false, fmt.Errorf("llm: could not parse verdict from reply %q", reply)
	}
}

// Throttled wraps an Engine with a token-bucket rate limiter, so a judge run
// across many events never bursts past a configured requests-per-second
// cap — the same throttling shape goa-ai applies to its own model clients
// at the runtime layer, reused here directly from golang.org/x/time/rate.
type Throttled struct {
	inner   Engine
	limiter *rate.Limiter
}

// NewThrottled wraps inner with a limiter allowing ratePerSecond requests
// per second and a burst of the same size.
func NewThrottled(inner Engine, ratePerSecond float64) *Throttled {
	return &Throttled{inner: inner, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), max(1, int(ratePerSecond)))}
}

// JudgeBool waits for a token before delegating to the wrapped engine.
func (t *Throttled) JudgeBool(ctx context.Context, req JudgeRequest) (bool, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("llm: rate limiter wait: %w", err)
	}
	return t.inner.JudgeBool(ctx, req)
}
