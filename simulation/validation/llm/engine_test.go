package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/simulation/validation/llm"
)

type fakeEngine struct {
	calls int
	reply bool
	err   error
}

func (f *fakeEngine) JudgeBool(ctx context.Context, req llm.JudgeRequest) (bool, error) {
	f.calls++
	return f.reply, f.err
}

func TestParseVerdict(t *testing.T) {
	yes, err := llm.ParseVerdict("YES, clearly so")
	require.NoError(t, err)
	assert.True(t, yes)

	no, err := llm.ParseVerdict("no.")
	require.NoError(t, err)
	assert.False(t, no)

	_, err = llm.ParseVerdict("maybe")
	assert.Error(t, err)
}

func TestPromptIncludesRubricAndTexts(t *testing.T) {
	req := llm.JudgeRequest{Rubric: "Do these match?", Candidate: "cand", Reference: "ref"}
	p := req.Prompt()
	assert.Contains(t, p, "Do these match?")
	assert.Contains(t, p, "cand")
	assert.Contains(t, p, "ref")
}

func TestThrottledDelegatesAfterWait(t *testing.T) {
	fake := &fakeEngine{reply: true}
	throttled := llm.NewThrottled(fake, 1000)
	ok, err := throttled.JudgeBool(context.Background(), llm.JudgeRequest{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, fake.calls)
}

func TestThrottledPropagatesContextCancellation(t *testing.T) {
	fake := &fakeEngine{reply: true}
	throttled := llm.NewThrottled(fake, 0.0001)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := throttled.JudgeBool(ctx, llm.JudgeRequest{})
	assert.Error(t, err)
	assert.Equal(t, 0, fake.calls)
}
