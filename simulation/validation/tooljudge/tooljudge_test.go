package tooljudge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/simulation/validation/llm"
	"github.com/are-sim/aresim/simulation/validation/tooljudge"
)

type fakeEngine struct{ verdict bool }

func (f *fakeEngine) JudgeBool(ctx context.Context, req llm.JudgeRequest) (bool, error) {
	return f.verdict, nil
}

func TestHardCheckPassesWithDefaultEq(t *testing.T) {
	j := tooljudge.New(tooljudge.Config{})
	res, err := j.Judge(context.Background(), "evt1", "", "Contacts__add_contact",
		map[string]any{"name": "Greg"}, map[string]any{"name": "Greg"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
}

func TestHardCheckFailureSkipsSoft(t *testing.T) {
	j := tooljudge.New(tooljudge.Config{
		SoftCheckers: map[string][]string{"Contacts__add_contact": {"content"}},
		Engine:       &fakeEngine{verdict: true},
	})
	res, err := j.Judge(context.Background(), "evt1", "", "Contacts__add_contact",
		map[string]any{"name": "Bob"}, map[string]any{"name": "Greg"})
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Len(t, res.HardFailures, 1)
	assert.Empty(t, res.SoftRun)
}

func TestConfiguredCheckerPerArg(t *testing.T) {
	j := tooljudge.New(tooljudge.Config{
		ArgCheckers: map[string]map[string]string{
			"FileSystem__move_file": {"path": "path"},
		},
	})
	res, err := j.Judge(context.Background(), "evt1", "", "FileSystem__move_file",
		map[string]any{"path": "/a/b"}, map[string]any{"path": "a/b"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
}

func TestSoftCheckerRunsAfterHardPasses(t *testing.T) {
	j := tooljudge.New(tooljudge.Config{
		SoftCheckers: map[string][]string{"AgentUserInterface__send_message_to_user": {"user_message"}},
		Engine:       &fakeEngine{verdict: false},
	})
	res, err := j.Judge(context.Background(), "evt1", "", "AgentUserInterface__send_message_to_user",
		map[string]any{"content": "hi"}, map[string]any{"content": "hi"})
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, []string{"user_message"}, res.SoftRun)
	assert.Equal(t, []string{"user_message"}, res.SoftFailures)
}

func TestScriptedModeSkipsSoft(t *testing.T) {
	j := tooljudge.New(tooljudge.Config{
		SoftCheckers: map[string][]string{"AgentUserInterface__send_message_to_user": {"user_message"}},
		Engine:       &fakeEngine{verdict: false},
		ScriptedParams: map[string]tooljudge.CheckerParams{
			"evt1": {SkipSoft: true},
		},
	})
	res, err := j.Judge(context.Background(), "evt1", "", "AgentUserInterface__send_message_to_user",
		map[string]any{"content": "hi"}, map[string]any{"content": "hi"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Empty(t, res.SoftRun)
}

func TestScriptedModeOverridesArgChecker(t *testing.T) {
	j := tooljudge.New(tooljudge.Config{
		ArgCheckers: map[string]map[string]string{"T__f": {"path": "eq"}},
		ScriptedParams: map[string]tooljudge.CheckerParams{
			"evt1": {ArgCheckers: map[string]string{"path": "path"}},
		},
	})
	res, err := j.Judge(context.Background(), "evt1", "", "T__f",
		map[string]any{"path": "/a"}, map[string]any{"path": "a"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
}

func TestOnlyOracleArgsAreChecked(t *testing.T) {
	j := tooljudge.New(tooljudge.Config{})
	res, err := j.Judge(context.Background(), "evt1", "", "T__f",
		map[string]any{"a": "1", "extra": "whatever"}, map[string]any{"a": "1"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
}
