package checker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/simulation/validation/checker"
	"github.com/are-sim/aresim/simulation/validation/llm"
)

func TestEq(t *testing.T) {
	ok, err := checker.Eq(3, "3")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.Eq(nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.Eq("a", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = checker.Eq("hello", "hello")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnorderedList(t *testing.T) {
	ok, err := checker.UnorderedList([]any{"b", "a"}, []any{"a", "b"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.UnorderedList([]any{"a", "a"}, []any{"a"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListAttendeesIgnoresTolerance(t *testing.T) {
	f := checker.ListAttendees([]string{"me@example.com"})
	ok, err := f([]any{"me@example.com", "bob@example.com"}, []any{"bob@example.com"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDateTime(t *testing.T) {
	ok, err := checker.DateTime("2026-01-02 03:04:05", "2026-01-02 03:04:05")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = checker.DateTime("not-a-date", "2026-01-02 03:04:05")
	assert.Error(t, err)
}

func TestPhoneNumber(t *testing.T) {
	ok, err := checker.PhoneNumber("(555) 123-4567", "5551234567")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEqStrStrip(t *testing.T) {
	ok, err := checker.EqStrStrip("  hi  ", "hi")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPath(t *testing.T) {
	ok, err := checker.Path("/a/b/../c", "a/c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnorderedPathList(t *testing.T) {
	ok, err := checker.UnorderedPathList([]any{"/a/b", "/c"}, []any{"c", "a/b"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestContainAnyAndAll(t *testing.T) {
	hasAny, err := checker.ContainAny("Hello World", []string{"xyz", "world"})
	require.NoError(t, err)
	assert.True(t, hasAny)

	all, err := checker.ContainAll("Hello World", []string{"hello", "world"})
	require.NoError(t, err)
	assert.True(t, all)

	all, err = checker.ContainAll("Hello World", []string{"hello", "mars"})
	require.NoError(t, err)
	assert.False(t, all)
}

func TestContainAnyAndAllAreRegistered(t *testing.T) {
	anyFn, ok := checker.Lookup("contain_any")
	require.True(t, ok)
	matched, err := anyFn("Hello World", "world")
	require.NoError(t, err)
	assert.True(t, matched)

	allFn, ok := checker.Lookup("contain_all")
	require.True(t, ok)
	matched, err = allFn("Hello World", []any{"hello", "mars"})
	require.NoError(t, err)
	assert.False(t, matched)
}

type fakeEngine struct {
	verdict bool
}

func (f *fakeEngine) JudgeBool(ctx context.Context, req llm.JudgeRequest) (bool, error) {
	return f.verdict, nil
}

func TestSoftCheckersDelegateToEngine(t *testing.T) {
	eng := &fakeEngine{verdict: true}
	ok, err := checker.Content(context.Background(), eng, "candidate text", "reference text")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSoftCheckerErrorsWithoutEngine(t *testing.T) {
	_, err := checker.Tone(context.Background(), nil, "a", "b")
	assert.Error(t, err)
}
