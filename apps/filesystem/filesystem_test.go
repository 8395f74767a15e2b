package filesystem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/apps/filesystem"
	"github.com/are-sim/aresim/simulation/app"
	"github.com/are-sim/aresim/simulation/event"
)

func toolFunc(t *testing.T, a *filesystem.App, name string) app.ToolFunc {
	t.Helper()
	for _, tool := range a.Tools() {
		if tool.Name == name {
			return tool.Func
		}
	}
	t.Fatalf("no tool %q", name)
	return nil
}

func TestFindFileMatchesSubstringCaseInsensitively(t *testing.T) {
	a := filesystem.New("FileSystem", map[string]string{"photos/llama.jpg": "binary", "notes.txt": "hi"})
	out, err := toolFunc(t, a, "find_file")(context.Background(), map[string]any{"query": "LLAMA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/llama.jpg"}, out)
}

func TestWriteThenReadFile(t *testing.T) {
	a := filesystem.New("FileSystem", nil)
	_, err := toolFunc(t, a, "write_file")(context.Background(), map[string]any{"path": "a.txt", "content": "hello"})
	require.NoError(t, err)

	out, err := toolFunc(t, a, "read_file")(context.Background(), map[string]any{"path": "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestReadMissingFileFails(t *testing.T) {
	a := filesystem.New("FileSystem", nil)
	_, err := toolFunc(t, a, "read_file")(context.Background(), map[string]any{"path": "missing.txt"})
	assert.Error(t, err)
}

func TestMoveFileRenamesPath(t *testing.T) {
	a := filesystem.New("FileSystem", map[string]string{"a.txt": "content"})
	out, err := toolFunc(t, a, "move_file")(context.Background(), map[string]any{"source": "a.txt", "destination": "b.txt"})
	require.NoError(t, err)
	assert.Equal(t, "b.txt", out)

	_, err = toolFunc(t, a, "read_file")(context.Background(), map[string]any{"path": "a.txt"})
	assert.Error(t, err)
	content, err := toolFunc(t, a, "read_file")(context.Background(), map[string]any{"path": "b.txt"})
	require.NoError(t, err)
	assert.Equal(t, "content", content)
}

func TestDeleteFileRemovesIt(t *testing.T) {
	a := filesystem.New("FileSystem", map[string]string{"a.txt": "content"})
	_, err := toolFunc(t, a, "delete_file")(context.Background(), map[string]any{"path": "a.txt"})
	require.NoError(t, err)

	out, err := toolFunc(t, a, "list_files")(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResetRestoresSeedContents(t *testing.T) {
	a := filesystem.New("FileSystem", map[string]string{"a.txt": "content"})
	_, err := toolFunc(t, a, "delete_file")(context.Background(), map[string]any{"path": "a.txt"})
	require.NoError(t, err)

	a.Reset()
	content, err := toolFunc(t, a, "read_file")(context.Background(), map[string]any{"path": "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, "content", content)
}

func TestGetStateLoadStateRoundTrip(t *testing.T) {
	a := filesystem.New("FileSystem", map[string]string{"a.txt": "content"})
	snapshot := a.GetState()

	_, err := toolFunc(t, a, "write_file")(context.Background(), map[string]any{"path": "b.txt", "content": "later"})
	require.NoError(t, err)

	require.NoError(t, a.LoadState(snapshot))
	listed, err := toolFunc(t, a, "list_files")(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, listed)
}

func TestRegistersAgainstRealSchema(t *testing.T) {
	r := app.NewRegistry()
	a := filesystem.New("FileSystem", map[string]string{"a.txt": "x"})
	require.NoError(t, r.Register(a))

	_, err := r.Call(context.Background(), &event.Action{AppName: "FileSystem", FunctionName: "find_file", Args: map[string]any{"query": 5}})
	assert.Error(t, err)
}
