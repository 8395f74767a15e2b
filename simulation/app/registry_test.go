package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/simulation/app"
	"github.com/are-sim/aresim/simulation/event"
)

type stubApp struct {
	name  string
	tools []*app.Tool
}

func (s *stubApp) Name() string       { return s.name }
func (s *stubApp) Tools() []*app.Tool { return s.tools }

func echoTool(name string, schema map[string]any) *app.Tool {
	return &app.Tool{
		Name:          name,
		OperationType: event.OperationRead,
		EventType:     event.TypeAgent,
		Schema:        schema,
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegisterAndCallDispatchesToHandler(t *testing.T) {
	r := app.NewRegistry()
	a := &stubApp{name: "FileSystem", tools: []*app.Tool{echoTool("find_file", nil)}}
	require.NoError(t, r.Register(a))

	out, err := r.Call(context.Background(), &event.Action{
		AppName:      "FileSystem",
		FunctionName: "find_file",
		Args:         map[string]any{"name": "report.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "report.pdf"}, out)
}

func TestCallUnknownToolErrors(t *testing.T) {
	r := app.NewRegistry()
	_, err := r.Call(context.Background(), &event.Action{AppName: "Nope", FunctionName: "missing"})
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateAppName(t *testing.T) {
	r := app.NewRegistry()
	require.NoError(t, r.Register(&stubApp{name: "Contacts"}))
	err := r.Register(&stubApp{name: "Contacts"})
	assert.Error(t, err)
}

func TestCallValidatesArgsAgainstSchema(t *testing.T) {
	r := app.NewRegistry()
	schema := map[string]any{
		"type":                 "object",
		"required":             []any{"query"},
		"additionalProperties": false,
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
	}
	require.NoError(t, r.Register(&stubApp{name: "Contacts", tools: []*app.Tool{echoTool("search_contacts", schema)}}))

	_, err := r.Call(context.Background(), &event.Action{
		AppName:      "Contacts",
		FunctionName: "search_contacts",
		Args:         map[string]any{"query": 5},
	})
	assert.Error(t, err)

	out, err := r.Call(context.Background(), &event.Action{
		AppName:      "Contacts",
		FunctionName: "search_contacts",
		Args:         map[string]any{"query": "bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"query": "bob"}, out)
}

func TestCallPrefersResolvedArgsOverArgs(t *testing.T) {
	r := app.NewRegistry()
	require.NoError(t, r.Register(&stubApp{name: "FileSystem", tools: []*app.Tool{echoTool("find_file", nil)}}))

	out, err := r.Call(context.Background(), &event.Action{
		AppName:      "FileSystem",
		FunctionName: "find_file",
		Args:         map[string]any{"name": "{{placeholder}}"},
		ResolvedArgs: map[string]any{"name": "resolved.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "resolved.txt"}, out)
}

type resettableApp struct {
	stubApp
	resetCalled bool
}

func (r *resettableApp) Reset() { r.resetCalled = true }

func TestResetAllCallsResettableApps(t *testing.T) {
	r := app.NewRegistry()
	ra := &resettableApp{stubApp: stubApp{name: "Stateful"}}
	require.NoError(t, r.Register(ra))
	r.ResetAll()
	assert.True(t, ra.resetCalled)
}

type statefulApp struct {
	stubApp
	state map[string]any
}

func (s *statefulApp) GetState() map[string]any { return map[string]any{"v": s.state["v"]} }
func (s *statefulApp) LoadState(state map[string]any) error {
	s.state = map[string]any{"v": state["v"]}
	return nil
}

func TestSnapshotAllRoundTripsStatefulApps(t *testing.T) {
	r := app.NewRegistry()
	sa := &statefulApp{stubApp: stubApp{name: "Counter"}, state: map[string]any{"v": 1}}
	require.NoError(t, r.Register(sa))

	snapshot := r.SnapshotAll()
	sa.state["v"] = 2
	require.NoError(t, r.LoadAll(snapshot))
	assert.Equal(t, 1, sa.state["v"])
}

func TestLoadAllRejectsUnknownApp(t *testing.T) {
	r := app.NewRegistry()
	err := r.LoadAll(map[string]map[string]any{"Ghost": {}})
	assert.Error(t, err)
}

func TestDescribeReturnsToolMetadata(t *testing.T) {
	r := app.NewRegistry()
	require.NoError(t, r.Register(&stubApp{name: "FileSystem", tools: []*app.Tool{echoTool("find_file", nil)}}))

	tool, ok := r.Describe("FileSystem", "find_file")
	require.True(t, ok)
	assert.Equal(t, event.OperationRead, tool.OperationType)

	_, ok = r.Describe("FileSystem", "missing")
	assert.False(t, ok)
}
