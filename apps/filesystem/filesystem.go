// Package filesystem is a minimal in-memory sandbox FileSystemApp: list,
// read, write, find, move and delete files. It exists only so scenarios
// have a real write-surface to dispatch against (find-file style tasks,
// scenario S1), not as a faithful filesystem.
package filesystem

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/are-sim/aresim/simulation/app"
	"github.com/are-sim/aresim/simulation/event"
)

// File is one sandboxed file's content and metadata.
type File struct {
	Path    string
	Content string
}

// App is a sandbox filesystem keyed by path. Safe for concurrent tool
// calls; the registry never serializes dispatch across apps.
type App struct {
	mu    sync.RWMutex
	name  string
	seed  map[string]string
	files map[string]*File
}

// New constructs a FileSystem app pre-populated with seed (path -> content).
// seed may be nil.
func New(name string, seed map[string]string) *App {
	if name == "" {
		name = "FileSystem"
	}
	a := &App{name: name, seed: seed}
	a.Reset()
	return a
}

// Reset restores the sandbox to its seed contents, satisfying
// app.Resettable.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = make(map[string]*File, len(a.seed))
	for p, c := range a.seed {
		a.files[p] = &File{Path: p, Content: c}
	}
}

func (a *App) Name() string { return a.name }

// GetState snapshots every file's content keyed by path, satisfying
// app.Stateful.
func (a *App) GetState() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	files := make(map[string]any, len(a.files))
	for p, f := range a.files {
		files[p] = f.Content
	}
	return map[string]any{"files": files}
}

// LoadState replaces the sandbox with a snapshot captured by GetState.
func (a *App) LoadState(state map[string]any) error {
	files, ok := state["files"].(map[string]any)
	if !ok {
		return fmt.Errorf("filesystem: snapshot missing files map")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = make(map[string]*File, len(files))
	for p, c := range files {
		content, _ := c.(string)
		a.files[p] = &File{Path: p, Content: content}
	}
	return nil
}

func (a *App) Tools() []*app.Tool {
	return []*app.Tool{
		{
			Name:          "list_files",
			Description:   "List every file path currently in the sandbox.",
			OperationType: event.OperationRead,
			EventType:     event.TypeAgent,
			Func:          a.listFiles,
		},
		{
			Name:          "read_file",
			Description:   "Read the contents of a file at the given path.",
			OperationType: event.OperationRead,
			EventType:     event.TypeAgent,
			Schema:        argSchema("path"),
			Func:          a.readFile,
		},
		{
			Name:          "write_file",
			Description:   "Write (or overwrite) a file at the given path with the given content.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        argSchema("path", "content"),
			Func:          a.writeFile,
		},
		{
			Name:          "find_file",
			Description:   "Find files whose path contains the given query, case-insensitively.",
			OperationType: event.OperationRead,
			EventType:     event.TypeAgent,
			Schema:        argSchema("query"),
			Func:          a.findFile,
		},
		{
			Name:          "move_file",
			Description:   "Move a file from source to destination.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        argSchema("source", "destination"),
			Func:          a.moveFile,
		},
		{
			Name:          "delete_file",
			Description:   "Delete the file at the given path.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        argSchema("path"),
			Func:          a.deleteFile,
		},
	}
}

func (a *App) listFiles(ctx context.Context, args map[string]any) (any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.files))
	for p := range a.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (a *App) readFile(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	a.mu.RLock()
	defer a.mu.RUnlock()
	f, ok := a.files[path]
	if !ok {
		return nil, fmt.Errorf("filesystem: no such file %q", path)
	}
	return f.Content, nil
}

func (a *App) writeFile(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if path == "" {
		return nil, fmt.Errorf("filesystem: path is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[path] = &File{Path: path, Content: content}
	return path, nil
}

// findFile returns every path whose full path contains query,
// case-insensitively — the minimal search scenario S1's task needs.
func (a *App) findFile(ctx context.Context, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	needle := strings.ToLower(query)
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []string
	for p := range a.files {
		if strings.Contains(strings.ToLower(p), needle) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (a *App) moveFile(ctx context.Context, args map[string]any) (any, error) {
	src, _ := args["source"].(string)
	dst, _ := args["destination"].(string)
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.files[src]
	if !ok {
		return nil, fmt.Errorf("filesystem: no such file %q", src)
	}
	delete(a.files, src)
	a.files[dst] = &File{Path: dst, Content: f.Content}
	return dst, nil
}

func (a *App) deleteFile(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.files[path]; !ok {
		return nil, fmt.Errorf("filesystem: no such file %q", path)
	}
	delete(a.files, path)
	return path, nil
}

func argSchema(required ...string) map[string]any {
	props := make(map[string]any, len(required))
	for _, r := range required {
		props[r] = map[string]any{"type": "string"}
	}
	reqAny := make([]any, len(required))
	for i, r := range required {
		reqAny[i] = r
	}
	return map[string]any{
		"type":                 "object",
		"required":             reqAny,
		"additionalProperties": false,
		"properties":           props,
	}
}

var _ app.App = (*App)(nil)
var _ app.Resettable = (*App)(nil)
var _ app.Stateful = (*App)(nil)
