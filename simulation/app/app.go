// Package app is the dynamic dispatch layer a scenario's tool calls run
// through: apps register their tools once, and the registry resolves an
// event's (app, function) action to the right handler, validating its
// arguments against a JSON Schema before the handler ever sees them.
package app

import (
	"context"

	"github.com/are-sim/aresim/simulation/event"
)

// App is anything a scenario can attach to an environment and call tools
// against — a filesystem, a contacts book, a messaging inbox. Apps own
// their own state and are responsible for its thread-safety; the registry
// only ever calls Tools() once, at registration time.
type App interface {
	// Name identifies the app in Action.AppName and in tool names
	// ("<Name>__<Tool>"). Must be stable across a scenario run.
	Name() string
	// Tools returns every callable exposed by this app.
	Tools() []*Tool
}

// Resettable is implemented by apps whose state needs to return to a known
// baseline between scenario runs, mirroring the teacher's in-memory store
// Reset() test helper.
type Resettable interface {
	Reset()
}

// Stateful is implemented by apps that support snapshotting: GetState
// returns a deep copy of the app's current state, and LoadState replaces
// the state with a previously captured snapshot. The returned map must be
// safe to hold across later tool calls — mutating it never mutates the app.
type Stateful interface {
	GetState() map[string]any
	LoadState(state map[string]any) error
}

// ToolFunc is the handler backing one tool. It receives the resolved
// arguments (placeholders already substituted, schema already validated)
// and returns the tool's result or an error describing why the call
// failed — a returned error becomes the completed event's Exception, it
// never aborts the simulation.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool is one callable an App exposes to the registry.
type Tool struct {
	// Name is the bare function name, e.g. "find_file". Combined with the
	// owning app's Name it forms the "<App>__<Tool>" identifier the judge
	// keys checkers on.
	Name string
	// Description is the agent-facing summary of what the tool does,
	// surfaced (and optionally augmented) by Registry.ToolSpecs.
	Description   string
	OperationType event.OperationType
	// EventType is the kind of event executing this tool produces; AGENT
	// for ordinary agent-invoked tools, ENV for world-driven side effects
	// an app schedules on itself.
	EventType event.Type
	// Schema is the tool's argument JSON Schema, compiled once at
	// registration time. Nil means no validation is performed — used for
	// tools that take no arguments.
	Schema map[string]any
	Func   ToolFunc
}
