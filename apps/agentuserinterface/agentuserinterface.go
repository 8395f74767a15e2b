// Package agentuserinterface exposes the two tools the turn-boundary and
// I6 rules key off of: send_message_to_user and send_message_to_agent.
// Both just append to an in-memory transcript; the app carries no other
// behavior on purpose (scenario.ToolSendMessageToUser/ToolSendMessageToAgent
// name these exact tools).
package agentuserinterface

import (
	"context"
	"fmt"
	"sync"

	"github.com/are-sim/aresim/simulation/app"
	"github.com/are-sim/aresim/simulation/event"
)

// Turn is one recorded message, either sent to the user or sent to the agent.
type Turn struct {
	Direction string // "user" or "agent"
	Content   string
}

// App is the minimal conversational surface between the agent under
// evaluation and the simulated user/supervisor agent.
type App struct {
	mu         sync.RWMutex
	name       string
	transcript []Turn
}

// New constructs an AgentUserInterface app with an empty transcript.
func New(name string) *App {
	if name == "" {
		name = "AgentUserInterface"
	}
	return &App{name: name}
}

// Reset clears the transcript, satisfying app.Resettable.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript = nil
}

func (a *App) Name() string { return a.name }

// GetState snapshots the transcript, satisfying app.Stateful.
func (a *App) GetState() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	turns := make([]any, len(a.transcript))
	for i, t := range a.transcript {
		turns[i] = map[string]any{"direction": t.Direction, "content": t.Content}
	}
	return map[string]any{"transcript": turns}
}

// LoadState replaces the transcript with a snapshot captured by GetState.
func (a *App) LoadState(state map[string]any) error {
	rawTurns, ok := state["transcript"].([]any)
	if !ok {
		return fmt.Errorf("agentuserinterface: snapshot missing transcript")
	}
	restored := make([]Turn, len(rawTurns))
	for i, raw := range rawTurns {
		fields, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("agentuserinterface: malformed snapshot turn %d", i)
		}
		restored[i].Direction, _ = fields["direction"].(string)
		restored[i].Content, _ = fields["content"].(string)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript = restored
	return nil
}

func (a *App) Tools() []*app.Tool {
	return []*app.Tool{
		{
			Name:          "send_message_to_user",
			Description:   "Send a message to the user, ending the current conversation turn.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        contentSchema,
			Func:          a.sendToUser,
		},
		{
			Name:          "send_message_to_agent",
			Description:   "Send a message from the user to the agent.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        contentSchema,
			Func:          a.sendToAgent,
		},
	}
}

var contentSchema = map[string]any{
	"type":                 "object",
	"required":             []any{"content"},
	"additionalProperties": false,
	"properties": map[string]any{
		"content": map[string]any{"type": "string"},
	},
}

func (a *App) sendToUser(ctx context.Context, args map[string]any) (any, error) {
	content, _ := args["content"].(string)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript = append(a.transcript, Turn{Direction: "user", Content: content})
	return content, nil
}

func (a *App) sendToAgent(ctx context.Context, args map[string]any) (any, error) {
	content, _ := args["content"].(string)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript = append(a.transcript, Turn{Direction: "agent", Content: content})
	return content, nil
}

// Transcript returns every recorded message in call order.
func (a *App) Transcript() []Turn {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Turn, len(a.transcript))
	copy(out, a.transcript)
	return out
}

var _ app.App = (*App)(nil)
var _ app.Resettable = (*App)(nil)
var _ app.Stateful = (*App)(nil)
