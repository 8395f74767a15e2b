// Package messaging is a minimal in-memory MessagingApp: send a direct
// message, receive an inbound email (an ENV-triggered tool a scenario
// schedules on itself rather than the agent), forward or reply to an
// email, and list the inbox — grounding forward-on-arrival and
// placeholder-resolution scenarios.
package messaging

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/are-sim/aresim/simulation/app"
	"github.com/are-sim/aresim/simulation/event"
)

// Email is one inbox entry.
type Email struct {
	ID      string
	From    string
	To      []string
	Subject string
	Body    string
}

// Message is one sent direct message.
type Message struct {
	To      string
	Content string
}

// App is an in-memory inbox plus a sent-message log.
type App struct {
	mu       sync.RWMutex
	name     string
	inbox    map[string]*Email
	sent     []Message
	newEmail func() string
}

// New constructs a Messaging app with an empty inbox.
func New(name string) *App {
	if name == "" {
		name = "Messaging"
	}
	a := &App{name: name, newEmail: uuid.NewString}
	a.Reset()
	return a
}

// Reset empties the inbox and sent log, satisfying app.Resettable.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inbox = map[string]*Email{}
	a.sent = nil
}

func (a *App) Name() string { return a.name }

// GetState snapshots the inbox and sent log, satisfying app.Stateful.
func (a *App) GetState() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	inbox := make(map[string]any, len(a.inbox))
	for id, e := range a.inbox {
		inbox[id] = map[string]any{
			"from":    e.From,
			"to":      append([]string(nil), e.To...),
			"subject": e.Subject,
			"body":    e.Body,
		}
	}
	sent := make([]any, len(a.sent))
	for i, m := range a.sent {
		sent[i] = map[string]any{"to": m.To, "content": m.Content}
	}
	return map[string]any{"inbox": inbox, "sent": sent}
}

// LoadState replaces the inbox and sent log with a snapshot captured by
// GetState.
func (a *App) LoadState(state map[string]any) error {
	rawInbox, ok := state["inbox"].(map[string]any)
	if !ok {
		return fmt.Errorf("messaging: snapshot missing inbox map")
	}
	inbox := make(map[string]*Email, len(rawInbox))
	for id, raw := range rawInbox {
		fields, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("messaging: malformed snapshot email %q", id)
		}
		e := &Email{ID: id}
		e.From, _ = fields["from"].(string)
		e.Subject, _ = fields["subject"].(string)
		e.Body, _ = fields["body"].(string)
		switch to := fields["to"].(type) {
		case []string:
			e.To = append([]string(nil), to...)
		case []any:
			for _, r := range to {
				if s, ok := r.(string); ok {
					e.To = append(e.To, s)
				}
			}
		}
		inbox[id] = e
	}
	var sent []Message
	if rawSent, ok := state["sent"].([]any); ok {
		for _, raw := range rawSent {
			fields, _ := raw.(map[string]any)
			m := Message{}
			m.To, _ = fields["to"].(string)
			m.Content, _ = fields["content"].(string)
			sent = append(sent, m)
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inbox = inbox
	a.sent = sent
	return nil
}

func (a *App) Tools() []*app.Tool {
	return []*app.Tool{
		{
			Name:          "send_message",
			Description:   "Send a direct message to a recipient.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        schema([]string{"to", "content"}, nil),
			Func:          a.sendMessage,
		},
		{
			Name:          "receive_email",
			Description:   "Simulate an inbound email arriving in the inbox.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeEnv,
			Schema:        schema([]string{"from", "subject", "body"}, []string{"to"}),
			Func:          a.receiveEmail,
		},
		{
			Name:          "forward_email",
			Description:   "Forward an existing email to new recipients.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        forwardEmailSchema,
			Func:          a.forwardEmail,
		},
		{
			Name:          "reply_to_email",
			Description:   "Reply to an existing email with new content.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        schema([]string{"email_id", "content"}, nil),
			Func:          a.replyToEmail,
		},
		{
			Name:          "list_inbox",
			Description:   "List every email currently in the inbox.",
			OperationType: event.OperationRead,
			EventType:     event.TypeAgent,
			Func:          a.listInbox,
		},
	}
}

func (a *App) sendMessage(ctx context.Context, args map[string]any) (any, error) {
	to, _ := args["to"].(string)
	content, _ := args["content"].(string)
	if to == "" {
		return nil, fmt.Errorf("messaging: to is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, Message{To: to, Content: content})
	return to, nil
}

// receiveEmail is the world-driven side effect a scenario schedules as an
// ENV event: an email lands in the inbox without any agent involvement.
// Its return value is the new email's id, resolvable by later events'
// {{event_id}} placeholders (forward-on-arrival, placeholder resolution).
func (a *App) receiveEmail(ctx context.Context, args map[string]any) (any, error) {
	from, _ := args["from"].(string)
	subject, _ := args["subject"].(string)
	body, _ := args["body"].(string)
	to, _ := args["to"].([]any)

	recipients := make([]string, 0, len(to))
	for _, r := range to {
		if s, ok := r.(string); ok {
			recipients = append(recipients, s)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.newEmail()
	a.inbox[id] = &Email{ID: id, From: from, To: recipients, Subject: subject, Body: body}
	return id, nil
}

func (a *App) forwardEmail(ctx context.Context, args map[string]any) (any, error) {
	emailID, _ := args["email_id"].(string)
	recipientsArg, _ := args["recipients"].([]any)

	a.mu.Lock()
	defer a.mu.Unlock()
	orig, ok := a.inbox[emailID]
	if !ok {
		return nil, fmt.Errorf("messaging: no such email %q", emailID)
	}
	recipients := make([]string, 0, len(recipientsArg))
	for _, r := range recipientsArg {
		if s, ok := r.(string); ok {
			recipients = append(recipients, s)
		}
	}
	id := a.newEmail()
	a.inbox[id] = &Email{ID: id, From: orig.From, To: recipients, Subject: "Fwd: " + orig.Subject, Body: orig.Body}
	return id, nil
}

func (a *App) replyToEmail(ctx context.Context, args map[string]any) (any, error) {
	emailID, _ := args["email_id"].(string)
	content, _ := args["content"].(string)

	a.mu.Lock()
	defer a.mu.Unlock()
	orig, ok := a.inbox[emailID]
	if !ok {
		return nil, fmt.Errorf("messaging: no such email %q", emailID)
	}
	id := a.newEmail()
	a.inbox[id] = &Email{ID: id, From: "", To: []string{orig.From}, Subject: "Re: " + orig.Subject, Body: content}
	return id, nil
}

func (a *App) listInbox(ctx context.Context, args map[string]any) (any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Email, 0, len(a.inbox))
	for _, e := range a.inbox {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var forwardEmailSchema = map[string]any{
	"type":                 "object",
	"required":             []any{"email_id", "recipients"},
	"additionalProperties": false,
	"properties": map[string]any{
		"email_id":   map[string]any{"type": "string"},
		"recipients": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

func schema(required, optional []string) map[string]any {
	props := map[string]any{}
	reqAny := make([]any, len(required))
	for i, r := range required {
		props[r] = map[string]any{"type": "string"}
		reqAny[i] = r
	}
	for _, o := range optional {
		props[o] = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
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
