// Package contacts is a minimal in-memory ContactsApp: add, search, remove
// and list contacts, keyed by full name.
package contacts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/are-sim/aresim/simulation/app"
	"github.com/are-sim/aresim/simulation/event"
)

// Contact is one address book entry.
type Contact struct {
	FullName string
	Email    string
	Phone    string
}

// App is an in-memory contacts book.
type App struct {
	mu       sync.RWMutex
	name     string
	seed     []Contact
	contacts map[string]Contact
}

// New constructs a Contacts app pre-populated with seed contacts.
func New(name string, seed []Contact) *App {
	if name == "" {
		name = "Contacts"
	}
	a := &App{name: name, seed: seed}
	a.Reset()
	return a
}

// Reset restores the book to its seed contacts, satisfying app.Resettable.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.contacts = make(map[string]Contact, len(a.seed))
	for _, c := range a.seed {
		a.contacts[c.FullName] = c
	}
}

func (a *App) Name() string { return a.name }

// GetState snapshots every contact keyed by full name, satisfying
// app.Stateful.
func (a *App) GetState() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	entries := make(map[string]any, len(a.contacts))
	for name, c := range a.contacts {
		entries[name] = map[string]any{"full_name": c.FullName, "email": c.Email, "phone": c.Phone}
	}
	return map[string]any{"contacts": entries}
}

// LoadState replaces the book with a snapshot captured by GetState.
func (a *App) LoadState(state map[string]any) error {
	entries, ok := state["contacts"].(map[string]any)
	if !ok {
		return fmt.Errorf("contacts: snapshot missing contacts map")
	}
	restored := make(map[string]Contact, len(entries))
	for name, raw := range entries {
		fields, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("contacts: malformed snapshot entry %q", name)
		}
		c := Contact{FullName: name}
		if v, ok := fields["full_name"].(string); ok {
			c.FullName = v
		}
		c.Email, _ = fields["email"].(string)
		c.Phone, _ = fields["phone"].(string)
		restored[name] = c
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.contacts = restored
	return nil
}

func (a *App) Tools() []*app.Tool {
	return []*app.Tool{
		{
			Name:          "add_contact",
			Description:   "Add a contact with a full name, email and phone number.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        addContactSchema,
			Func:          a.addContact,
		},
		{
			Name:          "search_contact",
			Description:   "Search contacts by name or email substring.",
			OperationType: event.OperationRead,
			EventType:     event.TypeAgent,
			Schema:        requiredSchema("query"),
			Func:          a.searchContact,
		},
		{
			Name:          "remove_contact",
			Description:   "Remove the contact with the given full name.",
			OperationType: event.OperationWrite,
			EventType:     event.TypeAgent,
			Schema:        requiredSchema("full_name"),
			Func:          a.removeContact,
		},
		{
			Name:          "list_contacts",
			Description:   "List every known contact.",
			OperationType: event.OperationRead,
			EventType:     event.TypeAgent,
			Func:          a.listContacts,
		},
	}
}

func (a *App) addContact(ctx context.Context, args map[string]any) (any, error) {
	fullName, _ := args["full_name"].(string)
	if fullName == "" {
		return nil, fmt.Errorf("contacts: full_name is required")
	}
	email, _ := args["email"].(string)
	phone, _ := args["phone"].(string)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.contacts[fullName] = Contact{FullName: fullName, Email: email, Phone: phone}
	return fullName, nil
}

// searchContact matches query against full name or email substring,
// case-insensitively, returning every matching contact.
func (a *App) searchContact(ctx context.Context, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	needle := strings.ToLower(query)

	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []Contact
	for _, c := range a.contacts {
		if strings.Contains(strings.ToLower(c.FullName), needle) || strings.Contains(strings.ToLower(c.Email), needle) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (a *App) removeContact(ctx context.Context, args map[string]any) (any, error) {
	fullName, _ := args["full_name"].(string)
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.contacts[fullName]; !ok {
		return nil, fmt.Errorf("contacts: no such contact %q", fullName)
	}
	delete(a.contacts, fullName)
	return fullName, nil
}

func (a *App) listContacts(ctx context.Context, args map[string]any) (any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Contact, 0, len(a.contacts))
	for _, c := range a.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

var addContactSchema = map[string]any{
	"type":                 "object",
	"required":             []any{"full_name", "email"},
	"additionalProperties": false,
	"properties": map[string]any{
		"full_name": map[string]any{"type": "string"},
		"email":     map[string]any{"type": "string"},
		"phone":     map[string]any{"type": "string"},
	},
}

func requiredSchema(required ...string) map[string]any {
	props := make(map[string]any, len(required))
	reqAny := make([]any, len(required))
	for i, r := range required {
		props[r] = map[string]any{"type": "string"}
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
