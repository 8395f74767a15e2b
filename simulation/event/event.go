package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Dispatcher executes an Action against the app registry. Implementations
// (the app package's Registry) validate args against the tool's schema and
// call the handler; they never append to the event log, so Event.Execute
// never has to know about capture mode.
type Dispatcher interface {
	Call(ctx context.Context, a *Action) (any, error)
}

// Accessor is the narrow slice of the environment that a ConditionFunc or
// MilestoneFunc may read. It is declared here, next to the event types that
// depend on it, rather than in the environment package, to avoid a cycle —
// environment.Environment satisfies it directly.
type Accessor interface {
	Now() float64
	App(name string) (any, bool)
}

// Event is a future, not-yet-executed occurrence in the scenario DAG: a USER
// turn, an ENV side effect, or an AGENT tool call still waiting on its
// dependencies. Dependencies and Successors are held as live pointers while
// a scenario is being authored or simulated; they are flattened to event_id
// lists by MarshalJSON for anything that needs to leave process memory (the
// graph judge, snapshots, logs).
type Event struct {
	EventID           string
	EventType         Type
	EventTime         *float64
	EventRelativeTime *float64
	Dependencies      []*Event
	Successors        []*Event
	Action            *Action
}

// New constructs an Event of the given type with a random id. Use the
// With* builders to customize before adding it to a scenario.
func New(t Type, a *Action) *Event {
	return &Event{
		EventID:   fmt.Sprintf("%s_%s", t, uuid.NewString()),
		EventType: t,
		Action:    a,
	}
}

// WithID overrides the generated id. Scenario fixtures loaded from YAML
// carry their own stable ids.
func (e *Event) WithID(id string) *Event {
	e.EventID = id
	return e
}

// AtAbsoluteTime pins the event to a fixed virtual time rather than one
// computed from its dependencies.
func (e *Event) AtAbsoluteTime(t float64) *Event {
	e.EventTime = &t
	e.EventRelativeTime = nil
	return e
}

// Delayed requests the event fire delta seconds after its dependencies are
// all satisfied. Resolved by ComputeAbsoluteTime once those are known.
func (e *Event) Delayed(delta float64) *Event {
	e.EventRelativeTime = &delta
	e.EventTime = nil
	return e
}

// DependsOn records that e cannot run until each of deps has completed, and
// keeps the reverse Successors edges in sync. Spec invariant I3 (acyclicity)
// is enforced by the scenario builder at commit time, not here — at
// authoring time the graph is necessarily incomplete.
func (e *Event) DependsOn(deps ...*Event) *Event {
	for _, d := range deps {
		if d == nil || d == e {
			continue
		}
		e.Dependencies = append(e.Dependencies, d)
		d.Successors = append(d.Successors, e)
	}
	return e
}

// FollowedBy is the mirror of DependsOn: each of succs will depend on e.
func (e *Event) FollowedBy(succs ...*Event) *Event {
	for _, s := range succs {
		if s == nil || s == e {
			continue
		}
		s.DependsOn(e)
	}
	return e
}

// DependencyIDs flattens Dependencies to event ids, in insertion order.
func (e *Event) DependencyIDs() []string {
	ids := make([]string, len(e.Dependencies))
	for i, d := range e.Dependencies {
		ids[i] = d.EventID
	}
	return ids
}

// SuccessorIDs flattens Successors to event ids, in insertion order.
func (e *Event) SuccessorIDs() []string {
	ids := make([]string, len(e.Successors))
	for i, s := range e.Successors {
		ids[i] = s.EventID
	}
	return ids
}

// IsReady reports whether every dependency has already been assigned a
// concrete EventTime, i.e. has already run. An event with no dependencies is
// always ready.
func (e *Event) IsReady() bool {
	for _, d := range e.Dependencies {
		if d.EventTime == nil {
			return false
		}
	}
	return true
}

// ComputeAbsoluteTime resolves EventTime from EventRelativeTime plus the
// latest dependency time, once all dependencies are ready. If EventTime is
// already pinned (AtAbsoluteTime) this is a no-op. It is an error to call
// this before IsReady.
func (e *Event) ComputeAbsoluteTime() error {
	if e.EventTime != nil {
		return nil
	}
	if !e.IsReady() {
		return fmt.Errorf("event %s: dependencies not all resolved", e.EventID)
	}
	base := 0.0
	for _, d := range e.Dependencies {
		if *d.EventTime > base {
			base = *d.EventTime
		}
	}
	delta := 0.0
	if e.EventRelativeTime != nil {
		delta = *e.EventRelativeTime
	}
	t := base + delta
	e.EventTime = &t
	return nil
}

// Less orders events by (EventTime, EventID), the order the event queue and
// event log both require. Events with an unresolved EventTime sort last;
// this should not be observable in practice since the queue only ever holds
// events that have already passed ComputeAbsoluteTime.
func (e *Event) Less(other *Event) bool {
	switch {
	case e.EventTime == nil && other.EventTime == nil:
		return e.EventID < other.EventID
	case e.EventTime == nil:
		return false
	case other.EventTime == nil:
		return true
	case *e.EventTime != *other.EventTime:
		return *e.EventTime < *other.EventTime
	default:
		return e.EventID < other.EventID
	}
}

// Execute dispatches the event's action and produces the CompletedEvent
// recording its outcome. Execute never panics on a tool error: a failing
// call is recorded in the metadata, not returned as a Go error, since a
// failed tool call is itself a valid, loggable scenario occurrence. Execute
// returns a non-nil error only when the event has no action to run (a
// CONDITION or VALIDATION event should never reach Execute; callers route
// those through their own tick methods instead).
func (e *Event) Execute(ctx context.Context, d Dispatcher) (*CompletedEvent, error) {
	if e.Action == nil {
		return nil, fmt.Errorf("event %s: no action to execute", e.EventID)
	}
	meta := EventMetadata{Completed: true}
	ret, err := d.Call(ctx, e.Action)
	if err != nil {
		meta.Exception = err.Error()
	} else {
		meta.ReturnValue = ret
	}
	return &CompletedEvent{
		EventID:      e.EventID,
		EventType:    e.EventType,
		EventTime:    e.EventTime,
		Dependencies: e.DependencyIDs(),
		Successors:   e.SuccessorIDs(),
		Action:       e.Action,
		Metadata:     meta,
	}, nil
}

// Oracle wraps the event as the reference occurrence a judge compares an
// agent's actual run against.
func (e *Event) Oracle(comparator TimeComparator, desc *ActionDescription) *OracleEvent {
	return &OracleEvent{
		Event:          e,
		TimeComparator: comparator,
		Description:    desc,
	}
}
