// Package eventlog holds the two priority queues every environment tick
// touches: the EventQueue of events still waiting to run, and the EventLog
// of completed events already appended to history.
package eventlog

import (
	"sort"
	"sync"

	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/pqueue"
)

// completedKey adapts *event.CompletedEvent to pqueue.Keyed.
type completedKey struct{ *event.CompletedEvent }

func (c completedKey) Less(other completedKey) bool {
	return c.CompletedEvent.Less(other.CompletedEvent)
}

// EventLog is the append-only record of every event that has actually run,
// ordered by (event_time, event_id). Events are copied on Put so a caller
// holding the original cannot mutate history after the fact.
type EventLog struct {
	mu   sync.RWMutex
	past *pqueue.PriorityQueue[completedKey]
	byID map[string]*event.CompletedEvent
}

// New constructs an empty EventLog.
func New() *EventLog {
	return &EventLog{
		past: pqueue.New[completedKey](),
		byID: map[string]*event.CompletedEvent{},
	}
}

// Put appends one or more completed events to the log.
func (l *EventLog) Put(events ...*event.CompletedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range events {
		cp := *e
		l.past.Push(completedKey{&cp})
		l.byID[cp.EventID] = &cp
	}
}

// Len returns the number of completed events recorded so far.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.past.Len()
}

// Get looks up a completed event by id, used to resolve
// "{{event_id}}" placeholders in later actions' arguments.
func (l *EventLog) Get(id string) (*event.CompletedEvent, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[id]
	return e, ok
}

// ListView returns every completed event in (event_time, event_id) order.
// The slice is a snapshot; mutating it does not affect the log.
func (l *EventLog) ListView() []*event.CompletedEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	values := l.past.Values()
	out := make([]*event.CompletedEvent, len(values))
	for i, v := range values {
		out[i] = v.CompletedEvent
	}
	sortByTimeThenID(out)
	return out
}

func sortByTimeThenID(events []*event.CompletedEvent) {
	sort.Slice(events, func(i, j int) bool { return events[i].Less(events[j]) })
}
