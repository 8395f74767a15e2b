package eventlog

import (
	"sort"
	"sync"

	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/pqueue"
)

// eventKey adapts *event.Event to pqueue.Keyed.
type eventKey struct{ *event.Event }

func (e eventKey) Less(other eventKey) bool { return e.Event.Less(other.Event) }

// EventQueue holds every event still waiting to run, ordered by
// (event_time, event_id). Scheduling the same *Event twice (by id) is a
// no-op — condition-check reschedules deliberately mint a new id each time
// specifically so they are not deduplicated away.
type EventQueue struct {
	mu               sync.Mutex
	future           *pqueue.PriorityQueue[eventKey]
	alreadyScheduled map[string]bool
}

// NewQueue constructs an empty EventQueue.
func NewQueue() *EventQueue {
	return &EventQueue{
		future:           pqueue.New[eventKey](),
		alreadyScheduled: map[string]bool{},
	}
}

// Put schedules one or more events. An event id already present in the
// queue is skipped rather than duplicated.
func (q *EventQueue) Put(events ...*event.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range events {
		if q.alreadyScheduled[e.EventID] {
			continue
		}
		q.future.Push(eventKey{e})
		q.alreadyScheduled[e.EventID] = true
	}
}

// PopEventsToProcess removes and returns every event whose EventTime is at
// or before timestamp. Because the queue is time-ordered, the scan stops at
// the first event still in the future.
func (q *EventQueue) PopEventsToProcess(timestamp float64) []*event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*event.Event
	var remaining []eventKey
	for q.future.Len() > 0 {
		next := q.future.Pop()
		if next.EventTime != nil && *next.EventTime <= timestamp {
			due = append(due, next.Event)
			delete(q.alreadyScheduled, next.EventID)
		} else {
			remaining = append(remaining, next)
			break
		}
	}
	for _, r := range remaining {
		q.future.Push(r)
	}
	return due
}

// Len returns the number of events still queued.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.future.Len()
}

// Peek returns the next event to fire without removing it.
func (q *EventQueue) Peek() (*event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	k, ok := q.future.Peek()
	if !ok {
		return nil, false
	}
	return k.Event, true
}

// ListView returns every queued event in (event_time, event_id) order.
func (q *EventQueue) ListView() []*event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	values := q.future.Values()
	out := make([]*event.Event, len(values))
	for i, v := range values {
		out[i] = v.Event
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
