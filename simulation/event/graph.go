package event

import "fmt"

// Graph is the full set of events authored for a scenario, keyed by id. It
// provides the generic DAG operations (lookup, cycle detection, topological
// order) that both the scenario driver's invariant checks and the graph
// judge's oracle-ordering walk build on.
type Graph struct {
	events map[string]*Event
	order  []string
}

// NewGraph constructs an empty Graph.
func NewGraph() *Graph {
	return &Graph{events: map[string]*Event{}}
}

// Add registers e, keyed by its EventID. Re-adding the same id overwrites in
// place, preserving original insertion order.
func (g *Graph) Add(e *Event) {
	if _, exists := g.events[e.EventID]; !exists {
		g.order = append(g.order, e.EventID)
	}
	g.events[e.EventID] = e
}

// Get looks up an event by id.
func (g *Graph) Get(id string) (*Event, bool) {
	e, ok := g.events[id]
	return e, ok
}

// Len returns the number of events in the graph.
func (g *Graph) Len() int { return len(g.events) }

// Events returns every event in insertion order.
func (g *Graph) Events() []*Event {
	out := make([]*Event, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.events[id])
	}
	return out
}

// TopoOrder returns events in a dependency-respecting order (Kahn's
// algorithm over insertion order for ties), or an error naming the cycle if
// the graph is not acyclic — invariant I3.
func (g *Graph) TopoOrder() ([]*Event, error) {
	inDegree := make(map[string]int, len(g.events))
	for id, e := range g.events {
		inDegree[id] = len(e.Dependencies)
	}

	var ready []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var out []*Event
	seen := map[string]bool{}
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		e := g.events[id]
		out = append(out, e)
		for _, s := range e.Successors {
			inDegree[s.EventID]--
			if inDegree[s.EventID] == 0 {
				ready = append(ready, s.EventID)
			}
		}
	}

	if len(out) != len(g.events) {
		var stuck []string
		for id := range g.events {
			if !seen[id] {
				stuck = append(stuck, id)
			}
		}
		return nil, fmt.Errorf("event graph has a cycle involving: %v", stuck)
	}
	return out, nil
}

// Rehydrate replaces every stub dependency/successor pointer (produced by
// UnmarshalJSON, which only has ids to work with) with the real *Event from
// the graph, once every event has been added.
func (g *Graph) Rehydrate() error {
	for _, e := range g.events {
		for i, d := range e.Dependencies {
			real, ok := g.events[d.EventID]
			if !ok {
				return fmt.Errorf("event %s: dependency %s not found in graph", e.EventID, d.EventID)
			}
			e.Dependencies[i] = real
		}
		for i, s := range e.Successors {
			real, ok := g.events[s.EventID]
			if !ok {
				return fmt.Errorf("event %s: successor %s not found in graph", e.EventID, s.EventID)
			}
			e.Successors[i] = real
		}
	}
	return nil
}
