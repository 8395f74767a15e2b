// Package scenario is the authoring surface: add/edit events against a
// growing DAG, re-validating every structural invariant and the turn-time
// rule on each mutation, and seeding an environment with the fully
// resolved event set.
package scenario

import (
	"fmt"

	"github.com/are-sim/aresim/simulation/app"
	"github.com/are-sim/aresim/simulation/environment"
	"github.com/are-sim/aresim/simulation/event"
)

// AddEventParams describes one event to add to the scenario's DAG.
type AddEventParams struct {
	EventID           string
	EventType         event.Type
	AppName           string
	FunctionName      string
	Args              map[string]any
	OperationType     event.OperationType
	PredecessorIDs    []string
	EventTime         *float64
	EventRelativeTime *float64
}

// Scenario holds the event DAG under construction plus the turn index
// computed from its current shape. Apps and the environment are wired in
// separately (Build) once authoring is complete.
type Scenario struct {
	graph   *event.Graph
	turnIdx map[string]int
}

// New constructs an empty scenario.
func New() *Scenario {
	return &Scenario{graph: event.NewGraph(), turnIdx: map[string]int{}}
}

// Graph exposes the underlying event graph, e.g. for the graph judge to
// walk the oracle's topological order.
func (s *Scenario) Graph() *event.Graph { return s.graph }

// TurnIndex returns the turn each event id currently belongs to.
func (s *Scenario) TurnIndex() map[string]int { return s.turnIdx }

// AddEvent validates p, links it into the DAG, re-checks every invariant
// and the turn-time rule, and recomputes the turn index. On any failure the
// graph is left exactly as it was before the call.
func (s *Scenario) AddEvent(p AddEventParams) (*event.Event, error) {
	var action *event.Action
	if p.AppName != "" {
		opType := p.OperationType
		if opType == "" {
			opType = event.OperationRead
		}
		action = &event.Action{
			AppName:       p.AppName,
			FunctionName:  p.FunctionName,
			Args:          p.Args,
			OperationType: opType,
		}
	}

	ev := event.New(p.EventType, action)
	if p.EventID != "" {
		ev.WithID(p.EventID)
	}

	preds := make([]*event.Event, 0, len(p.PredecessorIDs))
	for _, id := range p.PredecessorIDs {
		d, ok := s.graph.Get(id)
		if !ok {
			return nil, fmt.Errorf("predecessor %q not found", id)
		}
		preds = append(preds, d)
	}
	ev.DependsOn(preds...)

	switch {
	case p.EventTime != nil:
		ev.AtAbsoluteTime(*p.EventTime)
	case p.EventRelativeTime != nil:
		ev.Delayed(*p.EventRelativeTime)
	}

	if err := s.validateTurnTime(ev, preds); err != nil {
		s.unlink(ev)
		return nil, err
	}

	s.graph.Add(ev)
	if err := s.revalidate(); err != nil {
		s.graph = rebuildWithout(s.graph, ev.EventID)
		s.unlink(ev)
		return nil, err
	}
	return ev, nil
}

// EditEvent applies mutate to the event id refers to and re-validates
// everything exactly as AddEvent does. mutate must not change EventID.
func (s *Scenario) EditEvent(id string, mutate func(*event.Event)) error {
	ev, ok := s.graph.Get(id)
	if !ok {
		return fmt.Errorf("event %q not found", id)
	}
	snapshot := *ev
	mutate(ev)
	if err := s.revalidate(); err != nil {
		*ev = snapshot
		return err
	}
	return nil
}

// DeleteEvent removes the event id refers to from the DAG, unlinking it
// from both its dependencies and its successors, and re-validates
// everything exactly as AddEvent does. On any failure (e.g. deleting the
// only USER dependency of an AGENT event would break I4) the graph is
// left exactly as it was before the call.
func (s *Scenario) DeleteEvent(id string) error {
	ev, ok := s.graph.Get(id)
	if !ok {
		return fmt.Errorf("event %q not found", id)
	}

	// Capture neighbor edge lists so a rejected delete can be undone.
	savedSuccessors := make(map[*event.Event][]*event.Event, len(ev.Dependencies))
	for _, d := range ev.Dependencies {
		savedSuccessors[d] = append([]*event.Event(nil), d.Successors...)
	}
	savedDependencies := make(map[*event.Event][]*event.Event, len(ev.Successors))
	for _, succ := range ev.Successors {
		savedDependencies[succ] = append([]*event.Event(nil), succ.Dependencies...)
	}
	oldGraph := s.graph

	s.unlink(ev)
	for _, succ := range ev.Successors {
		succ.Dependencies = without(succ.Dependencies, ev)
	}
	s.graph = rebuildWithout(s.graph, id)

	if err := s.revalidate(); err != nil {
		for d, succs := range savedSuccessors {
			d.Successors = succs
		}
		for succ, deps := range savedDependencies {
			succ.Dependencies = deps
		}
		s.graph = oldGraph
		return err
	}
	return nil
}

// without returns list minus target, preserving order.
func without(list []*event.Event, target *event.Event) []*event.Event {
	out := make([]*event.Event, 0, len(list))
	for _, e := range list {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

// revalidate recomputes the turn index and re-checks I1–I7 against the
// current graph shape.
func (s *Scenario) revalidate() error {
	turnIdx, err := computeTurnIndex(s.graph)
	if err != nil {
		return err
	}
	if err := validateInvariants(s.graph, turnIdx); err != nil {
		return err
	}
	s.turnIdx = turnIdx
	return nil
}

// unlink removes ev from its dependencies' Successors lists, undoing
// DependsOn — used to roll back a rejected AddEvent.
func (s *Scenario) unlink(ev *event.Event) {
	for _, d := range ev.Dependencies {
		for i, succ := range d.Successors {
			if succ == ev {
				d.Successors = append(d.Successors[:i], d.Successors[i+1:]...)
				break
			}
		}
	}
}

// rebuildWithout returns a copy of g's event set excluding id, used to roll
// back a graph.Add that turned out to violate an invariant.
func rebuildWithout(g *event.Graph, id string) *event.Graph {
	fresh := event.NewGraph()
	for _, e := range g.Events() {
		if e.EventID != id {
			fresh.Add(e)
		}
	}
	return fresh
}

// Seed pushes every event in the graph that is already ready (all
// dependencies resolved) onto the environment's queue. Condition and
// validation events are not part of the scenario graph and are not
// registered here. Events that are not yet ready are left for the environment's own runtime
// resolveSuccessors mechanism to queue once their dependencies complete.
func (s *Scenario) Seed(env *environment.Environment) error {
	for _, e := range s.graph.Events() {
		if !e.IsReady() {
			continue
		}
		if err := env.ScheduleEvent(e); err != nil {
			return fmt.Errorf("seeding event %s: %w", e.EventID, err)
		}
	}
	return nil
}

// RegisterApps registers every app with the environment's dispatcher.
func RegisterApps(registry *app.Registry, apps ...app.App) error {
	for _, a := range apps {
		if err := registry.Register(a); err != nil {
			return err
		}
	}
	return nil
}
