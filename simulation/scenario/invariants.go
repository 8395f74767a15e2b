package scenario

import (
	"fmt"

	"github.com/are-sim/aresim/simulation/event"
)

// validateInvariants re-checks I1–I7 over the whole graph. Called after
// every AddEvent/EditEvent, never left partially applied: callers roll the
// mutation back on error.
func validateInvariants(g *event.Graph, turnIdx map[string]int) error {
	if _, err := g.TopoOrder(); err != nil { // I3: acyclicity
		return fmt.Errorf("I3 violated: %w", err)
	}

	for _, e := range g.Events() {
		if err := checkTiming(e); err != nil { // I1, I2
			return err
		}
		if e.EventType == event.TypeAgent && len(e.Dependencies) == 0 { // I4
			return fmt.Errorf("I4 violated: AGENT event %s has no dependency", e.EventID)
		}
		if e.EventType == event.TypeEnv { // I7
			if err := checkEnvDependency(e); err != nil {
				return err
			}
		}
		if isSendMessageToUser(e) { // I6
			if err := checkNoPostTurnDependencyOnSendMessage(g, e, turnIdx); err != nil {
				return err
			}
		}
	}

	if err := checkSingleConversationBranch(g); err != nil { // I5
		return err
	}
	return nil
}

// checkTiming enforces I1 (event_time ≥ max(dep.event_time) + relative) and
// I2 (non-negative relative/absolute time, not both set).
func checkTiming(e *event.Event) error {
	if e.EventRelativeTime != nil && *e.EventRelativeTime < 0 {
		return fmt.Errorf("I2 violated: event %s has negative relative time", e.EventID)
	}
	if e.EventTime != nil && *e.EventTime < 0 {
		return fmt.Errorf("I2 violated: event %s has negative absolute time", e.EventID)
	}
	if e.EventTime != nil && e.EventRelativeTime != nil {
		return fmt.Errorf("I2 violated: event %s has both event_time and event_relative_time set", e.EventID)
	}
	if e.EventTime == nil {
		return nil
	}
	maxDep := 0.0
	for _, d := range e.Dependencies {
		if d.EventTime == nil {
			continue
		}
		if *d.EventTime > maxDep {
			maxDep = *d.EventTime
		}
	}
	rel := 0.0
	if e.EventRelativeTime != nil {
		rel = *e.EventRelativeTime
	}
	if *e.EventTime < maxDep+rel {
		return fmt.Errorf("I1 violated: event %s time %v is before its dependencies complete (%v)", e.EventID, *e.EventTime, maxDep+rel)
	}
	return nil
}

// checkEnvDependency enforces I7: an ENV event depends on exactly one
// event, itself USER, ENV, or a send_message_to_agent AGENT event.
func checkEnvDependency(e *event.Event) error {
	if len(e.Dependencies) != 1 {
		return fmt.Errorf("I7 violated: ENV event %s must have exactly one dependency, has %d", e.EventID, len(e.Dependencies))
	}
	d := e.Dependencies[0]
	switch d.EventType {
	case event.TypeUser, event.TypeEnv:
		return nil
	case event.TypeAgent:
		if isSendMessageToAgent(d) {
			return nil
		}
	}
	return fmt.Errorf("I7 violated: ENV event %s depends on %s, which is neither USER, ENV, nor send_message_to_agent", e.EventID, d.EventID)
}

// checkNoPostTurnDependencyOnSendMessage enforces I6: within the same turn,
// nothing may depend on a send_message_to_user event except another
// send_message_to_user.
func checkNoPostTurnDependencyOnSendMessage(g *event.Graph, sendEvent *event.Event, turnIdx map[string]int) error {
	for _, succ := range sendEvent.Successors {
		if isSendMessageToUser(succ) {
			continue
		}
		if turnIdx[succ.EventID] == turnIdx[sendEvent.EventID] {
			return fmt.Errorf("I6 violated: event %s depends on send_message_to_user event %s within the same turn", succ.EventID, sendEvent.EventID)
		}
	}
	return nil
}

// checkSingleConversationBranch enforces I5: the USER/AGENT events that
// exchange conversation turns form a single linear chain, not a branching
// tree — each such event has at most one USER/AGENT predecessor and at
// most one USER/AGENT successor.
func checkSingleConversationBranch(g *event.Graph) error {
	isConversation := func(e *event.Event) bool {
		return e.EventType == event.TypeUser || e.EventType == event.TypeAgent
	}
	for _, e := range g.Events() {
		if !isConversation(e) {
			continue
		}
		var convoPreds, convoSuccs int
		for _, d := range e.Dependencies {
			if isConversation(d) {
				convoPreds++
			}
		}
		for _, s := range e.Successors {
			if isConversation(s) {
				convoSuccs++
			}
		}
		if convoPreds > 1 {
			return fmt.Errorf("I5 violated: event %s has %d conversation predecessors, conversation must be a single chain", e.EventID, convoPreds)
		}
		if convoSuccs > 1 {
			return fmt.Errorf("I5 violated: event %s has %d conversation successors, conversation must be a single chain", e.EventID, convoSuccs)
		}
	}
	return nil
}
