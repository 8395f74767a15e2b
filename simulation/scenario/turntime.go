package scenario

import (
	"fmt"

	"github.com/are-sim/aresim/simulation/event"
)

// validateTurnTime implements the one non-trivial structural authoring
// rule: all of a new event's predecessors must belong to the same turn,
// and — unless every event in that turn uses only the {0,1} relative-time
// shorthand — the new event's accumulated time from turn start must stay
// within the turn's send_message_to_user boundary.
func (s *Scenario) validateTurnTime(ev *event.Event, preds []*event.Event) error {
	if len(preds) == 0 {
		return nil
	}

	turn, ok := s.turnIdx[preds[0].EventID]
	if !ok {
		return fmt.Errorf("predecessor %s has no turn assigned yet", preds[0].EventID)
	}
	for _, p := range preds {
		if s.turnIdx[p.EventID] != turn {
			return fmt.Errorf("event %s: predecessors span multiple turns", ev.EventID)
		}
	}

	var turnEvents []*event.Event
	for _, e := range s.graph.Events() {
		if s.turnIdx[e.EventID] == turn {
			turnEvents = append(turnEvents, e)
		}
	}

	if allRelativeTimesInZeroOne(turnEvents, ev) {
		return nil
	}

	accum := map[string]float64{}
	var accumulate func(e *event.Event) float64
	accumulate = func(e *event.Event) float64 {
		if v, ok := accum[e.EventID]; ok {
			return v
		}
		max := 0.0
		for _, d := range e.Dependencies {
			if s.turnIdx[d.EventID] != turn {
				continue
			}
			if v := accumulate(d); v > max {
				max = v
			}
		}
		v := max + relativeTime(e)
		accum[e.EventID] = v
		return v
	}

	var turnSendMsg *event.Event
	for _, e := range turnEvents {
		if isSendMessageToUser(e) {
			turnSendMsg = e
		}
	}

	accumulate(ev)
	for _, e := range turnEvents {
		accumulate(e)
	}

	if isSendMessageToUser(ev) {
		maxOther := 0.0
		for _, e := range turnEvents {
			if v := accum[e.EventID]; v > maxOther {
				maxOther = v
			}
		}
		if accum[ev.EventID] != maxOther {
			return fmt.Errorf("event %s: send_message_to_user must occur at the turn's maximum accumulated time (%v), got %v", ev.EventID, maxOther, accum[ev.EventID])
		}
		return nil
	}

	if turnSendMsg != nil && accum[ev.EventID] > accum[turnSendMsg.EventID] {
		return fmt.Errorf("event %s: accumulated time %v exceeds turn's send_message_to_user time %v", ev.EventID, accum[ev.EventID], accum[turnSendMsg.EventID])
	}
	return nil
}

func relativeTime(e *event.Event) float64 {
	if e.EventRelativeTime != nil {
		return *e.EventRelativeTime
	}
	return 0
}

func allRelativeTimesInZeroOne(turnEvents []*event.Event, ev *event.Event) bool {
	inRange := func(v float64) bool { return v == 0 || v == 1 }
	if !inRange(relativeTime(ev)) {
		return false
	}
	for _, e := range turnEvents {
		if !inRange(relativeTime(e)) {
			return false
		}
	}
	return true
}
