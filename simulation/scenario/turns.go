package scenario

import "github.com/are-sim/aresim/simulation/event"

// computeTurnIndex walks the graph in topological order and assigns each
// event the index of the conversation turn it belongs to. A turn ends the
// moment a send_message_to_user AGENT event is processed — every event
// topologically after it belongs to the next turn.
func computeTurnIndex(g *event.Graph) (map[string]int, error) {
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}
	turnIdx := make(map[string]int, len(order))
	turn := 0
	for _, e := range order {
		turnIdx[e.EventID] = turn
		if isSendMessageToUser(e) {
			turn++
		}
	}
	return turnIdx, nil
}

func isSendMessageToUser(e *event.Event) bool {
	return e.EventType == event.TypeAgent && e.Action != nil && e.Action.ToolName() == ToolSendMessageToUser
}

func isSendMessageToAgent(e *event.Event) bool {
	return e.EventType == event.TypeAgent && e.Action != nil && e.Action.ToolName() == ToolSendMessageToAgent
}
