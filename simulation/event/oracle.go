package event

// OracleEvent is the reference occurrence a scenario author attaches to an
// annotation: "the agent must eventually do something equivalent to this".
// It wraps a normal (never executed) Event descriptor plus the judge
// metadata needed to compare it against whatever the agent actually did.
type OracleEvent struct {
	*Event
	TimeComparator TimeComparator
	Description    *ActionDescription
}

// ToCompleted freezes the oracle's descriptor event as a CompletedOracleEvent
// for the graph judge's topological walk, without ever dispatching the
// action — oracle events describe intent, they do not execute.
func (o *OracleEvent) ToCompleted() *CompletedOracleEvent {
	return &CompletedOracleEvent{
		CompletedEvent: CompletedEvent{
			EventID:      o.EventID,
			EventType:    o.EventType,
			EventTime:    o.EventTime,
			Dependencies: o.DependencyIDs(),
			Successors:   o.SuccessorIDs(),
			Action:       o.Action,
		},
		EventRelativeTime: o.EventRelativeTime,
		TimeComparator:    o.TimeComparator,
	}
}
