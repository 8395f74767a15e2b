package event

// CompletedEvent is the immutable record appended to the event log once an
// Event has actually run. Unlike Event it holds dependency/successor edges
// as plain id strings rather than live pointers — nothing about a completed
// event needs to walk back into the still-mutating authoring graph, and
// flat ids are what the graph judge and snapshot serialization both want
// anyway.
type CompletedEvent struct {
	EventID      string
	EventType    Type
	EventTime    *float64
	Dependencies []string
	Successors   []string
	Action       *Action
	Metadata     EventMetadata
}

// Args returns the arguments the action actually ran with.
func (c *CompletedEvent) Args() map[string]any {
	if c == nil || c.Action == nil {
		return nil
	}
	return c.Action.EffectiveArgs()
}

// ToolName returns the dotted App__Function identifier, or the NoApp
// placeholder for events without an action (e.g. a user turn).
func (c *CompletedEvent) ToolName() string {
	if c == nil {
		return "NoApp__NoFunction"
	}
	return c.Action.ToolName()
}

// Less orders completed events by (EventTime, EventID), matching Event.Less
// so the event log's priority queue can hold either.
func (c *CompletedEvent) Less(other *CompletedEvent) bool {
	switch {
	case c.EventTime == nil && other.EventTime == nil:
		return c.EventID < other.EventID
	case c.EventTime == nil:
		return false
	case other.EventTime == nil:
		return true
	case *c.EventTime != *other.EventTime:
		return *c.EventTime < *other.EventTime
	default:
		return c.EventID < other.EventID
	}
}

// CompletedOracleEvent is a CompletedEvent annotated with the timing
// comparator the judge should use against the matching agent event, plus
// the oracle's own relative-time slot for the {0,1}-tolerance rule
// described in the scenario driver's turn-time validation.
type CompletedOracleEvent struct {
	CompletedEvent
	EventRelativeTime *float64
	TimeComparator    TimeComparator
}
