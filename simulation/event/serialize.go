package event

import "github.com/bytedance/sonic"

// wireEvent is the flat, pointer-free shape an Event serializes to: live
// Dependencies/Successors pointers are replaced by id lists, which is all a
// snapshot or a graph-judge payload ever needs.
type wireEvent struct {
	EventID           string   `json:"event_id"`
	EventType         Type     `json:"event_type"`
	EventTime         *float64 `json:"event_time,omitempty"`
	EventRelativeTime *float64 `json:"event_relative_time,omitempty"`
	Dependencies      []string `json:"dependencies,omitempty"`
	Successors        []string `json:"successors,omitempty"`
	Action            *Action  `json:"action,omitempty"`
}

// MarshalJSON flattens the live dependency graph to id lists.
func (e *Event) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(wireEvent{
		EventID:           e.EventID,
		EventType:         e.EventType,
		EventTime:         e.EventTime,
		EventRelativeTime: e.EventRelativeTime,
		Dependencies:      e.DependencyIDs(),
		Successors:        e.SuccessorIDs(),
		Action:            e.Action,
	})
}

// UnmarshalJSON restores the scalar fields; Dependencies/Successors come
// back as unresolved id stubs (placeholders carrying only EventID) since the
// live pointer graph can only be rebuilt once every referenced event is
// known — callers rehydrating a full scenario should do that resolution
// themselves (see Graph.Rehydrate).
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := sonic.Unmarshal(data, &w); err != nil {
		return err
	}
	e.EventID = w.EventID
	e.EventType = w.EventType
	e.EventTime = w.EventTime
	e.EventRelativeTime = w.EventRelativeTime
	e.Action = w.Action
	e.Dependencies = stubEvents(w.Dependencies)
	e.Successors = stubEvents(w.Successors)
	return nil
}

func stubEvents(ids []string) []*Event {
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Event, len(ids))
	for i, id := range ids {
		out[i] = &Event{EventID: id}
	}
	return out
}

// MarshalJSON for CompletedEvent needs no pointer flattening — it already
// stores dependency/successor edges as ids — so the default struct tags
// suffice; it is declared here only for symmetry and future-proofing if
// fields change shape.
type wireCompletedEvent struct {
	EventID      string        `json:"event_id"`
	EventType    Type          `json:"event_type"`
	EventTime    *float64      `json:"event_time,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Successors   []string      `json:"successors,omitempty"`
	Action       *Action       `json:"action,omitempty"`
	Metadata     EventMetadata `json:"metadata"`
}

func (c *CompletedEvent) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(wireCompletedEvent{
		EventID:      c.EventID,
		EventType:    c.EventType,
		EventTime:    c.EventTime,
		Dependencies: c.Dependencies,
		Successors:   c.Successors,
		Action:       c.Action,
		Metadata:     c.Metadata,
	})
}

func (c *CompletedEvent) UnmarshalJSON(data []byte) error {
	var w wireCompletedEvent
	if err := sonic.Unmarshal(data, &w); err != nil {
		return err
	}
	c.EventID = w.EventID
	c.EventType = w.EventType
	c.EventTime = w.EventTime
	c.Dependencies = w.Dependencies
	c.Successors = w.Successors
	c.Action = w.Action
	c.Metadata = w.Metadata
	return nil
}

// wireCompletedOracleEvent is CompletedOracleEvent's flat wire shape. It
// cannot just embed CompletedEvent's own wire type and rely on promotion:
// *CompletedEvent already implements json.Marshaler, and a promoted
// MarshalJSON would take over for the whole struct and silently drop
// EventRelativeTime/TimeComparator, so this type is declared explicitly.
type wireCompletedOracleEvent struct {
	EventID           string         `json:"event_id"`
	EventType         Type           `json:"event_type"`
	EventTime         *float64       `json:"event_time,omitempty"`
	Dependencies      []string       `json:"dependencies,omitempty"`
	Successors        []string       `json:"successors,omitempty"`
	Action            *Action        `json:"action,omitempty"`
	Metadata          EventMetadata  `json:"metadata"`
	EventRelativeTime *float64       `json:"event_relative_time,omitempty"`
	TimeComparator    TimeComparator `json:"time_comparator,omitempty"`
}

func (c *CompletedOracleEvent) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(wireCompletedOracleEvent{
		EventID:           c.EventID,
		EventType:         c.EventType,
		EventTime:         c.EventTime,
		Dependencies:      c.Dependencies,
		Successors:        c.Successors,
		Action:            c.Action,
		Metadata:          c.Metadata,
		EventRelativeTime: c.EventRelativeTime,
		TimeComparator:    c.TimeComparator,
	})
}

func (c *CompletedOracleEvent) UnmarshalJSON(data []byte) error {
	var w wireCompletedOracleEvent
	if err := sonic.Unmarshal(data, &w); err != nil {
		return err
	}
	c.EventID = w.EventID
	c.EventType = w.EventType
	c.EventTime = w.EventTime
	c.Dependencies = w.Dependencies
	c.Successors = w.Successors
	c.Action = w.Action
	c.Metadata = w.Metadata
	c.EventRelativeTime = w.EventRelativeTime
	c.TimeComparator = w.TimeComparator
	return nil
}
