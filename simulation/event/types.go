// Package event defines the typed event model: the sum type of event
// variants (USER, ENV, AGENT, CONDITION, VALIDATION, STOP), their DAG edges,
// timing resolution, and (de)serialization. It deliberately knows nothing
// about how apps execute their tools beyond the narrow Dispatcher contract,
// and nothing about the event loop that drives it.
package event

import "fmt"

// Type is the event-variant discriminator. Spec §3.
type Type string

const (
	TypeUser       Type = "USER"
	TypeEnv        Type = "ENV"
	TypeAgent      Type = "AGENT"
	TypeCondition  Type = "CONDITION"
	TypeValidation Type = "VALIDATION"
	TypeStop       Type = "STOP"
)

// TimeComparator selects how the judge compares an oracle event's relative
// or absolute time against the matching agent event's. Spec §3.
type TimeComparator string

const (
	ComparatorEqual       TimeComparator = "EQUAL"
	ComparatorLessThan    TimeComparator = "LESS_THAN"
	ComparatorGreaterThan TimeComparator = "GREATER_THAN"
)

// OperationType tags a tool call as read-only or state-mutating. The judge's
// tool-call-count check and the graph judge's per-turn event filter only
// consider WRITE operations (spec §4.10 step 1).
type OperationType string

const (
	OperationRead  OperationType = "READ"
	OperationWrite OperationType = "WRITE"
)

// Action is the callable bundle attached to a non-condition, non-validation
// event: which app, which tool, and the arguments to call it with. Actions
// are dispatched through a Dispatcher rather than holding a Go func value
// directly, so they stay a plain, serializable data value — the dynamic
// dispatch lives in the app registry (spec §4.9).
type Action struct {
	AppName       string
	FunctionName  string
	Args          map[string]any
	ResolvedArgs  map[string]any
	OperationType OperationType
	ActionID      string
}

// EffectiveArgs returns ResolvedArgs when non-empty, else Args — the same
// precedence the original Action.execute() and CompletedEvent.get_args()
// apply.
func (a *Action) EffectiveArgs() map[string]any {
	if a == nil {
		return nil
	}
	if len(a.ResolvedArgs) > 0 {
		return a.ResolvedArgs
	}
	return a.Args
}

func (a *Action) String() string {
	if a == nil {
		return "<nil action>"
	}
	return fmt.Sprintf("%s.%s(%v)", a.AppName, a.FunctionName, a.Args)
}

// ToolName is the App__Function identifier the judge keys checkers on, e.g.
// "FileSystem__find_file".
func (a *Action) ToolName() string {
	if a == nil {
		return "NoApp__NoFunction"
	}
	app, fn := a.AppName, a.FunctionName
	if app == "" {
		app = "NoApp"
	}
	if fn == "" {
		fn = "NoFunction"
	}
	return app + "__" + fn
}

// EventMetadata carries the outcome of a completed event's execution. Spec §3.
type EventMetadata struct {
	ReturnValue         any
	Exception           string
	ExceptionStackTrace string
	Completed           bool
}

// Failed reports whether executing the event raised an exception.
func (m EventMetadata) Failed() bool { return m.Exception != "" }

// ActionDescription is a human/LLM-readable rendering of an oracle event's
// action, kept alongside OracleEvent for judge diagnostics and the
// in-context judge's bullet descriptions.
type ActionDescription struct {
	App      string
	Function string
	Args     []ArgDescription
}

// ArgDescription is one rendered (name, value) pair of an ActionDescription.
type ArgDescription struct {
	Name      string
	Value     string
	ValueType string
}
