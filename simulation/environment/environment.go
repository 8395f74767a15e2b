// Package environment runs the single-threaded cooperative event loop: pop
// due events, execute or check them, append to the log, and resolve any
// successor whose dependencies are now all satisfied.
package environment

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/are-sim/aresim/simulation/app"
	"github.com/are-sim/aresim/simulation/clock"
	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/eventlog"
	"github.com/are-sim/aresim/telemetry"
)

// State is the environment's lifecycle stage.
type State string

const (
	StateSetup   State = "SETUP"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
	StateStopped State = "STOPPED"
	StateFailed  State = "FAILED"
)

// Config controls how the tick loop advances time and what mode it runs in.
type Config struct {
	StartTime            float64
	Duration             *float64
	TimeIncrementSeconds float64
	OracleMode           bool
	// QueueBasedLoop selects the normal queue-driven tick algorithm. When
	// false a step-per-tick variant is used instead, intended for
	// visualization where every tick boundary must be observable even with
	// nothing due.
	QueueBasedLoop bool
	// ToolAugmentation configures tool-call fault injection and
	// agent-facing name/description augmentation (spec §6
	// tool_augmentation_config). Nil disables both.
	ToolAugmentation *ToolAugmentationConfig
	// WaitForUserInputTimeoutSeconds is spec §6's
	// wait_for_user_input_timeout: the maximum time a live human operator
	// may be waited on for a reply before the scenario proceeds without
	// one. Accepted and threaded through for API parity with the
	// original's AgentUserInterface.send_user_message_to_agent, but never
	// acted on by the tick loop itself — this simulator has no live human
	// operator to pause for (spec §1 Non-goals: no real wall-clock
	// execution), so a configured timeout is inert here by design.
	WaitForUserInputTimeoutSeconds *float64
	// Seed makes tool-failure fault injection deterministic: the same seed
	// and scenario always inject failures at the same events (spec §8
	// determinism property).
	Seed int64
}

// ToolAugmentationConfig mirrors the original's `types.py
// ToolAugmentationConfig`: a probability of injecting a synthetic tool
// failure, and flags enabling agent-facing tool name/description
// augmentation (Registry.ToolSpecs).
type ToolAugmentationConfig struct {
	ToolFailureProbability           float64
	ApplyToolNameAugmentation        bool
	ApplyToolDescriptionAugmentation bool
}

// ValidationException is raised when a CONDITION or VALIDATION event times
// out without ever succeeding, a minefield triggers, or an inline agent
// validation rejects its target — the scenario cannot proceed.
type ValidationException struct {
	EventID string
	Reason  string
}

func (e *ValidationException) Error() string {
	return fmt.Sprintf("validation event %s failed: %s", e.EventID, e.Reason)
}

// Environment owns the clock, the app registry, and the future/past event
// queues, and drives the tick loop described by the scenario driver.
type Environment struct {
	mu    sync.Mutex
	state State
	cfg   Config

	clock    *clock.Clock
	registry *app.Registry
	queue    *eventlog.EventQueue
	log      *eventlog.EventLog

	conditions       map[string]*event.ConditionCheckEvent
	validations      map[string]*event.ValidationEvent
	agentValidations map[string][]*event.AgentValidationEvent
	hints            []event.Hint

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
	rng     *rand.Rand
}

// New constructs an Environment in SETUP state. A nil tracer defaults to a
// no-op Tracer, same as a nil logger or metrics.
func New(cfg Config, registry *app.Registry, logger telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) *Environment {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &Environment{
		state:            StateSetup,
		cfg:              cfg,
		clock:            clock.New(cfg.StartTime),
		registry:         registry,
		queue:            eventlog.NewQueue(),
		log:              eventlog.New(),
		conditions:       map[string]*event.ConditionCheckEvent{},
		validations:      map[string]*event.ValidationEvent{},
		agentValidations: map[string][]*event.AgentValidationEvent{},
		logger:           logger,
		metrics:          metrics,
		tracer:           tracer,
		rng:              rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // deterministic fault-injection replay, not security-sensitive
	}
}

// ToolSpecs returns the agent-facing tool listing every registered app
// exposes, applying the configured tool-name/description augmentation
// (spec §6 tool_augmentation_config).
func (e *Environment) ToolSpecs() []app.ToolSpec {
	var applyName, applyDesc bool
	if aug := e.cfg.ToolAugmentation; aug != nil {
		applyName, applyDesc = aug.ApplyToolNameAugmentation, aug.ApplyToolDescriptionAugmentation
	}
	return e.registry.ToolSpecs(applyName, applyDesc)
}

// Now implements event.Accessor.
func (e *Environment) Now() float64 { return e.clock.Now() }

// App implements event.Accessor, delegating to the registry.
func (e *Environment) App(name string) (any, bool) { return e.registry.App(name) }

// State returns the current lifecycle state.
func (e *Environment) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Log returns the append-only completed-event history.
func (e *Environment) Log() *eventlog.EventLog { return e.log }

// Queue returns the future-event queue, exposed for the scenario driver to
// seed the initial event set.
func (e *Environment) Queue() *eventlog.EventQueue { return e.queue }

// OracleMode reports whether the environment is running in oracle mode.
func (e *Environment) OracleMode() bool { return e.cfg.OracleMode }

// AddHint attaches a scenario hint, surfaced alongside the event log.
func (e *Environment) AddHint(h event.Hint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hints = append(e.hints, h)
}

// Hints returns every hint added so far, in insertion order.
func (e *Environment) Hints() []event.Hint {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]event.Hint, len(e.hints))
	copy(out, e.hints)
	return out
}

// TaskHint joins the TASK_HINT contents into the turn's user-task text the
// judge's subtask extractor consumes. Empty when the scenario carries no
// task hints.
func (e *Environment) TaskHint() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var parts []string
	for _, h := range e.hints {
		if h.HintType == event.HintTask && h.Content != "" {
			parts = append(parts, h.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// Snapshot captures every Stateful app's state keyed by app name.
func (e *Environment) Snapshot() map[string]map[string]any {
	return e.registry.SnapshotAll()
}

// RestoreSnapshot loads app state previously captured by Snapshot.
func (e *Environment) RestoreSnapshot(snapshot map[string]map[string]any) error {
	return e.registry.LoadAll(snapshot)
}

// Start transitions SETUP → RUNNING.
func (e *Environment) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateSetup {
		return fmt.Errorf("cannot start from state %s", e.state)
	}
	e.state = StateRunning
	return nil
}

// Pause transitions RUNNING → PAUSED.
func (e *Environment) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return fmt.Errorf("cannot pause from state %s", e.state)
	}
	e.state = StatePaused
	return nil
}

// Resume transitions PAUSED → RUNNING.
func (e *Environment) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return fmt.Errorf("cannot resume from state %s", e.state)
	}
	e.state = StateRunning
	return nil
}

// Stop transitions to STOPPED from any state.
func (e *Environment) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateStopped
	return nil
}

func (e *Environment) fail() {
	e.mu.Lock()
	e.state = StateFailed
	e.mu.Unlock()
}

// ScheduleEvent resolves e's absolute time, if possible, and enqueues it.
// It is an error to schedule an event whose dependencies are not all
// already resolved — the scenario driver only ever calls this once I1–I7
// have been checked.
func (e *Environment) ScheduleEvent(ev *event.Event) error {
	if !ev.IsReady() {
		return fmt.Errorf("event %s: cannot schedule, dependencies unresolved", ev.EventID)
	}
	if err := ev.ComputeAbsoluteTime(); err != nil {
		return err
	}
	e.queue.Put(ev)
	return nil
}

// ScheduleCondition registers and enqueues a condition-check event.
func (e *Environment) ScheduleCondition(c *event.ConditionCheckEvent) error {
	if c.EventTime == nil {
		return fmt.Errorf("condition %s: no event time set", c.EventID)
	}
	e.conditions[c.EventID] = c
	e.queue.Put(&event.Event{EventID: c.EventID, EventType: event.TypeCondition, EventTime: c.EventTime})
	return nil
}

// ScheduleAgentValidation registers an inline validator to run the moment
// its target agent event completes.
func (e *Environment) ScheduleAgentValidation(av *event.AgentValidationEvent) error {
	if av.TargetEventID == "" {
		return fmt.Errorf("agent validation %s: no target event", av.EventID)
	}
	e.agentValidations[av.TargetEventID] = append(e.agentValidations[av.TargetEventID], av)
	return nil
}

// ScheduleValidation registers and enqueues a validation event.
func (e *Environment) ScheduleValidation(v *event.ValidationEvent) error {
	if v.EventTime == nil {
		return fmt.Errorf("validation %s: no event time set", v.EventID)
	}
	e.validations[v.EventID] = v
	e.queue.Put(&event.Event{EventID: v.EventID, EventType: event.TypeValidation, EventTime: v.EventTime})
	return nil
}

// Run drives the tick loop until the environment stops, the configured
// duration elapses, or an unrecoverable error occurs (e.g. a timed-out
// condition or validation).
func (e *Environment) Run(ctx context.Context) error {
	if err := e.Start(); err != nil {
		return err
	}
	for {
		done, err := e.Step(ctx)
		if err != nil || done {
			return err
		}
	}
}

// Step performs one loop iteration: process everything due at the current
// time, then advance the clock. It returns true once the run is over.
// Exposed so a visualization front end can drive the clock one observable
// tick at a time when QueueBasedLoop is false.
func (e *Environment) Step(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, err
	}
	if e.State() != StateRunning {
		return true, nil
	}
	if e.cfg.Duration != nil && e.clock.Now() >= e.cfg.StartTime+*e.cfg.Duration {
		return true, e.Stop()
	}
	stopped, err := e.tick(ctx)
	if err != nil {
		e.fail()
		return true, err
	}
	if stopped {
		return true, nil
	}
	e.advanceClock()
	return false, nil
}

// advanceClock moves virtual time forward. The queue-based loop skips idle
// stretches: when the next queued event is more than one increment away it
// jumps ahead in whole-tick multiples, so the clock still only ever lands
// on tick boundaries and the log is identical to the step-per-tick run.
// The step-per-tick variant (QueueBasedLoop false) always advances exactly
// one increment so every tick boundary is observable via Step.
func (e *Environment) advanceClock() {
	incr := e.cfg.TimeIncrementSeconds
	if !e.cfg.QueueBasedLoop {
		e.clock.Advance(incr)
		return
	}
	next, ok := e.queue.Peek()
	if !ok || next.EventTime == nil {
		e.clock.Advance(incr)
		return
	}
	if gap := *next.EventTime - e.clock.Now(); gap > incr {
		e.clock.Advance(math.Floor(gap/incr) * incr)
		return
	}
	e.clock.Advance(incr)
}

// tick processes every event due at the current time, in (time, id) order.
// It returns true if a STOP event ended the run. One span covers the whole
// tick, regardless of how many events it processes.
func (e *Environment) tick(ctx context.Context) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "aresim.tick")
	defer span.End()

	due := e.queue.PopEventsToProcess(e.clock.Now())
	for _, ev := range due {
		switch ev.EventType {
		case event.TypeStop:
			_ = e.Stop()
			return true, nil
		case event.TypeCondition:
			if err := e.tickCondition(ctx, ev); err != nil {
				return false, err
			}
		case event.TypeValidation:
			if err := e.tickValidation(ctx, ev); err != nil {
				return false, err
			}
		default:
			if err := e.tickAction(ctx, ev); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

func (e *Environment) tickAction(ctx context.Context, ev *event.Event) error {
	if ev.Action != nil {
		resolved, err := event.ResolveArgPlaceholders(ev.Action.Args, e.log.Get)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.EventID, err)
		}
		ev.Action.ResolvedArgs = resolved
	}
	completed, err := ev.Execute(ctx, e.registry)
	if err != nil {
		return fmt.Errorf("event %s: %w", ev.EventID, err)
	}
	e.injectToolFailure(ev, completed)
	e.log.Put(completed)
	e.metrics.IncCounter("aresim.events.completed", 1.0, "event_type", string(ev.EventType))
	if !completed.Metadata.Failed() {
		if err := e.runAgentValidations(ctx, completed); err != nil {
			return err
		}
		e.resolveSuccessors(ev.Successors)
	}
	return nil
}

// runAgentValidations evaluates every AgentValidationEvent registered
// against the just-completed event. A validator returning false fails the
// run the same way a triggered minefield does.
func (e *Environment) runAgentValidations(ctx context.Context, completed *event.CompletedEvent) error {
	avs := e.agentValidations[completed.EventID]
	if len(avs) == 0 {
		return nil
	}
	delete(e.agentValidations, completed.EventID)
	for _, av := range avs {
		ok, err := av.Validate(ctx, e, completed)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationException{EventID: av.EventID, Reason: fmt.Sprintf("agent event %s failed inline validation", completed.EventID)}
		}
	}
	return nil
}

// injectToolFailure implements spec §6's tool_augmentation_config fault
// injection: with the configured probability, a tool call that actually
// succeeded is recorded as having failed instead. It only ever touches
// completed.Metadata — the event DAG, successors, and dependency
// resolution are untouched, so an injected failure propagates exactly like
// a genuine one (no successors scheduled this tick).
func (e *Environment) injectToolFailure(ev *event.Event, completed *event.CompletedEvent) {
	aug := e.cfg.ToolAugmentation
	if aug == nil || aug.ToolFailureProbability <= 0 || ev.Action == nil || completed.Metadata.Failed() {
		return
	}
	if e.rng.Float64() >= aug.ToolFailureProbability {
		return
	}
	completed.Metadata = event.EventMetadata{
		Completed: false,
		Exception: fmt.Sprintf("injected tool failure for %s", ev.Action.ToolName()),
	}
}

func (e *Environment) tickCondition(ctx context.Context, stub *event.Event) error {
	cond, ok := e.conditions[stub.EventID]
	if !ok {
		return fmt.Errorf("condition %s: not registered", stub.EventID)
	}
	now := e.clock.Now()
	ok2, err := cond.Check(ctx, e)
	if err != nil {
		return fmt.Errorf("condition %s: %w", stub.EventID, err)
	}
	if ok2 {
		delete(e.conditions, stub.EventID)
		cond.Release(now)
		e.resolveSuccessors(cond.Successors)
		return nil
	}
	if cond.TimedOut() {
		return &ValidationException{EventID: stub.EventID, Reason: "condition check never succeeded"}
	}
	delete(e.conditions, stub.EventID)
	next := cond.Reschedule(now, e.cfg.TimeIncrementSeconds)
	e.conditions[next.EventID] = next
	e.queue.Put(&event.Event{EventID: next.EventID, EventType: event.TypeCondition, EventTime: next.EventTime})
	return nil
}

func (e *Environment) tickValidation(ctx context.Context, stub *event.Event) error {
	v, ok := e.validations[stub.EventID]
	if !ok {
		return fmt.Errorf("validation %s: not registered", stub.EventID)
	}
	now := e.clock.Now()
	res, err := v.Check(ctx, e)
	if err != nil {
		return fmt.Errorf("validation %s: %w", stub.EventID, err)
	}
	if res.TriggeredMinefield != "" {
		return &ValidationException{EventID: stub.EventID, Reason: "minefield " + res.TriggeredMinefield + " triggered"}
	}
	if res.Success {
		delete(e.validations, stub.EventID)
		v.Release(now)
		e.resolveSuccessors(v.Successors)
		return nil
	}
	if v.TimedOut() {
		return &ValidationException{EventID: stub.EventID, Reason: "not all milestones achieved before timeout"}
	}
	delete(e.validations, stub.EventID)
	next := v.Reschedule(now, e.cfg.TimeIncrementSeconds)
	e.validations[next.EventID] = next
	e.queue.Put(&event.Event{EventID: next.EventID, EventType: event.TypeValidation, EventTime: next.EventTime})
	return nil
}

func (e *Environment) resolveSuccessors(successors []*event.Event) {
	for _, s := range successors {
		if !s.IsReady() {
			continue
		}
		if err := s.ComputeAbsoluteTime(); err != nil {
			continue
		}
		e.queue.Put(s)
	}
}

var _ event.Accessor = (*Environment)(nil)
