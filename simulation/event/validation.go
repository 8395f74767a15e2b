package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MilestoneFunc reports whether a required piece of scenario progress has
// been reached. A ValidationEvent succeeds once every milestone has fired
// at least once.
type MilestoneFunc func(ctx context.Context, env Accessor) (bool, error)

// MinefieldFunc reports whether a forbidden condition has occurred. A
// single true minefield fails the ValidationEvent immediately, regardless
// of milestone progress.
type MinefieldFunc func(ctx context.Context, env Accessor) (bool, error)

// ValidationResult summarizes one Check of a ValidationEvent.
type ValidationResult struct {
	Success            bool
	TriggeredMinefield string
	AchievedMilestones []string
	PendingMilestones  []string
}

// ValidationEvent periodically samples a set of milestones (must all
// eventually hold) and minefields (must never hold) over the lifetime of a
// scenario run, independent of any single tool call. Scheduling mirrors
// ConditionCheckEvent: a failed or inconclusive Check produces a
// Reschedule'd successor rather than mutating in place.
type ValidationEvent struct {
	EventID            string
	EventTime          *float64
	Successors         []*Event
	Milestones         map[string]MilestoneFunc
	Minefields         map[string]MinefieldFunc
	ScheduleEveryTicks int
	Timeout            *int
	checkCount         int
	achieved           map[string]bool
}

// NewValidationEvent constructs a validation event over the given milestones
// and minefields, re-checked every scheduleEveryTicks ticks.
func NewValidationEvent(milestones map[string]MilestoneFunc, minefields map[string]MinefieldFunc, scheduleEveryTicks int, timeout *int) *ValidationEvent {
	return &ValidationEvent{
		EventID:            fmt.Sprintf("%s_%s", TypeValidation, uuid.NewString()),
		Milestones:         milestones,
		Minefields:         minefields,
		ScheduleEveryTicks: scheduleEveryTicks,
		Timeout:            timeout,
		achieved:           map[string]bool{},
	}
}

func (v *ValidationEvent) WithID(id string) *ValidationEvent {
	v.EventID = id
	return v
}

func (v *ValidationEvent) AtAbsoluteTime(t float64) *ValidationEvent {
	v.EventTime = &t
	return v
}

func (v *ValidationEvent) FollowedBy(succs ...*Event) *ValidationEvent {
	v.Successors = append(v.Successors, succs...)
	return v
}

// TimedOut reports whether the event has already been checked Timeout times
// without every milestone having been achieved.
func (v *ValidationEvent) TimedOut() bool {
	return v.Timeout != nil && v.checkCount >= *v.Timeout
}

// Check samples every minefield, then every not-yet-achieved milestone. A
// triggered minefield short-circuits as an immediate failure; otherwise
// Success reports whether all milestones are now achieved.
func (v *ValidationEvent) Check(ctx context.Context, env Accessor) (*ValidationResult, error) {
	v.checkCount++
	for name, mine := range v.Minefields {
		hit, err := mine(ctx, env)
		if err != nil {
			return nil, fmt.Errorf("validation %s: minefield %s: %w", v.EventID, name, err)
		}
		if hit {
			return &ValidationResult{
				Success:            false,
				TriggeredMinefield: name,
				AchievedMilestones: v.achievedNames(),
				PendingMilestones:  v.pendingNames(),
			}, nil
		}
	}
	for name, ms := range v.Milestones {
		if v.achieved[name] {
			continue
		}
		ok, err := ms(ctx, env)
		if err != nil {
			return nil, fmt.Errorf("validation %s: milestone %s: %w", v.EventID, name, err)
		}
		if ok {
			if v.achieved == nil {
				v.achieved = map[string]bool{}
			}
			v.achieved[name] = true
		}
	}
	return &ValidationResult{
		Success:            len(v.pendingNames()) == 0,
		AchievedMilestones: v.achievedNames(),
		PendingMilestones:  v.pendingNames(),
	}, nil
}

func (v *ValidationEvent) achievedNames() []string {
	var out []string
	for name := range v.Milestones {
		if v.achieved[name] {
			out = append(out, name)
		}
	}
	return out
}

func (v *ValidationEvent) pendingNames() []string {
	var out []string
	for name := range v.Milestones {
		if !v.achieved[name] {
			out = append(out, name)
		}
	}
	return out
}

// Reschedule produces the next periodic check, ScheduleEveryTicks tick
// quanta after now, carrying forward achieved milestone state and the
// attempt budget.
func (v *ValidationEvent) Reschedule(now, tickIncrement float64) *ValidationEvent {
	next := &ValidationEvent{
		EventID:            fmt.Sprintf("%s_%s", TypeValidation, uuid.NewString()),
		Milestones:         v.Milestones,
		Minefields:         v.Minefields,
		ScheduleEveryTicks: v.ScheduleEveryTicks,
		Timeout:            v.Timeout,
		checkCount:         v.checkCount,
		achieved:           v.achieved,
		Successors:         v.Successors,
	}
	t := now + float64(v.ScheduleEveryTicks)*tickIncrement
	next.EventTime = &t
	for _, s := range next.Successors {
		for i, dep := range s.Dependencies {
			if dep.EventID == v.EventID {
				s.Dependencies[i] = &Event{EventID: next.EventID, EventType: TypeValidation}
			}
		}
	}
	return next
}

// Release marks every successor as no longer waiting on this validation, by
// resolving their pending dependency to the given completion time. Called
// once Check reports success.
func (v *ValidationEvent) Release(at float64) {
	for _, s := range v.Successors {
		for i, dep := range s.Dependencies {
			if dep.EventID == v.EventID {
				s.Dependencies[i] = &Event{EventID: v.EventID, EventType: TypeValidation, EventTime: &at}
			}
		}
	}
}

// AgentActionValidator inspects a single completed AGENT event inline, as
// soon as it runs, rather than on a timer. Used for checks like "this
// specific tool call's arguments must satisfy X".
type AgentActionValidator func(ctx context.Context, env Accessor, completed *CompletedEvent) (bool, error)

// AgentValidationEvent attaches one or more AgentActionValidators to a
// specific agent event, evaluated the moment that event completes.
type AgentValidationEvent struct {
	EventID       string
	TargetEventID string
	Validators    []AgentActionValidator
}

// NewAgentValidationEvent constructs a validator bound to targetEventID.
func NewAgentValidationEvent(targetEventID string, validators ...AgentActionValidator) *AgentValidationEvent {
	return &AgentValidationEvent{
		EventID:       fmt.Sprintf("%s_%s", TypeValidation, uuid.NewString()),
		TargetEventID: targetEventID,
		Validators:    validators,
	}
}

// Validate runs every validator against completed, failing fast on the
// first that returns false or errors.
func (a *AgentValidationEvent) Validate(ctx context.Context, env Accessor, completed *CompletedEvent) (bool, error) {
	for _, v := range a.Validators {
		ok, err := v(ctx, env, completed)
		if err != nil {
			return false, fmt.Errorf("agent validation %s: %w", a.EventID, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
