package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ConditionFunc is a predicate over the environment, re-evaluated on a
// schedule until it returns true or the condition event times out.
type ConditionFunc func(ctx context.Context, env Accessor) (bool, error)

// ConditionCheckEvent blocks its successors until ConditionFunc reports
// true. The environment re-evaluates it every ScheduleEveryTicks ticks and,
// if still false, replaces itself in the queue with a fresh check event
// (Reschedule) rather than mutating EventTime in place. Check attempts are
// not written to the event log.
type ConditionCheckEvent struct {
	EventID            string
	EventTime          *float64
	Dependencies       []*Event
	Successors         []*Event
	Condition          ConditionFunc
	ScheduleEveryTicks int
	Timeout            *int
	checkCount         int
}

// NewConditionCheck constructs a condition event evaluated every
// scheduleEveryTicks ticks, optionally bounded by a maximum number of
// attempts (timeout == nil means unbounded).
func NewConditionCheck(cond ConditionFunc, scheduleEveryTicks int, timeout *int) *ConditionCheckEvent {
	return &ConditionCheckEvent{
		EventID:            fmt.Sprintf("%s_%s", TypeCondition, uuid.NewString()),
		Condition:          cond,
		ScheduleEveryTicks: scheduleEveryTicks,
		Timeout:            timeout,
	}
}

func (c *ConditionCheckEvent) WithID(id string) *ConditionCheckEvent {
	c.EventID = id
	return c
}

func (c *ConditionCheckEvent) AtAbsoluteTime(t float64) *ConditionCheckEvent {
	c.EventTime = &t
	return c
}

func (c *ConditionCheckEvent) FollowedBy(succs ...*Event) *ConditionCheckEvent {
	for _, s := range succs {
		c.Successors = append(c.Successors, s)
	}
	return c
}

// TimedOut reports whether the condition has already been checked Timeout
// times without succeeding.
func (c *ConditionCheckEvent) TimedOut() bool {
	return c.Timeout != nil && c.checkCount >= *c.Timeout
}

// Check evaluates the predicate once, counting the attempt.
func (c *ConditionCheckEvent) Check(ctx context.Context, env Accessor) (bool, error) {
	c.checkCount++
	return c.Condition(ctx, env)
}

// Reschedule produces the next check event, scheduled ScheduleEveryTicks
// tick quanta after now (tickIncrement is the loop's
// time_increment_in_seconds), carrying the same predicate, remaining
// budget and successors. Every successor's Dependencies slice is repointed
// from c to the new event so the DAG stays internally consistent.
func (c *ConditionCheckEvent) Reschedule(now, tickIncrement float64) *ConditionCheckEvent {
	next := &ConditionCheckEvent{
		EventID:            fmt.Sprintf("%s_%s", TypeCondition, uuid.NewString()),
		Condition:          c.Condition,
		ScheduleEveryTicks: c.ScheduleEveryTicks,
		Timeout:            c.Timeout,
		checkCount:         c.checkCount,
		Successors:         c.Successors,
	}
	t := now + float64(c.ScheduleEveryTicks)*tickIncrement
	next.EventTime = &t
	for _, s := range next.Successors {
		for i, dep := range s.Dependencies {
			if dep.EventID == c.EventID {
				s.Dependencies[i] = &Event{EventID: next.EventID, EventType: TypeCondition}
			}
		}
	}
	return next
}

// Release marks every successor as no longer waiting on this check, by
// resolving their pending dependency to the given completion time. Called
// once Check reports true.
func (c *ConditionCheckEvent) Release(at float64) {
	for _, s := range c.Successors {
		for i, dep := range s.Dependencies {
			if dep.EventID == c.EventID {
				s.Dependencies[i] = &Event{EventID: c.EventID, EventType: TypeCondition, EventTime: &at}
			}
		}
	}
}
