package event_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/simulation/event"
)

func TestValidationEventSucceedsWhenAllMilestonesHit(t *testing.T) {
	hitA, hitB := false, false
	v := event.NewValidationEvent(map[string]event.MilestoneFunc{
		"a": func(ctx context.Context, env event.Accessor) (bool, error) { return hitA, nil },
		"b": func(ctx context.Context, env event.Accessor) (bool, error) { return hitB, nil },
	}, nil, 1, nil)

	res, err := v.Check(context.Background(), fakeAccessor{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ElementsMatch(t, []string{"a", "b"}, res.PendingMilestones)

	hitA = true
	res, err = v.Check(context.Background(), fakeAccessor{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ElementsMatch(t, []string{"a"}, res.AchievedMilestones)

	hitB = true
	res, err = v.Check(context.Background(), fakeAccessor{})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestValidationEventFailsOnMinefield(t *testing.T) {
	v := event.NewValidationEvent(
		map[string]event.MilestoneFunc{"a": func(ctx context.Context, env event.Accessor) (bool, error) { return true, nil }},
		map[string]event.MinefieldFunc{"forbidden": func(ctx context.Context, env event.Accessor) (bool, error) { return true, nil }},
		1, nil,
	)

	res, err := v.Check(context.Background(), fakeAccessor{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "forbidden", res.TriggeredMinefield)
}

func TestValidationEventRescheduleCarriesAchievedState(t *testing.T) {
	v := event.NewValidationEvent(map[string]event.MilestoneFunc{
		"a": func(ctx context.Context, env event.Accessor) (bool, error) { return true, nil },
	}, nil, 3, nil).AtAbsoluteTime(0)

	_, err := v.Check(context.Background(), fakeAccessor{})
	require.NoError(t, err)

	// Period is in ticks: 3 ticks at a 0.5s quantum is 1.5s of virtual time.
	next := v.Reschedule(5, 0.5)
	assert.Equal(t, 6.5, *next.EventTime)
	res, err := next.Check(context.Background(), fakeAccessor{})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestAgentValidationEventRunsAllValidators(t *testing.T) {
	var seen []string
	av := event.NewAgentValidationEvent("target",
		func(ctx context.Context, env event.Accessor, completed *event.CompletedEvent) (bool, error) {
			seen = append(seen, "first")
			return true, nil
		},
		func(ctx context.Context, env event.Accessor, completed *event.CompletedEvent) (bool, error) {
			seen = append(seen, "second")
			return completed.ToolName() == "FileSystem__find_file", nil
		},
	)

	completed := &event.CompletedEvent{Action: &event.Action{AppName: "FileSystem", FunctionName: "find_file"}}
	ok, err := av.Validate(context.Background(), fakeAccessor{}, completed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestAgentValidationEventFailsFast(t *testing.T) {
	calledSecond := false
	av := event.NewAgentValidationEvent("target",
		func(ctx context.Context, env event.Accessor, completed *event.CompletedEvent) (bool, error) {
			return false, nil
		},
		func(ctx context.Context, env event.Accessor, completed *event.CompletedEvent) (bool, error) {
			calledSecond = true
			return true, nil
		},
	)

	ok, err := av.Validate(context.Background(), fakeAccessor{}, &event.CompletedEvent{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, calledSecond)
}
