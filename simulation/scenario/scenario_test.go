package scenario_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/scenario"
)

func TestAddEventBuildsDependencyChain(t *testing.T) {
	s := scenario.New()
	user, err := s.AddEvent(scenario.AddEventParams{EventID: "u1", EventType: event.TypeUser, EventTime: floatp(0)})
	require.NoError(t, err)

	agent, err := s.AddEvent(scenario.AddEventParams{
		EventID:        "a1",
		EventType:      event.TypeAgent,
		AppName:        "FileSystem",
		FunctionName:   "find_file",
		PredecessorIDs: []string{"u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, agent.DependencyIDs())
	assert.Equal(t, []string{"a1"}, user.SuccessorIDs())
}

func TestAddEventRejectsAgentWithoutDependency(t *testing.T) {
	s := scenario.New()
	_, err := s.AddEvent(scenario.AddEventParams{
		EventID:      "a1",
		EventType:    event.TypeAgent,
		AppName:      "FileSystem",
		FunctionName: "find_file",
	})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Graph().Len())
}

func TestAddEventRejectsUnknownPredecessor(t *testing.T) {
	s := scenario.New()
	_, err := s.AddEvent(scenario.AddEventParams{
		EventID:        "a1",
		EventType:      event.TypeAgent,
		PredecessorIDs: []string{"missing"},
	})
	assert.Error(t, err)
}

func TestEnvEventRequiresExactlyOneValidDependency(t *testing.T) {
	s := scenario.New()
	_, err := s.AddEvent(scenario.AddEventParams{EventID: "u1", EventType: event.TypeUser, EventTime: floatp(0)})
	require.NoError(t, err)
	_, err = s.AddEvent(scenario.AddEventParams{EventID: "u2", EventType: event.TypeUser, EventTime: floatp(0)})
	require.NoError(t, err)

	_, err = s.AddEvent(scenario.AddEventParams{
		EventID:        "env1",
		EventType:      event.TypeEnv,
		PredecessorIDs: []string{"u1", "u2"},
	})
	assert.Error(t, err)

	envEv, err := s.AddEvent(scenario.AddEventParams{
		EventID:        "env2",
		EventType:      event.TypeEnv,
		PredecessorIDs: []string{"u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, envEv.DependencyIDs())
}

func TestTurnIndexAdvancesAfterSendMessageToUser(t *testing.T) {
	s := scenario.New()
	_, err := s.AddEvent(scenario.AddEventParams{EventID: "u1", EventType: event.TypeUser, EventTime: floatp(0)})
	require.NoError(t, err)
	_, err = s.AddEvent(scenario.AddEventParams{
		EventID:           "reply1",
		EventType:         event.TypeAgent,
		AppName:           "AgentUserInterface",
		FunctionName:      "send_message_to_user",
		PredecessorIDs:    []string{"u1"},
		EventRelativeTime: floatp(1),
	})
	require.NoError(t, err)
	_, err = s.AddEvent(scenario.AddEventParams{EventID: "u2", EventType: event.TypeUser, PredecessorIDs: []string{"reply1"}, EventRelativeTime: floatp(1)})
	require.NoError(t, err)

	turns := s.TurnIndex()
	assert.Equal(t, 0, turns["u1"])
	assert.Equal(t, 0, turns["reply1"])
	assert.Equal(t, 1, turns["u2"])
}

func TestEditEventRollsBackOnInvariantViolation(t *testing.T) {
	s := scenario.New()
	_, err := s.AddEvent(scenario.AddEventParams{EventID: "u1", EventType: event.TypeUser, EventTime: floatp(0)})
	require.NoError(t, err)
	agent, err := s.AddEvent(scenario.AddEventParams{
		EventID:        "a1",
		EventType:      event.TypeAgent,
		PredecessorIDs: []string{"u1"},
	})
	require.NoError(t, err)

	err = s.EditEvent("a1", func(e *event.Event) {
		e.Dependencies = nil
	})
	assert.Error(t, err)
	assert.Len(t, agent.Dependencies, 1)
}

func TestDeleteEventUnlinksBothDirections(t *testing.T) {
	s := scenario.New()
	user, err := s.AddEvent(scenario.AddEventParams{EventID: "u1", EventType: event.TypeUser, EventTime: floatp(0)})
	require.NoError(t, err)
	_, err = s.AddEvent(scenario.AddEventParams{
		EventID:        "a1",
		EventType:      event.TypeAgent,
		PredecessorIDs: []string{"u1"},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEvent("a1"))
	assert.Equal(t, 1, s.Graph().Len())
	assert.Empty(t, user.SuccessorIDs())
}

func TestDeleteEventRollsBackOnInvariantViolation(t *testing.T) {
	s := scenario.New()
	user, err := s.AddEvent(scenario.AddEventParams{EventID: "u1", EventType: event.TypeUser, EventTime: floatp(0)})
	require.NoError(t, err)
	agent, err := s.AddEvent(scenario.AddEventParams{
		EventID:        "a1",
		EventType:      event.TypeAgent,
		PredecessorIDs: []string{"u1"},
	})
	require.NoError(t, err)

	// Deleting u1 would leave a1, an AGENT event, with no dependency.
	err = s.DeleteEvent("u1")
	assert.Error(t, err)
	assert.Equal(t, 2, s.Graph().Len())
	assert.Equal(t, []string{"u1"}, agent.DependencyIDs())
	assert.Equal(t, []string{"a1"}, user.SuccessorIDs())
}

func TestDeleteEventUnknownID(t *testing.T) {
	s := scenario.New()
	assert.Error(t, s.DeleteEvent("missing"))
}

func floatp(f float64) *float64 { return &f }
