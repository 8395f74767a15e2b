package graphjudge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/validation/eventjudge"
	"github.com/are-sim/aresim/simulation/validation/graphjudge"
	"github.com/are-sim/aresim/simulation/validation/tooljudge"
)

func newJudge() *graphjudge.Judge {
	ej := eventjudge.New(eventjudge.DefaultTolerances(), tooljudge.New(tooljudge.Config{}))
	return graphjudge.New(graphjudge.Config{}, ej, nil)
}

func at(t float64) *float64 { return &t }

func oracleEvent(id string, evType event.Type, depIDs []string, evTime float64, app, fn string, args map[string]any, opType event.OperationType) *event.CompletedOracleEvent {
	rel := 0.0
	return &event.CompletedOracleEvent{
		CompletedEvent: event.CompletedEvent{
			EventID:      id,
			EventType:    evType,
			EventTime:    at(evTime),
			Dependencies: depIDs,
			Action:       &event.Action{AppName: app, FunctionName: fn, Args: args, OperationType: opType},
		},
		EventRelativeTime: &rel,
	}
}

func agentEvent(id string, evTime float64, app, fn string, args map[string]any, opType event.OperationType) *event.CompletedEvent {
	return &event.CompletedEvent{
		EventID:   id,
		EventType: event.TypeAgent,
		EventTime: at(evTime),
		Action:    &event.Action{AppName: app, FunctionName: fn, Args: args, OperationType: opType},
	}
}

func TestReflexiveJudgmentSucceeds(t *testing.T) {
	oracle := []*event.CompletedOracleEvent{
		oracleEvent("user_1", event.TypeUser, nil, 0, "", "", nil, ""),
		oracleEvent("agent_1", event.TypeAgent, []string{"user_1"}, 1, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "llama.jpg"}, event.OperationWrite),
	}
	agentLog := []*event.CompletedEvent{
		{EventID: "user_1", EventType: event.TypeUser, EventTime: at(0)},
		agentEvent("agent_1", 1, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "llama.jpg"}, event.OperationWrite),
	}

	j := newJudge()
	judgment, err := j.Judge(context.Background(), oracle, agentLog, "")
	require.NoError(t, err)
	assert.True(t, judgment.Success, judgment.Failure)
	assert.Equal(t, "agent_1", judgment.AgentIDToOracleID["agent_1"])
}

func TestExtraToolCallsAreTolerated(t *testing.T) {
	oracle := []*event.CompletedOracleEvent{
		oracleEvent("user_1", event.TypeUser, nil, 0, "", "", nil, ""),
		oracleEvent("agent_1", event.TypeAgent, []string{"user_1"}, 1, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "llama.jpg"}, event.OperationWrite),
	}
	agentLog := []*event.CompletedEvent{
		{EventID: "user_1", EventType: event.TypeUser, EventTime: at(0)},
		agentEvent("agent_0", 0.5, "FileSystem", "read_file", map[string]any{"path": "a.txt"}, event.OperationRead),
		agentEvent("agent_1", 1, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "llama.jpg"}, event.OperationWrite),
	}

	j := newJudge()
	judgment, err := j.Judge(context.Background(), oracle, agentLog, "")
	require.NoError(t, err)
	assert.True(t, judgment.Success, judgment.Failure)
}

func TestToolCallCountMismatchFails(t *testing.T) {
	oracle := []*event.CompletedOracleEvent{
		oracleEvent("user_1", event.TypeUser, nil, 0, "", "", nil, ""),
		oracleEvent("agent_1", event.TypeAgent, []string{"user_1"}, 1, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "llama.jpg"}, event.OperationWrite),
	}
	agentLog := []*event.CompletedEvent{
		{EventID: "user_1", EventType: event.TypeUser, EventTime: at(0)},
	}

	j := newJudge()
	judgment, err := j.Judge(context.Background(), oracle, agentLog, "")
	require.NoError(t, err)
	assert.False(t, judgment.Success)
	assert.Equal(t, graphjudge.FailureToolCallCounts, judgment.FailureCategory)
}

func TestExtraSendMessageToUserTolerance(t *testing.T) {
	oracle := []*event.CompletedOracleEvent{
		oracleEvent("user_1", event.TypeUser, nil, 0, "", "", nil, ""),
		oracleEvent("agent_1", event.TypeAgent, []string{"user_1"}, 1, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "llama.jpg"}, event.OperationWrite),
	}
	agentLog := []*event.CompletedEvent{
		{EventID: "user_1", EventType: event.TypeUser, EventTime: at(0)},
		agentEvent("agent_1", 1, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "llama.jpg"}, event.OperationWrite),
		agentEvent("agent_2", 2, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "anything else?"}, event.OperationWrite),
	}

	ej := eventjudge.New(eventjudge.DefaultTolerances(), tooljudge.New(tooljudge.Config{}))

	// The default tolerance of one extra user-facing message accepts the
	// second send.
	judgment, err := graphjudge.New(graphjudge.Config{}, ej, nil).Judge(context.Background(), oracle, agentLog, "")
	require.NoError(t, err)
	assert.True(t, judgment.Success, judgment.Failure)

	// An explicit zero tolerance rejects it with a count failure.
	zero := 0
	judgment, err = graphjudge.New(graphjudge.Config{ExtraSendMessageToUserAllowed: &zero}, ej, nil).Judge(context.Background(), oracle, agentLog, "")
	require.NoError(t, err)
	assert.False(t, judgment.Success)
	assert.Equal(t, graphjudge.FailureToolCallCounts, judgment.FailureCategory)
}

func TestCausalityIsEnforced(t *testing.T) {
	oracle := []*event.CompletedOracleEvent{
		oracleEvent("env_1", event.TypeEnv, []string{"user_1"}, 5, "", "", nil, ""),
		oracleEvent("user_1", event.TypeUser, nil, 0, "", "", nil, ""),
		oracleEvent("agent_1", event.TypeAgent, []string{"env_1"}, 6, "Messaging", "forward_email", map[string]any{"email_id": "greg_email"}, event.OperationWrite),
	}
	// agent performs the forward BEFORE the env event that must precede it.
	agentLog := []*event.CompletedEvent{
		{EventID: "user_1", EventType: event.TypeUser, EventTime: at(0)},
		agentEvent("agent_1", 1, "Messaging", "forward_email", map[string]any{"email_id": "greg_email"}, event.OperationWrite),
		{EventID: "env_1", EventType: event.TypeEnv, EventTime: at(5)},
	}

	j := newJudge()
	judgment, err := j.Judge(context.Background(), oracle, agentLog, "")
	require.NoError(t, err)
	assert.False(t, judgment.Success)
	assert.Equal(t, graphjudge.FailureOracleEventMatching, judgment.FailureCategory)
}

func TestAgentMatchingIsScopedToOracleEventsTurn(t *testing.T) {
	oracle := []*event.CompletedOracleEvent{
		oracleEvent("user_1", event.TypeUser, nil, 0, "", "", nil, ""),
		oracleEvent("env_1", event.TypeEnv, []string{"user_1"}, 1, "", "", nil, ""),
		oracleEvent("agent_ack", event.TypeAgent, []string{"user_1"}, 2, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "on it"}, event.OperationWrite),
		oracleEvent("agent_forward", event.TypeAgent, []string{"env_1"}, 10, "Messaging", "forward_email", map[string]any{"email_id": "e1"}, event.OperationWrite),
	}
	// the agent forwards the email BEFORE acknowledging the user, i.e. in
	// the prior turn: it is causally eligible (env_1 already happened) but
	// must not be accepted as a match for a later-turn oracle event.
	agentLog := []*event.CompletedEvent{
		{EventID: "user_1", EventType: event.TypeUser, EventTime: at(0)},
		{EventID: "env_1", EventType: event.TypeEnv, EventTime: at(1)},
		agentEvent("agent_forward", 1.5, "Messaging", "forward_email", map[string]any{"email_id": "e1"}, event.OperationWrite),
		agentEvent("agent_ack", 2, "AgentUserInterface", "send_message_to_user", map[string]any{"content": "on it"}, event.OperationWrite),
	}

	j := newJudge()
	judgment, err := j.Judge(context.Background(), oracle, agentLog, "")
	require.NoError(t, err)
	assert.False(t, judgment.Success)
	assert.Equal(t, graphjudge.FailureOracleEventMatching, judgment.FailureCategory)
}

func TestPlaceholderResolvesToMatchedAgentReturnValue(t *testing.T) {
	oracle := []*event.CompletedOracleEvent{
		oracleEvent("env_1", event.TypeEnv, nil, 0, "", "", nil, ""),
		oracleEvent("agent_1", event.TypeAgent, []string{"env_1"}, 1, "Messaging", "reply", map[string]any{"email_id": "{{env_1}}"}, event.OperationWrite),
	}
	envCompleted := &event.CompletedEvent{EventID: "env_1", EventType: event.TypeEnv, EventTime: at(0), Metadata: event.EventMetadata{Completed: true, ReturnValue: "real-id-123"}}
	agentLog := []*event.CompletedEvent{
		envCompleted,
		agentEvent("agent_1", 1, "Messaging", "reply", map[string]any{"email_id": "real-id-123"}, event.OperationWrite),
	}

	j := newJudge()
	judgment, err := j.Judge(context.Background(), oracle, agentLog, "")
	require.NoError(t, err)
	assert.True(t, judgment.Success, judgment.Failure)
}
