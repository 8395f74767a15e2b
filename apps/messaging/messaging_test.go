package messaging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/apps/messaging"
	"github.com/are-sim/aresim/simulation/app"
)

func toolFunc(t *testing.T, a *messaging.App, name string) app.ToolFunc {
	t.Helper()
	for _, tool := range a.Tools() {
		if tool.Name == name {
			return tool.Func
		}
	}
	t.Fatalf("no tool %q", name)
	return nil
}

func TestReceiveEmailThenListInbox(t *testing.T) {
	a := messaging.New("Messaging")
	id, err := toolFunc(t, a, "receive_email")(context.Background(), map[string]any{
		"from": "greg@example.com", "subject": "llama photo", "body": "see attached", "to": []any{"me@example.com"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	out, err := toolFunc(t, a, "list_inbox")(context.Background(), nil)
	require.NoError(t, err)
	inbox := out.([]*messaging.Email)
	require.Len(t, inbox, 1)
	assert.Equal(t, "llama photo", inbox[0].Subject)
}

func TestForwardEmailCreatesNewInboxEntry(t *testing.T) {
	a := messaging.New("Messaging")
	id, err := toolFunc(t, a, "receive_email")(context.Background(), map[string]any{
		"from": "greg@example.com", "subject": "llama photo", "body": "see attached",
	})
	require.NoError(t, err)

	fwdID, err := toolFunc(t, a, "forward_email")(context.Background(), map[string]any{
		"email_id": id, "recipients": []any{"bob@example.com"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, id, fwdID)

	out, err := toolFunc(t, a, "list_inbox")(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, out.([]*messaging.Email), 2)
}

func TestForwardUnknownEmailFails(t *testing.T) {
	a := messaging.New("Messaging")
	_, err := toolFunc(t, a, "forward_email")(context.Background(), map[string]any{"email_id": "missing", "recipients": []any{"bob@example.com"}})
	assert.Error(t, err)
}

func TestReplyToEmailRecordsBody(t *testing.T) {
	a := messaging.New("Messaging")
	id, err := toolFunc(t, a, "receive_email")(context.Background(), map[string]any{
		"from": "greg@example.com", "subject": "llama photo", "body": "see attached",
	})
	require.NoError(t, err)

	_, err = toolFunc(t, a, "reply_to_email")(context.Background(), map[string]any{"email_id": id, "content": "thanks!"})
	require.NoError(t, err)

	out, err := toolFunc(t, a, "list_inbox")(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, out.([]*messaging.Email), 2)
}

func TestSendMessageRequiresTo(t *testing.T) {
	a := messaging.New("Messaging")
	_, err := toolFunc(t, a, "send_message")(context.Background(), map[string]any{"content": "hi"})
	assert.Error(t, err)
}

func TestGetStateLoadStateRoundTrip(t *testing.T) {
	a := messaging.New("Messaging")
	id, err := toolFunc(t, a, "receive_email")(context.Background(), map[string]any{"from": "greg@example.com", "subject": "pdf", "body": "attached"})
	require.NoError(t, err)
	snapshot := a.GetState()

	a.Reset()
	out, err := toolFunc(t, a, "list_inbox")(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, out)

	require.NoError(t, a.LoadState(snapshot))
	restored, err := toolFunc(t, a, "list_inbox")(context.Background(), nil)
	require.NoError(t, err)
	emails, ok := restored.([]*messaging.Email)
	require.True(t, ok)
	require.Len(t, emails, 1)
	assert.Equal(t, id, emails[0].ID)
	assert.Equal(t, "greg@example.com", emails[0].From)
}

func TestResetClearsInbox(t *testing.T) {
	a := messaging.New("Messaging")
	_, err := toolFunc(t, a, "receive_email")(context.Background(), map[string]any{"from": "greg@example.com", "subject": "x", "body": "y"})
	require.NoError(t, err)

	a.Reset()
	out, err := toolFunc(t, a, "list_inbox")(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
