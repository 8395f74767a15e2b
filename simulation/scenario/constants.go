package scenario

// Well-known tool names the turn-chunking and invariant checks key off of.
// Both live on the AgentUserInterface app (see apps/agentuserinterface).
const (
	ToolSendMessageToUser  = "AgentUserInterface__send_message_to_user"
	ToolSendMessageToAgent = "AgentUserInterface__send_message_to_agent"
)
