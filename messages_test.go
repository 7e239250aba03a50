package agentcli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConversationFrameAssistant(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "assistant",
		"message": {"role": "assistant", "content": [
			{"type": "text", "text": "hello "},
			{"type": "thinking", "thinking": "pondering"},
			{"type": "text", "text": "world"}
		]},
		"session_id": "s1",
		"uuid": "u1"
	}`)

	event, err := parseConversationFrame(raw)
	require.NoError(t, err)
	require.Equal(t, TypeAssistant, event.Type)
	require.Equal(t, "hello world", event.Assistant.Text())
	require.Equal(t, "pondering", event.Assistant.Thinking())
}

func TestAssistantMessageToolUses(t *testing.T) {
	msg := AssistantMessage{
		Message: MessagePayload{Content: []ContentBlock{
			{Type: ContentText, Text: "x"},
			{Type: ContentToolUse, ID: "t1", Name: "Bash"},
			{Type: ContentToolUse, ID: "t2", Name: "Read"},
		}},
	}
	uses := msg.ToolUses()
	require.Len(t, uses, 2)
	require.Equal(t, "Bash", uses[0].Name)
	require.Equal(t, "Read", uses[1].Name)
}

func TestParseConversationFrameUnknownTypeIsTolerated(t *testing.T) {
	raw := json.RawMessage(`{"type": "rate_limit_event", "foo": "bar"}`)
	event, err := parseConversationFrame(raw)
	require.NoError(t, err)
	require.Equal(t, MessageType("rate_limit_event"), event.Type)
	require.Nil(t, event.Assistant)
	require.Nil(t, event.Result)
	require.NotEmpty(t, event.Raw)
}

func TestParseConversationFrameMalformedJSONErrors(t *testing.T) {
	_, err := parseConversationFrame(json.RawMessage(`not json`))
	require.Error(t, err)
}

func TestParseConversationFrameResult(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "result",
		"subtype": "success",
		"is_error": false,
		"result": "42",
		"session_id": "s1",
		"uuid": "u1",
		"total_cost_usd": 0.015,
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)
	event, err := parseConversationFrame(raw)
	require.NoError(t, err)
	require.NotNil(t, event.Result)
	require.False(t, event.Result.IsError)
	require.Equal(t, "42", event.Result.Result)
	require.NotNil(t, event.Result.TotalCostUSD)
	require.InDelta(t, 0.015, *event.Result.TotalCostUSD, 1e-9)
	require.NotNil(t, event.Result.Usage)
	require.Equal(t, 10, event.Result.Usage.InputTokens)
}

func TestNewUserMessageShape(t *testing.T) {
	msg := newUserMessage("hi there")
	require.Equal(t, TypeUser, msg.Type)
	require.Equal(t, "user", msg.Message.Role)
	require.Len(t, msg.Message.Content, 1)
	require.Equal(t, "hi there", msg.Message.Content[0].Text)
}
