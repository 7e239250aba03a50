package agentcli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestControlServer(t *testing.T, perm PermissionHandler) (*controlServer, *mockTransport, *hookRegistry) {
	t.Helper()
	transport := newMockTransport()
	registry := newHookRegistry()
	server := newControlServer(transport, registry, perm, nil)
	return server, transport, registry
}

func TestControlServerCanUseToolDefaultAllowsWhenNoHandler(t *testing.T) {
	server, transport, _ := newTestControlServer(t, nil)

	frame, _ := json.Marshal(map[string]any{
		"request_id": "req1",
		"request": map[string]any{
			"subtype":      "can_use_tool",
			"tool_name":    "Bash",
			"tool_use_id":  "tu1",
			"input":        map[string]any{"command": "ls"},
		},
	})
	server.dispatch(context.Background(), frame)

	w := transport.lastWrite()
	require.NotNil(t, w)
	resp := w["response"].(map[string]any)
	require.Equal(t, "req1", resp["request_id"])
	body := resp["response"].(map[string]any)
	require.Equal(t, true, body["allowed"])
	require.Equal(t, "allow", body["behavior"])
}

func TestControlServerCanUseToolDenyReportsMessage(t *testing.T) {
	deny := func(toolName string, input json.RawMessage, ctx PermissionContext) PermissionResult {
		return PermissionResult{Behavior: PermissionBehaviorDeny, Message: "no bash allowed"}
	}
	server, transport, _ := newTestControlServer(t, deny)

	frame, _ := json.Marshal(map[string]any{
		"request_id": "req2",
		"request":    map[string]any{"subtype": "can_use_tool", "tool_name": "Bash"},
	})
	server.dispatch(context.Background(), frame)

	body := transport.lastWrite()["response"].(map[string]any)["response"].(map[string]any)
	require.Equal(t, false, body["allowed"])
	require.Equal(t, "deny", body["behavior"])
	require.Equal(t, "no bash allowed", body["message"])
}

func TestControlServerCanUseToolAskBehavior(t *testing.T) {
	ask := func(toolName string, input json.RawMessage, ctx PermissionContext) PermissionResult {
		return PermissionResult{Behavior: PermissionBehaviorAsk, Message: "confirm in UI"}
	}
	server, transport, _ := newTestControlServer(t, ask)

	frame, _ := json.Marshal(map[string]any{
		"request_id": "req3",
		"request":    map[string]any{"subtype": "can_use_tool", "tool_name": "Write"},
	})
	server.dispatch(context.Background(), frame)

	body := transport.lastWrite()["response"].(map[string]any)["response"].(map[string]any)
	require.Equal(t, "ask", body["behavior"])
	require.Equal(t, false, body["allowed"])
}

func TestControlServerHookCallbackUnknownIDIsLenient(t *testing.T) {
	server, transport, _ := newTestControlServer(t, nil)

	frame, _ := json.Marshal(map[string]any{
		"request_id": "req4",
		"request":    map[string]any{"subtype": "hook_callback", "callback_id": "hook_999"},
	})
	server.dispatch(context.Background(), frame)

	resp := transport.lastWrite()["response"].(map[string]any)
	require.Equal(t, "success", resp["subtype"])
	body := resp["response"].(map[string]any)
	require.Equal(t, true, body["continue"])
	require.NotEmpty(t, body["reason"])
}

func TestControlServerHookCallbackErrorIsLenient(t *testing.T) {
	server, transport, registry := newTestControlServer(t, nil)
	failing := func(ctx context.Context, in HookInput, toolUseID string) (HookOutput, error) {
		return nil, errors.New("hook exploded")
	}
	registry.callbacks["hook_0"] = failing

	frame, _ := json.Marshal(map[string]any{
		"request_id": "req5",
		"request":    map[string]any{"subtype": "hook_callback", "callback_id": "hook_0"},
	})
	server.dispatch(context.Background(), frame)

	body := transport.lastWrite()["response"].(map[string]any)["response"].(map[string]any)
	require.Equal(t, true, body["continue"])
}

func TestControlServerHookCallbackPanicIsRecovered(t *testing.T) {
	server, transport, registry := newTestControlServer(t, nil)
	panicky := func(ctx context.Context, in HookInput, toolUseID string) (HookOutput, error) {
		panic("unexpected")
	}
	registry.callbacks["hook_0"] = panicky

	frame, _ := json.Marshal(map[string]any{
		"request_id": "req6",
		"request":    map[string]any{"subtype": "hook_callback", "callback_id": "hook_0"},
	})
	require.NotPanics(t, func() { server.dispatch(context.Background(), frame) })

	body := transport.lastWrite()["response"].(map[string]any)["response"].(map[string]any)
	require.Equal(t, true, body["continue"])
}

func TestControlServerUnknownSubtypeIsLenient(t *testing.T) {
	server, transport, _ := newTestControlServer(t, nil)

	frame, _ := json.Marshal(map[string]any{
		"request_id": "req7",
		"request":    map[string]any{"subtype": "some_future_subtype"},
	})
	server.dispatch(context.Background(), frame)

	resp := transport.lastWrite()["response"].(map[string]any)
	require.Equal(t, "success", resp["subtype"])
}

func TestEncodeHookOutputAsync(t *testing.T) {
	body := encodeHookOutput(AsyncHookOutput{AsyncTimeoutMS: 5000})
	require.Equal(t, true, body["async"])
	require.Equal(t, 5000, body["asyncTimeout"])
}

func TestEncodeHookOutputSyncDefaultsContinueTrue(t *testing.T) {
	body := encodeHookOutput(SyncHookOutput{})
	require.Equal(t, true, body["continue"])
}
