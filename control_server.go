package agentcli

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shaharia-lab/agentcli-sdk-go/internal/wire"
)

// controlServer dispatches inbound control_request frames raised by the CLI
// (can_use_tool, hook_callback, mcp_message) and writes exactly one
// control_response per request (spec §4.5, "ControlServer").
type controlServer struct {
	transport  wire.Transport
	hooks      *hookRegistry
	permission PermissionHandler
	log        *slog.Logger
}

func newControlServer(t wire.Transport, hooks *hookRegistry, perm PermissionHandler, log *slog.Logger) *controlServer {
	if log == nil {
		log = discardLogger()
	}
	return &controlServer{transport: t, hooks: hooks, permission: perm, log: log.With("component", "control_server")}
}

type inboundControlRequest struct {
	RequestID string          `json:"request_id"`
	Request   json.RawMessage `json:"request"`
}

type controlRequestEnvelope struct {
	Subtype string `json:"subtype"`
}

type controlResponseEnvelope struct {
	Type     MessageType `json:"type"`
	Response controlResponseBody `json:"response"`
}

type controlResponseBody struct {
	Subtype   string `json:"subtype"`
	RequestID string `json:"request_id"`
	Response  any    `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

// dispatch handles one inbound control_request frame. It always runs
// detached from the reader goroutine (spec §4.5, "never blocks the reader")
// and writes exactly one response for every frame it can decode, even when
// a host callback panics or the subtype is unknown (P6).
func (s *controlServer) dispatch(ctx context.Context, frame json.RawMessage) {
	var in inboundControlRequest
	if err := json.Unmarshal(frame, &in); err != nil {
		s.log.Warn("malformed control_request frame", "error", err)
		return
	}

	var env controlRequestEnvelope
	_ = json.Unmarshal(in.Request, &env)

	resp := s.handle(ctx, env.Subtype, in.Request)
	resp.RequestID = in.RequestID

	if err := s.transport.Write(controlResponseEnvelope{Type: TypeControlResp, Response: resp}); err != nil {
		s.log.Warn("failed to write control_response", "subtype", env.Subtype, "error", err)
	}
}

func (s *controlServer) handle(ctx context.Context, subtype string, raw json.RawMessage) controlResponseBody {
	switch subtype {
	case "can_use_tool":
		return s.handleCanUseTool(raw)
	case "hook_callback":
		return s.handleHookCallback(ctx, raw)
	case "mcp_message":
		// MCP traffic for in-process servers is bridged over its own HTTP
		// listener (see mcp.go, StartInProcessMCPServer); the control
		// protocol only needs to acknowledge this notification.
		return controlResponseBody{Subtype: "success", Response: map[string]any{}}
	default:
		// Unknown subtype: lenient success so an unrecognised control
		// request never stalls the CLI (spec §4.5.2, P6).
		return controlResponseBody{Subtype: "success", Response: map[string]any{}}
	}
}

type canUseToolRequest struct {
	ToolName       string             `json:"tool_name"`
	ToolUseID      string             `json:"tool_use_id"`
	Input          json.RawMessage    `json:"input"`
	Suggestions    []PermissionUpdate `json:"permission_suggestions,omitempty"`
	BlockedPath    string             `json:"blocked_path,omitempty"`
	DecisionReason string             `json:"decision_reason,omitempty"`
	AgentID        string             `json:"agent_id,omitempty"`
}

// handleCanUseTool replies with both the teacher's legacy boolean `allowed`
// field and the three-state `behavior` field so old and new CLI builds can
// both interpret the response (spec.md §6, Open Question resolution: "ask"
// can't be represented by `allowed` alone).
func (s *controlServer) handleCanUseTool(raw json.RawMessage) (resp controlResponseBody) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("permission handler panicked", "panic", r)
			resp = controlResponseBody{Subtype: "error", Error: "permission handler panicked"}
		}
	}()

	var req canUseToolRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return controlResponseBody{Subtype: "success", Response: map[string]any{"allowed": true, "behavior": "allow"}}
	}

	result := PermissionResult{Behavior: PermissionBehaviorAllow}
	if s.permission != nil {
		result = s.permission(req.ToolName, req.Input, PermissionContext{
			Suggestions:    req.Suggestions,
			BlockedPath:    req.BlockedPath,
			DecisionReason: req.DecisionReason,
			ToolUseID:      req.ToolUseID,
			AgentID:        req.AgentID,
		})
	}

	behavior := result.Behavior
	if behavior == "" {
		behavior = PermissionBehaviorAllow
	}

	body := map[string]any{
		"allowed":   behavior == PermissionBehaviorAllow,
		"toolUseID": req.ToolUseID,
		"behavior":  string(behavior),
	}
	switch behavior {
	case PermissionBehaviorAllow:
		if result.UpdatedInput != nil {
			body["updatedInput"] = result.UpdatedInput
		}
		if len(result.UpdatedPermissions) > 0 {
			body["updatedPermissions"] = result.UpdatedPermissions
		}
	case PermissionBehaviorDeny:
		if result.Message != "" {
			body["message"] = result.Message
		}
		if result.Interrupt {
			body["interrupt"] = true
		}
	case PermissionBehaviorAsk:
		if result.Message != "" {
			body["message"] = result.Message
		}
	}
	return controlResponseBody{Subtype: "success", Response: body}
}

type hookCallbackRequest struct {
	CallbackID string          `json:"callback_id"`
	Input      json.RawMessage `json:"input"`
	ToolUseID  string          `json:"tool_use_id,omitempty"`
}

// handleHookCallback runs a host hook. Per spec §4.5.2 point 2/3, an unknown
// callback_id or a hook that panics/errors never fails the control request:
// it responds success with continue:true and a Reason explaining why.
func (s *controlServer) handleHookCallback(ctx context.Context, raw json.RawMessage) (resp controlResponseBody) {
	var req hookCallbackRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return controlResponseBody{Subtype: "success", Response: syncAllowBody("malformed hook_callback request")}
	}

	fn, ok := s.hooks.lookup(req.CallbackID)
	if !ok {
		return controlResponseBody{Subtype: "success", Response: syncAllowBody("unknown hook callback id")}
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("hook callback panicked", "callback_id", req.CallbackID, "panic", r)
			resp = controlResponseBody{Subtype: "success", Response: syncAllowBody("hook callback panicked")}
		}
	}()

	input := parseHookInput(req.Input)
	out, err := fn(ctx, input, req.ToolUseID)
	if err != nil {
		s.log.Warn("hook callback returned error", "callback_id", req.CallbackID, "error", err)
		return controlResponseBody{Subtype: "success", Response: syncAllowBody("hook callback error: " + err.Error())}
	}
	return controlResponseBody{Subtype: "success", Response: encodeHookOutput(out)}
}

func syncAllowBody(reason string) map[string]any {
	body := map[string]any{"continue": true}
	if reason != "" {
		body["reason"] = reason
	}
	return body
}

// encodeHookOutput converts the HookOutput sum type into its wire shape
// (spec §4.5.2 point 4: sync outputs pass fields through, async outputs
// become {"async":true,"asyncTimeout":<ms>}).
func encodeHookOutput(out HookOutput) map[string]any {
	switch v := out.(type) {
	case nil:
		return syncAllowBody("")
	case SyncHookOutput:
		body := map[string]any{}
		cont := true
		if v.Continue != nil {
			cont = *v.Continue
		}
		body["continue"] = cont
		if v.SuppressOutput {
			body["suppressOutput"] = v.SuppressOutput
		}
		if v.StopReason != "" {
			body["stopReason"] = v.StopReason
		}
		if v.Decision != "" {
			body["decision"] = v.Decision
		}
		if v.SystemMessage != "" {
			body["systemMessage"] = v.SystemMessage
		}
		if v.Reason != "" {
			body["reason"] = v.Reason
		}
		if v.HookSpecificOutput != nil {
			body["hookSpecificOutput"] = v.HookSpecificOutput
		}
		return body
	case AsyncHookOutput:
		return map[string]any{"async": true, "asyncTimeout": v.AsyncTimeoutMS}
	default:
		return syncAllowBody("")
	}
}
