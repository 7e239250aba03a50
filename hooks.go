package agentcli

import (
	"context"
	"encoding/json"
)

// HookEvent identifies the lifecycle event that triggered a hook callback
// (spec §3, §4.6 — the twelve kinds enumerated there).
type HookEvent string

const (
	HookEventPreToolUse         HookEvent = "PreToolUse"
	HookEventPostToolUse        HookEvent = "PostToolUse"
	HookEventPostToolUseFailure HookEvent = "PostToolUseFailure"
	HookEventUserPromptSubmit   HookEvent = "UserPromptSubmit"
	HookEventStop               HookEvent = "Stop"
	HookEventSubagentStart      HookEvent = "SubagentStart"
	HookEventSubagentStop       HookEvent = "SubagentStop"
	HookEventPreCompact         HookEvent = "PreCompact"
	HookEventPermissionRequest  HookEvent = "PermissionRequest"
	HookEventSessionStart       HookEvent = "SessionStart"
	HookEventSessionEnd         HookEvent = "SessionEnd"
	HookEventNotification       HookEvent = "Notification"
)

// hookEventKinds lists every recognised HookEvent in the fixed order in which
// hookRegistry.build assigns callback IDs; build ignores events not listed
// here.
var hookEventKinds = []HookEvent{
	HookEventPreToolUse, HookEventPostToolUse, HookEventPostToolUseFailure,
	HookEventUserPromptSubmit, HookEventStop, HookEventSubagentStart,
	HookEventSubagentStop, HookEventPreCompact, HookEventPermissionRequest,
	HookEventSessionStart, HookEventSessionEnd, HookEventNotification,
}

// HookInputCommon holds the fields shared by every HookInput kind (spec §3).
type HookInputCommon struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
	PermissionMode string `json:"permission_mode,omitempty"`
}

// HookInput is the parsed payload delivered to a hook callback. Exactly one
// of the kind-specific pointer fields is non-nil, matching HookEventName.
// Unknown or absent hook_event_name falls back to a HookInput with only
// HookEventName, Common and Raw populated (spec §4.5.2 point 2).
type HookInput struct {
	HookEventName HookEvent
	Common        HookInputCommon
	Raw           json.RawMessage

	PreToolUse         *PreToolUseInput
	PostToolUse        *PostToolUseInput
	PostToolUseFailure *PostToolUseFailureInput
	UserPromptSubmit   *UserPromptSubmitInput
	Stop               *StopInput
	SubagentStart      *SubagentStartInput
	SubagentStop       *SubagentStopInput
	PreCompact         *PreCompactInput
	PermissionRequest  *PermissionRequestInput
	SessionStart       *SessionStartInput
	SessionEnd         *SessionEndInput
	Notification       *NotificationInput
}

// PreToolUseInput is delivered before a tool invocation is executed.
type PreToolUseInput struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
}

// PostToolUseInput is delivered after a tool invocation completes.
type PostToolUseInput struct {
	ToolName   string          `json:"tool_name"`
	ToolInput  json.RawMessage `json:"tool_input"`
	ToolOutput json.RawMessage `json:"tool_output,omitempty"`
}

// PostToolUseFailureInput is delivered after a tool invocation fails.
type PostToolUseFailureInput struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
	Error     string          `json:"error,omitempty"`
}

// UserPromptSubmitInput is delivered when the host submits a new prompt.
type UserPromptSubmitInput struct {
	Prompt string `json:"prompt"`
}

// StopInput is delivered when the agent stops generating.
type StopInput struct {
	StopHookActive bool `json:"stop_hook_active,omitempty"`
}

// SubagentStartInput is delivered when a sub-agent is spawned.
type SubagentStartInput struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name,omitempty"`
}

// SubagentStopInput is delivered when a sub-agent finishes.
type SubagentStopInput struct {
	AgentID        string `json:"agent_id"`
	StopHookActive bool   `json:"stop_hook_active,omitempty"`
}

// PreCompactInput is delivered before the conversation transcript is
// compacted.
type PreCompactInput struct {
	Trigger string `json:"trigger,omitempty"`
}

// PermissionRequestInput is delivered when the CLI is about to ask for tool
// permission, ahead of (and distinct from) the can_use_tool control request.
type PermissionRequestInput struct {
	ToolName string          `json:"tool_name"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// SessionStartInput is delivered at the start of a session.
type SessionStartInput struct {
	Source string `json:"source,omitempty"`
}

// SessionEndInput is delivered at the end of a session.
type SessionEndInput struct {
	Reason string `json:"reason,omitempty"`
}

// NotificationInput is delivered for general CLI notifications.
type NotificationInput struct {
	Message string `json:"message,omitempty"`
}

// HookOutput is the return value of a HookFunc.
//
// Use ContinueOutput for the common synchronous case, or return an
// AsyncHookOutput when the hook wants the CLI to poll asynchronously
// (spec §4.5.2 point 4).
type HookOutput interface {
	isHookOutput()
}

// SyncHookOutput is returned by a hook that completes its decision
// immediately. All fields are optional; when Continue is nil, the
// CLI-facing response defaults it to true.
type SyncHookOutput struct {
	Continue           *bool          `json:"continue,omitempty"`
	SuppressOutput     bool           `json:"suppressOutput,omitempty"`
	StopReason         string         `json:"stopReason,omitempty"`
	Decision           string         `json:"decision,omitempty"`
	SystemMessage      string         `json:"systemMessage,omitempty"`
	Reason             string         `json:"reason,omitempty"`
	HookSpecificOutput map[string]any `json:"hookSpecificOutput,omitempty"`
}

func (SyncHookOutput) isHookOutput() {}

// AsyncHookOutput tells the CLI to poll the hook's result asynchronously.
// The wire field is camelCase (asyncTimeout) per observed CLI behaviour.
type AsyncHookOutput struct {
	AsyncTimeoutMS int
}

func (AsyncHookOutput) isHookOutput() {}

// boolPtr is a small helper for constructing SyncHookOutput.Continue.
func boolPtr(b bool) *bool { return &b }

// ContinueOutput is a convenience constructor for the common "allow and
// continue" / "stop with reason" sync replies.
func ContinueOutput(cont bool, reason string) SyncHookOutput {
	out := SyncHookOutput{Continue: boolPtr(cont)}
	if reason != "" {
		out.Reason = reason
	}
	return out
}

// HookFunc is the signature for a hook callback. ctx carries the session's
// shutdown signal (spec §5, "every await of a host callback" is
// cancellable); callbacks must observe it if they suspend.
type HookFunc func(ctx context.Context, input HookInput, toolUseID string) (HookOutput, error)

// HookMatcher configures one or more hook functions for a tool-name matcher
// pattern (empty Matcher matches every tool).
type HookMatcher struct {
	Matcher string
	Hooks   []HookFunc
	Timeout float64 // seconds; 0 means "use the CLI default"
}
