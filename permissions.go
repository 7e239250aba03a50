package agentcli

import "encoding/json"

// PermissionMode controls how the CLI handles tool permission requests
// (spec §6, "Permission mode strings").
type PermissionMode string

const (
	PermissionModeDefault           PermissionMode = "default"
	PermissionModeAcceptEdits       PermissionMode = "acceptEdits"
	PermissionModePlan              PermissionMode = "plan"
	PermissionModeBypassPermissions PermissionMode = "bypassPermissions"
)

// PermissionBehavior is the allow/deny/ask outcome for a can_use_tool reply
// (spec §4.5.1; "ask" resolved in SPEC_FULL.md §6).
type PermissionBehavior string

const (
	PermissionBehaviorAllow PermissionBehavior = "allow"
	PermissionBehaviorDeny  PermissionBehavior = "deny"
	PermissionBehaviorAsk   PermissionBehavior = "ask"
)

// PermissionUpdateDestination controls where a permission update is
// persisted.
type PermissionUpdateDestination string

const (
	PermissionUpdateDestinationUserSettings    PermissionUpdateDestination = "userSettings"
	PermissionUpdateDestinationProjectSettings PermissionUpdateDestination = "projectSettings"
	PermissionUpdateDestinationLocalSettings   PermissionUpdateDestination = "localSettings"
	PermissionUpdateDestinationSession         PermissionUpdateDestination = "session"
)

// PermissionRuleValue identifies a tool and an optional content pattern
// (e.g. a glob for the Bash tool's command argument).
type PermissionRuleValue struct {
	ToolName    string  `json:"toolName"`
	RuleContent *string `json:"ruleContent,omitempty"`
}

// PermissionUpdate is a single permission mutation returned by a
// PermissionHandler. Fill only the fields relevant to Type.
type PermissionUpdate struct {
	Type        string                       `json:"type"`
	Rules       []PermissionRuleValue        `json:"rules,omitempty"`
	Behavior    PermissionBehavior           `json:"behavior,omitempty"`
	Destination PermissionUpdateDestination  `json:"destination,omitempty"`
	Mode        PermissionMode               `json:"mode,omitempty"`
	Directories []string                     `json:"directories,omitempty"`
}

// PermissionContext carries the full context of a can_use_tool request
// alongside the tool name and input (spec §4.5.1).
type PermissionContext struct {
	Suggestions    []PermissionUpdate
	BlockedPath    string
	DecisionReason string
	ToolUseID      string
	AgentID        string
}

// PermissionResult is the return value of a PermissionHandler.
//
//   - Behavior "allow" (default): UpdatedInput/UpdatedPermissions apply.
//   - Behavior "deny": Message/Interrupt apply.
//   - Behavior "ask": the decision is deferred to the host's own UI; Message
//     carries an explanation to surface there.
type PermissionResult struct {
	Behavior           PermissionBehavior
	UpdatedInput       map[string]any
	UpdatedPermissions []PermissionUpdate
	Message            string
	Interrupt          bool
}

// PermissionHandler is invoked for each can_use_tool control request. A nil
// handler allows every tool call.
type PermissionHandler func(toolName string, input json.RawMessage, ctx PermissionContext) PermissionResult
