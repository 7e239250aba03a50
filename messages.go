// Package agentcli is a Go SDK for driving an external agent-CLI subprocess
// over a newline-delimited JSON protocol, mirroring the behaviour of the
// TypeScript and Python agent SDKs this protocol originated from.
package agentcli

import "encoding/json"

// MessageType is the discriminant field present on every frame (spec §3).
type MessageType string

const (
	TypeUser          MessageType = "user"
	TypeAssistant     MessageType = "assistant"
	TypeSystem        MessageType = "system"
	TypeResult        MessageType = "result"
	TypeStreamEvent   MessageType = "stream_event"
	TypeControlReq    MessageType = "control_request"
	TypeControlResp   MessageType = "control_response"
)

// System message subtype constants.
const (
	SubtypeInit   = "init"
	SubtypeStatus = "status"
)

// ─── Content blocks ────────────────────────────────────────────────────────

// ContentBlockType enumerates the variants of ContentBlock (spec §3).
type ContentBlockType string

const (
	ContentText       ContentBlockType = "text"
	ContentThinking   ContentBlockType = "thinking"
	ContentToolUse    ContentBlockType = "tool_use"
	ContentToolResult ContentBlockType = "tool_result"
)

// ContentBlock is one element of an assistant or user message's content
// array. Type is always set; the remaining fields are populated per variant.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`

	// text / thinking
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   any    `json:"content,omitempty"`
	IsError   *bool  `json:"is_error,omitempty"`
}

// ─── Assistant message ──────────────────────────────────────────────────────

// MessagePayload is the inner `message` object carried by AssistantMessage.
type MessagePayload struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// AssistantMessage is emitted when the agent produces a complete response
// turn.
type AssistantMessage struct {
	Type            MessageType    `json:"type"`
	Message         MessagePayload `json:"message"`
	ParentToolUseID *string        `json:"parent_tool_use_id"`
	SessionID       string         `json:"session_id"`
	UUID            string         `json:"uuid"`
}

// Text returns the concatenated text from all text content blocks.
func (m *AssistantMessage) Text() string {
	var out string
	for _, b := range m.Message.Content {
		if b.Type == ContentText {
			out += b.Text
		}
	}
	return out
}

// Thinking returns the concatenated thinking text from all thinking blocks.
func (m *AssistantMessage) Thinking() string {
	var out string
	for _, b := range m.Message.Content {
		if b.Type == ContentThinking {
			out += b.Thinking
		}
	}
	return out
}

// ToolUses returns every tool_use content block in the message, in order.
func (m *AssistantMessage) ToolUses() []ContentBlock {
	var out []ContentBlock
	for _, b := range m.Message.Content {
		if b.Type == ContentToolUse {
			out = append(out, b)
		}
	}
	return out
}

// ─── User message ───────────────────────────────────────────────────────────

// UserMessage is sent by the host to the CLI (spec §3, §4.7 send).
type UserMessage struct {
	Type              MessageType    `json:"type"`
	Message           MessagePayload `json:"message"`
	ParentToolUseID   *string        `json:"parent_tool_use_id"`
	SessionID         string         `json:"session_id"`
}

// newUserMessage builds the outbound user frame for a plain-text prompt.
func newUserMessage(prompt string) UserMessage {
	return UserMessage{
		Type: TypeUser,
		Message: MessagePayload{
			Role:    "user",
			Content: []ContentBlock{{Type: ContentText, Text: prompt}},
		},
	}
}

// ─── Stream event message ───────────────────────────────────────────────────

// StreamEventDelta is the incremental content of a stream_event delta.
type StreamEventDelta struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// StreamEvent is the inner `event` object of a StreamEventMessage.
type StreamEvent struct {
	Type  string            `json:"type"`
	Delta *StreamEventDelta `json:"delta,omitempty"`
	Index int               `json:"index,omitempty"`
}

// StreamEventMessage carries incremental deltas during a streaming response.
type StreamEventMessage struct {
	Type            MessageType `json:"type"`
	Event           StreamEvent `json:"event"`
	ParentToolUseID *string     `json:"parent_tool_use_id"`
	SessionID       string      `json:"session_id"`
	UUID            string      `json:"uuid"`
}

// ─── Usage ───────────────────────────────────────────────────────────────────

// Usage holds token and cache usage from a completed turn.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// ─── Result message ─────────────────────────────────────────────────────────

// ResultMessage terminates the current turn (spec §3). Check IsError to
// distinguish a successful result from a failed one.
type ResultMessage struct {
	Type              MessageType `json:"type"`
	Subtype           string      `json:"subtype"`
	DurationMS        int64       `json:"duration_ms"`
	DurationAPIMS     int64       `json:"duration_api_ms"`
	IsError           bool        `json:"is_error"`
	NumTurns          int         `json:"num_turns"`
	Result            string      `json:"result"`
	StopReason        *string     `json:"stop_reason"`
	TotalCostUSD      *float64    `json:"total_cost_usd,omitempty"`
	Usage             *Usage      `json:"usage,omitempty"`
	SessionID         string      `json:"session_id"`
	UUID              string      `json:"uuid"`
	Errors            []string    `json:"errors,omitempty"`
	StructuredOutput  any         `json:"structured_output,omitempty"`
	PermissionDenials []string    `json:"permission_denials,omitempty"`
}

// Result is an alias retained for callers that used the teacher SDK's
// terminology; ResultMessage is the canonical name used throughout this
// package.
type Result = ResultMessage

// ─── System message ─────────────────────────────────────────────────────────

// SystemMessage covers all "system" typed frames.
type SystemMessage struct {
	Type    MessageType `json:"type"`
	Subtype string      `json:"subtype"`

	// status subtype
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`

	// init subtype
	SessionID         string   `json:"session_id,omitempty"`
	CWD               string   `json:"cwd,omitempty"`
	Model             string   `json:"model,omitempty"`
	Tools             []string `json:"tools,omitempty"`
	PermissionMode    string   `json:"permissionMode,omitempty"`
	ClaudeCodeVersion string   `json:"claude_code_version,omitempty"`
	APIKeySource      string   `json:"apiKeySource,omitempty"`
	Agents            []string `json:"agents,omitempty"`
	Betas             []string `json:"betas,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	Plugins           []string `json:"plugins,omitempty"`
	SlashCommands     []string `json:"slash_commands,omitempty"`
}

// ─── Top-level Event ─────────────────────────────────────────────────────────

// Event is the top-level value yielded from a Stream's conversation channel.
// Type is always set; the corresponding typed field is non-nil for known
// types. For unknown types, only Raw is set so callers can handle
// forward-compatibility themselves (spec §4.3 point 3, §9).
type Event struct {
	Type        MessageType
	Assistant   *AssistantMessage
	StreamEvent *StreamEventMessage
	Result      *ResultMessage
	System      *SystemMessage
	Raw         json.RawMessage
}

// parseConversationFrame decodes one conversation frame (spec §4.3 point 3).
// Unknown types yield an Event with only Type and Raw populated and a nil
// error — they are tolerated, not fatal (P5).
func parseConversationFrame(raw json.RawMessage) (Event, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Event{}, err
	}

	event := Event{Type: envelope.Type, Raw: raw}
	switch envelope.Type {
	case TypeAssistant:
		var m AssistantMessage
		if err := json.Unmarshal(raw, &m); err == nil {
			event.Assistant = &m
		}
	case TypeStreamEvent:
		var m StreamEventMessage
		if err := json.Unmarshal(raw, &m); err == nil {
			event.StreamEvent = &m
		}
	case TypeResult:
		var m ResultMessage
		if err := json.Unmarshal(raw, &m); err == nil {
			event.Result = &m
		}
	case TypeSystem:
		var m SystemMessage
		if err := json.Unmarshal(raw, &m); err == nil {
			event.System = &m
		}
	}
	return event, nil
}
