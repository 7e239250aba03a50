package agentcli

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/shaharia-lab/agentcli-sdk-go/internal/wire"
)

// controlClient issues outbound control_request frames and awaits their
// control_response via the correlation table (spec §4.4, "ControlClient").
type controlClient struct {
	transport wire.Transport
	table     *correlationTable

	initOnce sync.Once
	initErr  error
	initDone atomic.Bool
}

func newControlClient(t wire.Transport, table *correlationTable) *controlClient {
	return &controlClient{transport: t, table: table}
}

// controlEnvelope is the outbound control_request wire shape (spec §4.1).
type controlEnvelope struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id"`
	Request   any         `json:"request"`
}

// request sends one control_request and blocks for its response, honoring
// ctx cancellation (P1, P2) and session shutdown (P8).
func (c *controlClient) request(ctx context.Context, subtype string, payload map[string]any) (json.RawMessage, error) {
	id, slot, err := c.table.register()
	if err != nil {
		return nil, err
	}

	body := map[string]any{"subtype": subtype}
	for k, v := range payload {
		body[k] = v
	}

	if err := c.transport.Write(controlEnvelope{
		Type:      TypeControlReq,
		RequestID: id,
		Request:   body,
	}); err != nil {
		c.table.cancel(id)
		return nil, &TransportError{Op: "write control_request", Err: err}
	}

	select {
	case res := <-slot.resultCh:
		return res, nil
	case err := <-slot.errCh:
		return nil, err
	case <-ctx.Done():
		c.table.cancel(id)
		return nil, ErrCancelled
	}
}

// Initialize sends the initialize control request exactly once; subsequent
// calls return the first call's result without re-sending (spec §4.6, P3).
// The payload mirrors the teacher SDK's initializeMsg: system prompt,
// agents, hooks, sandbox, and output format travel here instead of as CLI
// flags, so they work in bidirectional mode. MCP servers travel here as
// sdkMcpServers and are also passed as --mcp-config by buildArgs.
func (c *controlClient) Initialize(ctx context.Context, opts *Options, hooksPayload map[string]any) error {
	c.initOnce.Do(func() {
		servers := any(map[string]any{})
		if len(opts.McpServers) > 0 {
			servers = opts.McpServers
		}
		agents := any(map[string]any{})
		if len(opts.Agents) > 0 {
			m := make(map[string]any, len(opts.Agents))
			for k, v := range opts.Agents {
				m[k] = v
			}
			agents = m
		}

		payload := map[string]any{
			"systemPrompt":       opts.SystemPrompt,
			"appendSystemPrompt": opts.AppendSystemPrompt,
			"sdkMcpServers":      servers,
			"hooks":              hooksPayload,
			"agents":             agents,
			"promptSuggestions":  false,
		}
		if opts.OutputFormat != nil {
			payload["outputFormat"] = opts.OutputFormat.Type
			if opts.OutputFormat.Schema != nil {
				payload["jsonSchema"] = opts.OutputFormat.Schema
			}
		}
		if opts.Sandbox != nil {
			payload["sandbox"] = opts.Sandbox
		}

		_, err := c.request(ctx, "initialize", payload)
		c.initErr = err
		c.initDone.Store(true)
	})
	return c.initErr
}

// Interrupt requests the CLI stop generating the current turn.
func (c *controlClient) Interrupt(ctx context.Context) error {
	_, err := c.request(ctx, "interrupt", nil)
	return err
}

// SetPermissionMode changes the active PermissionMode mid-session.
func (c *controlClient) SetPermissionMode(ctx context.Context, mode PermissionMode) error {
	_, err := c.request(ctx, "set_permission_mode", map[string]any{"mode": string(mode)})
	return err
}

// SetModel switches the model used for subsequent turns.
func (c *controlClient) SetModel(ctx context.Context, model string) error {
	_, err := c.request(ctx, "set_model", map[string]any{"model": model})
	return err
}

// SetMaxThinkingTokens adjusts the extended-thinking token budget.
func (c *controlClient) SetMaxThinkingTokens(ctx context.Context, tokens int) error {
	_, err := c.request(ctx, "set_max_thinking_tokens", map[string]any{"max_thinking_tokens": tokens})
	return err
}

// RewindFiles asks the CLI to revert file edits made since the given user
// message (spec §4.4, rewind_files payload: {user_message_id: string}).
func (c *controlClient) RewindFiles(ctx context.Context, userMessageID string) error {
	_, err := c.request(ctx, "rewind_files", map[string]any{"user_message_id": userMessageID})
	return err
}

// SupportedCommands lists the slash commands the running CLI understands.
func (c *controlClient) SupportedCommands(ctx context.Context) ([]string, error) {
	raw, err := c.request(ctx, "supported_commands", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Commands []string `json:"commands"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProtocolError{Detail: "decode supported_commands response", Err: err}
	}
	return out.Commands, nil
}

// SupportedModels lists the models the running CLI can switch to.
func (c *controlClient) SupportedModels(ctx context.Context) ([]string, error) {
	raw, err := c.request(ctx, "supported_models", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProtocolError{Detail: "decode supported_models response", Err: err}
	}
	return out.Models, nil
}

// McpServerStatusEntry reports the health of one configured MCP server.
type McpServerStatusEntry struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// McpServerStatus queries connection health for configured MCP servers.
func (c *controlClient) McpServerStatus(ctx context.Context) ([]McpServerStatusEntry, error) {
	raw, err := c.request(ctx, "mcp_server_status", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Servers []McpServerStatusEntry `json:"servers"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProtocolError{Detail: "decode mcp_server_status response", Err: err}
	}
	return out.Servers, nil
}

// AccountInfo reports the authenticated account associated with the CLI.
type AccountInfo struct {
	Email        string `json:"email,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// AccountInfo queries the CLI's authenticated account info.
func (c *controlClient) AccountInfo(ctx context.Context) (AccountInfo, error) {
	raw, err := c.request(ctx, "account_info", nil)
	if err != nil {
		return AccountInfo{}, err
	}
	var out AccountInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return AccountInfo{}, &ProtocolError{Detail: "decode account_info response", Err: err}
	}
	return out, nil
}
