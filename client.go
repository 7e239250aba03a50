package agentcli

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaharia-lab/agentcli-sdk-go/internal/wire"
)

// Stream represents an active agent-CLI subprocess session.
//
// Call Events() to range over the stream of events. The channel is closed
// when the agent finishes, the subprocess exits, or the context is
// cancelled. Control methods may be called concurrently from any goroutine
// while the stream is active.
type Stream struct {
	engine *engine
}

// Events returns the receive-only channel of events streamed from the
// subprocess. The channel is closed when the session ends. Callers should
// always range until the channel closes.
func (s *Stream) Events() <-chan Event { return s.engine.Events() }

// SetModel asks the CLI to switch to a different model mid-session.
func (s *Stream) SetModel(ctx context.Context, model string) error {
	return s.engine.control.SetModel(ctx, model)
}

// SetPermissionMode asks the CLI to change the permission mode mid-session.
func (s *Stream) SetPermissionMode(ctx context.Context, mode PermissionMode) error {
	return s.engine.control.SetPermissionMode(ctx, mode)
}

// SetMaxThinkingTokens asks the CLI to update the max thinking token budget.
func (s *Stream) SetMaxThinkingTokens(ctx context.Context, n int) error {
	return s.engine.control.SetMaxThinkingTokens(ctx, n)
}

// RewindFiles asks the CLI to revert file edits made since the given user
// message.
func (s *Stream) RewindFiles(ctx context.Context, userMessageID string) error {
	return s.engine.control.RewindFiles(ctx, userMessageID)
}

// SupportedCommands lists the slash commands the running CLI understands.
func (s *Stream) SupportedCommands(ctx context.Context) ([]string, error) {
	return s.engine.control.SupportedCommands(ctx)
}

// SupportedModels lists the models the running CLI can switch to.
func (s *Stream) SupportedModels(ctx context.Context) ([]string, error) {
	return s.engine.control.SupportedModels(ctx)
}

// McpServerStatus queries connection health for configured MCP servers.
func (s *Stream) McpServerStatus(ctx context.Context) ([]McpServerStatusEntry, error) {
	return s.engine.control.McpServerStatus(ctx)
}

// AccountInfo queries the CLI's authenticated account info.
func (s *Stream) AccountInfo(ctx context.Context) (AccountInfo, error) {
	return s.engine.control.AccountInfo(ctx)
}

// Interrupt sends a soft interrupt: the CLI is asked to stop generating the
// current turn, and the call returns once the CLI acknowledges. The stream
// stays open. Cancel the context passed to Query, or call Close, for a hard
// teardown instead.
func (s *Stream) Interrupt(ctx context.Context) error {
	return s.engine.control.Interrupt(ctx)
}

// Close gracefully shuts the stream's subprocess down. Idempotent.
func (s *Stream) Close() error { return s.engine.Close() }

// newSubprocessTransport builds the wire.Transport for one session's worth
// of CLI invocation (spec §4.2, teacher's spawnAndStream/buildEnv).
func newSubprocessTransport(o *Options) wire.Transport {
	return wire.NewSubprocess(wire.SubprocessConfig{
		Executable: o.Executable,
		Args:       o.buildArgs(),
		Env: wire.BuildEnv(wire.EnvConfig{
			Entrypoint:        "sdk-go",
			SDKVersion:        SDKVersion,
			DisableThinking:   o.Thinking == ThinkingDisabled,
			MaxThinkingTokens: o.MaxThinkingTokens,
			Extra:             o.Env,
		}),
		Dir:    o.CWD,
		Logger: o.Logger,
	})
}

// spawnStream builds the Transport, engine, and initial prompt for one
// Query call (spec §4.2, teacher's spawnAndStream).
func spawnStream(ctx context.Context, o *Options, prompt string) (*Stream, error) {
	t := newSubprocessTransport(o)
	e := newEngine(t, o.Hooks, o.PermissionHandler, o.MetricsSink, o.Logger)
	if err := e.start(ctx, o); err != nil {
		return nil, err
	}
	if err := e.Send(prompt); err != nil {
		_ = e.Close()
		return nil, err
	}
	return &Stream{engine: e}, nil
}

// Query runs the agent with the given prompt and returns a *Stream for
// real-time event processing.
//
// Example — stream all events:
//
//	stream, err := agentcli.Query(ctx, "What is 2+2?")
//	if err != nil { ... }
//	for event := range stream.Events() {
//	    switch event.Type {
//	    case agentcli.TypeAssistant:
//	        fmt.Print(event.Assistant.Text())
//	    case agentcli.TypeResult:
//	        fmt.Println("session:", event.Result.SessionID)
//	    }
//	}
func Query(ctx context.Context, prompt string, opts ...Option) (*Stream, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return spawnStream(ctx, o, prompt)
}

// Run is a convenience wrapper around Query that blocks until the agent
// finishes and returns only the final ResultMessage.
//
// Intermediate events (streaming deltas, system messages) are discarded.
// Use Query directly to process them.
func Run(ctx context.Context, prompt string, opts ...Option) (*ResultMessage, error) {
	stream, err := Query(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	for event := range stream.Events() {
		switch event.Type {
		case TypeResult:
			r := event.Result
			if r.IsError {
				msg := r.Subtype
				if len(r.Errors) > 0 {
					msg = strings.Join(r.Errors, "; ")
				}
				return nil, fmt.Errorf("agentcli: agent error (%s): %s", r.Subtype, msg)
			}
			return r, nil
		case TypeSystem:
			if event.System != nil && event.System.Subtype == "error" {
				return nil, fmt.Errorf("agentcli: %s", event.System.Message)
			}
		}
	}

	return nil, fmt.Errorf("agentcli: agent finished without a result message")
}
