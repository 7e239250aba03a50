package agentcli

import "context"

// Session maintains a persistent agent-CLI subprocess for multi-turn
// conversations. Unlike Run/Query (which spawn a new subprocess per call),
// Session keeps the subprocess alive between turns.
//
// Typical usage:
//
//	session, err := agentcli.NewSession(ctx, agentcli.WithModel("claude-sonnet-4-6"))
//	if err != nil { ... }
//	defer session.Close()
//
//	_ = session.Send("My name is Alice")
//	for event := range session.Events() {
//	    if event.Type == agentcli.TypeAssistant { fmt.Print(event.Assistant.Text()) }
//	    if event.Type == agentcli.TypeResult    { break }
//	}
//
//	_ = session.Send("What is my name?")
//	for event := range session.Events() {
//	    if event.Type == agentcli.TypeAssistant { fmt.Print(event.Assistant.Text()) }
//	    if event.Type == agentcli.TypeResult    { break }
//	}
type Session struct {
	engine *engine
}

// NewSession creates a new persistent session. The subprocess is started
// and initialized immediately; the first turn begins when Send is called.
func NewSession(ctx context.Context, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	t := newSubprocessTransport(o)
	e := newEngine(t, o.Hooks, o.PermissionHandler, o.MetricsSink, o.Logger)
	if err := e.start(ctx, o); err != nil {
		return nil, err
	}
	return &Session{engine: e}, nil
}

// Send sends a user message and starts a new turn. Call this before ranging
// over Events() for each turn (spec §4.7, "receive_turn").
func (s *Session) Send(prompt string) error {
	return s.engine.Send(prompt)
}

// Events returns the persistent event channel. Range over it until
// TypeResult to consume one turn's events, then call Send for the next
// turn. The channel is closed when the session ends.
func (s *Session) Events() <-chan Event { return s.engine.Events() }

// SetModel asks the CLI to switch to a different model mid-session.
func (s *Session) SetModel(ctx context.Context, model string) error {
	return s.engine.control.SetModel(ctx, model)
}

// SetPermissionMode asks the CLI to change the permission mode mid-session.
func (s *Session) SetPermissionMode(ctx context.Context, mode PermissionMode) error {
	return s.engine.control.SetPermissionMode(ctx, mode)
}

// SetMaxThinkingTokens asks the CLI to update the max thinking token budget.
func (s *Session) SetMaxThinkingTokens(ctx context.Context, n int) error {
	return s.engine.control.SetMaxThinkingTokens(ctx, n)
}

// RewindFiles asks the CLI to revert file edits made since the given user
// message.
func (s *Session) RewindFiles(ctx context.Context, userMessageID string) error {
	return s.engine.control.RewindFiles(ctx, userMessageID)
}

// SupportedCommands lists the slash commands the running CLI understands.
func (s *Session) SupportedCommands(ctx context.Context) ([]string, error) {
	return s.engine.control.SupportedCommands(ctx)
}

// SupportedModels lists the models the running CLI can switch to.
func (s *Session) SupportedModels(ctx context.Context) ([]string, error) {
	return s.engine.control.SupportedModels(ctx)
}

// McpServerStatus queries connection health for configured MCP servers.
func (s *Session) McpServerStatus(ctx context.Context) ([]McpServerStatusEntry, error) {
	return s.engine.control.McpServerStatus(ctx)
}

// AccountInfo queries the CLI's authenticated account info.
func (s *Session) AccountInfo(ctx context.Context) (AccountInfo, error) {
	return s.engine.control.AccountInfo(ctx)
}

// Interrupt asks the CLI to stop generating the current turn and waits for
// its acknowledgement. The session and its subprocess stay open.
func (s *Session) Interrupt(ctx context.Context) error {
	return s.engine.control.Interrupt(ctx)
}

// Close gracefully shuts down the session. Idempotent.
func (s *Session) Close() error { return s.engine.Close() }
