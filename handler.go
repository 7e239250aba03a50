package agentcli

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shaharia-lab/agentcli-sdk-go/internal/wire"
)

// lifecycleState is the Created->Started->Initialized->Disposed state
// machine that owns one subprocess connection (spec §5, "Lifecycle").
type lifecycleState int32

const (
	stateCreated lifecycleState = iota
	stateStarted
	stateInitialized
	stateDisposed
)

// engine ties the reader goroutine, the correlation table, the control
// client/server, and the hook registry to one Transport's lifetime, and is
// the shared implementation behind both the one-shot Query/Run API
// (client.go) and the persistent Session facade (session.go).
type engine struct {
	transport wire.Transport
	table     *correlationTable
	control   *controlClient
	server    *controlServer
	hooks     *hookRegistry
	reader    *reader
	events    chan Event
	log       *slog.Logger

	mu      sync.Mutex
	state   lifecycleState
	group   *errgroup.Group
	groupCt context.Context
	cancel  context.CancelFunc
}

// newEngine wires together one Transport's worth of protocol machinery. The
// engine is in stateCreated until start is called.
func newEngine(t wire.Transport, hooks map[HookEvent][]HookMatcher, perm PermissionHandler, metrics func(*ResultMessage), log *slog.Logger) *engine {
	if log == nil {
		log = discardLogger()
	}
	table := newCorrelationTable()
	registry := newHookRegistry()
	server := newControlServer(t, registry, perm, log)
	control := newControlClient(t, table)
	events := make(chan Event, 32)
	rd := newReader(t, table, server, events, metrics, log)

	return &engine{
		transport: t,
		table:     table,
		control:   control,
		server:    server,
		hooks:     registry,
		reader:    rd,
		events:    events,
		log:       log.With("component", "engine"),
	}
}

// start connects the transport, launches the reader goroutine under an
// errgroup whose context dispose cancels and whose Wait dispose blocks on,
// and sends the initialize control request built from the configured hooks.
func (e *engine) start(ctx context.Context, opts *Options) error {
	e.mu.Lock()
	if e.state != stateCreated {
		e.mu.Unlock()
		return nil
	}
	e.state = stateStarted
	groupCtx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(groupCtx)
	e.group = group
	e.groupCt = gctx
	e.cancel = cancel
	e.mu.Unlock()

	if err := e.transport.Connect(ctx); err != nil {
		e.dispose(err)
		return err
	}

	group.Go(func() error {
		e.reader.run(gctx)
		return nil
	})

	hooksPayload := e.hooks.build(opts.Hooks)
	if err := e.control.Initialize(ctx, opts, hooksPayload); err != nil {
		e.dispose(err)
		return err
	}

	e.mu.Lock()
	e.state = stateInitialized
	e.mu.Unlock()
	return nil
}

// Events returns the channel of conversation events. Closed on dispose.
func (e *engine) Events() <-chan Event { return e.events }

// Send writes a user-message frame to the transport.
func (e *engine) Send(prompt string) error {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	if state == stateDisposed {
		return ErrSessionDisposed
	}
	if state != stateInitialized {
		return ErrNotStarted
	}
	if err := e.transport.Write(newUserMessage(prompt)); err != nil {
		return &TransportError{Op: "write user message", Err: err}
	}
	return nil
}

// dispose tears the engine down: cancels the reader, fails every pending
// control request with cause (or ErrConnectionClosed), and closes the
// transport. Control requests made afterwards fail with ErrSessionDisposed.
// Idempotent (P8).
func (e *engine) dispose(cause error) error {
	e.mu.Lock()
	if e.state == stateDisposed {
		e.mu.Unlock()
		return nil
	}
	e.state = stateDisposed
	cancel := e.cancel
	group := e.group
	e.mu.Unlock()

	if cause == nil {
		cause = ErrConnectionClosed
	}
	e.table.shutdown(cause)
	e.table.mu.Lock()
	e.table.closeErr = ErrSessionDisposed
	e.table.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	closeErr := e.transport.Close()
	if group != nil {
		_ = group.Wait()
	}
	if closeErr != nil {
		return &TransportError{Op: "close", Err: closeErr}
	}
	return nil
}

// Close is the public idempotent teardown entry point.
func (e *engine) Close() error {
	return e.dispose(nil)
}
