package wire

import (
	"context"
	"encoding/json"
)

// Transport is the opaque bidirectional connection to the agent CLI that the
// control-protocol engine is built against (spec §4.2). The engine never
// looks past this contract: it does not retry a failed launch, does not
// inspect the subprocess, and treats every method as potentially blocking.
type Transport interface {
	// Connect establishes the underlying channels. It is idempotent after
	// the first successful call and returns a TransportError-flavoured error
	// on launch failure.
	Connect(ctx context.Context) error

	// Write serializes one frame. Safe for concurrent invocation from the
	// control client and the session facade's send path.
	Write(v any) error

	// Frames returns the channel of raw JSON lines read from the CLI. The
	// channel is closed when the CLI closes its output stream or the
	// transport is closed; callers should then consult Err.
	Frames() <-chan json.RawMessage

	// Err returns the error that caused Frames to close, if it closed
	// abnormally. Safe to call only after Frames is observed closed.
	Err() error

	// EndInput signals "no more prompts" to the CLI, used during graceful
	// shutdown. Safe to call multiple times.
	EndInput() error

	// Close terminates the subprocess/connection. Safe to call multiple
	// times and from multiple goroutines.
	Close() error
}
