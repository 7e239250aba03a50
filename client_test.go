package agentcli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T) (*Stream, *mockTransport) {
	t.Helper()
	e, transport := newTestEngine(t)
	require.NoError(t, startAndRespond(t, e, transport, defaultOptions()))
	return &Stream{engine: e}, transport
}

func TestStreamEventsDelegatesToEngine(t *testing.T) {
	stream, transport := newTestStream(t)
	transport.push(map[string]any{
		"type":       "assistant",
		"message":    map[string]any{"role": "assistant", "content": []any{map[string]any{"type": "text", "text": "hi"}}},
		"session_id": "s1",
		"uuid":       "u1",
	})

	select {
	case event := <-stream.Events():
		require.Equal(t, TypeAssistant, event.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestStreamInterruptSendsControlRequest(t *testing.T) {
	stream, transport := newTestStream(t)

	done := make(chan error, 1)
	go func() { done <- stream.Interrupt(context.Background()) }()

	require.Eventually(t, func() bool {
		return transport.findWrite("interrupt") != nil
	}, time.Second, 5*time.Millisecond)

	w := transport.findWrite("interrupt")
	stream.engine.table.complete(w["request_id"].(string), []byte(`{}`), nil)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for interrupt")
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	stream, _ := newTestStream(t)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
}

// spawnStream itself launches a real subprocess transport, so this test runs
// the same start-then-Send sequence against a mockTransport.
func TestSpawnStreamSendsInitialPromptAfterInitialize(t *testing.T) {
	transport := newMockTransport()
	o := defaultOptions()

	done := make(chan struct {
		stream *Stream
		err    error
	}, 1)
	e := newEngine(transport, o.Hooks, o.PermissionHandler, o.MetricsSink, o.Logger)
	go func() {
		err := e.start(context.Background(), o)
		if err == nil {
			err = e.Send("what is 2+2?")
		}
		done <- struct {
			stream *Stream
			err    error
		}{&Stream{engine: e}, err}
	}()

	w := awaitWrite(t, transport, "initialize")
	e.table.complete(w["request_id"].(string), []byte(`{}`), nil)

	res := <-done
	require.NoError(t, res.err)

	last := transport.lastWrite()
	require.Equal(t, "user", last["type"])
}

// awaitWrite polls transport until a control_request with the given subtype
// has been written, and returns that write.
func awaitWrite(t *testing.T, transport *mockTransport, subtype string) map[string]any {
	t.Helper()
	require.Eventually(t, func() bool {
		return transport.findWrite(subtype) != nil
	}, time.Second, 5*time.Millisecond)
	return transport.findWrite(subtype)
}
