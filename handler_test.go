package agentcli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*engine, *mockTransport) {
	t.Helper()
	transport := newMockTransport()
	e := newEngine(transport, nil, nil, nil, nil)
	return e, transport
}

// startAndRespond starts the engine in a goroutine (start blocks on the
// initialize control request) and completes that request once it's written.
func startAndRespond(t *testing.T, e *engine, transport *mockTransport, opts *Options) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- e.start(context.Background(), opts) }()

	require.Eventually(t, func() bool {
		return transport.findWrite("initialize") != nil
	}, time.Second, 5*time.Millisecond)

	w := transport.findWrite("initialize")
	id := w["request_id"].(string)
	e.table.complete(id, []byte(`{}`), nil)

	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for engine.start")
		return nil
	}
}

func TestEngineStartTransitionsToInitialized(t *testing.T) {
	e, transport := newTestEngine(t)
	err := startAndRespond(t, e, transport, defaultOptions())
	require.NoError(t, err)

	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	require.Equal(t, stateInitialized, state)
}

func TestEngineStartIsIdempotent(t *testing.T) {
	e, transport := newTestEngine(t)
	require.NoError(t, startAndRespond(t, e, transport, defaultOptions()))

	writesBefore := transport.writeCount()
	require.NoError(t, e.start(context.Background(), defaultOptions()))
	require.Equal(t, writesBefore, transport.writeCount())
}

func TestEngineSendBeforeInitializedFails(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.Send("hello")
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestEngineSendAfterInitializedWritesUserMessage(t *testing.T) {
	e, transport := newTestEngine(t)
	require.NoError(t, startAndRespond(t, e, transport, defaultOptions()))

	require.NoError(t, e.Send("hello there"))
	w := transport.lastWrite()
	require.Equal(t, "user", w["type"])
}

func TestEngineSendAfterDisposeFails(t *testing.T) {
	e, transport := newTestEngine(t)
	require.NoError(t, startAndRespond(t, e, transport, defaultOptions()))
	require.NoError(t, e.Close())

	err := e.Send("hello")
	require.ErrorIs(t, err, ErrSessionDisposed)
}

func TestEngineDisposeIsIdempotent(t *testing.T) {
	e, transport := newTestEngine(t)
	require.NoError(t, startAndRespond(t, e, transport, defaultOptions()))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

func TestEngineDisposeClosesEventsChannel(t *testing.T) {
	e, transport := newTestEngine(t)
	require.NoError(t, startAndRespond(t, e, transport, defaultOptions()))
	require.NoError(t, e.Close())

	select {
	case _, ok := <-e.Events():
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel was not closed after dispose")
	}
}

func TestEngineDisposeFailsPendingControlRequests(t *testing.T) {
	e, transport := newTestEngine(t)
	require.NoError(t, startAndRespond(t, e, transport, defaultOptions()))

	done := make(chan error, 1)
	go func() {
		_, err := e.control.request(context.Background(), "interrupt", nil)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return transport.findWrite("interrupt") != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, e.Close())

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pending request to fail on dispose")
	}
}
