package agentcli

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// pendingRequest is the completion slot for one outstanding control request.
// Exactly one of result/err is ever sent, exactly once (spec §5, P1/P2).
type pendingRequest struct {
	resultCh chan json.RawMessage
	errCh    chan error
}

// correlationTable tracks in-flight outbound control requests by request_id
// so that control_response frames can be routed back to their caller
// (spec §4.4, "CorrelationTable").
type correlationTable struct {
	mu       sync.Mutex
	pending  map[string]*pendingRequest
	counter  uint64
	closed   bool
	closeErr error
}

func newCorrelationTable() *correlationTable {
	return &correlationTable{pending: make(map[string]*pendingRequest)}
}

// register allocates a fresh request_id and a completion slot for it. If the
// table has already been shut down, it returns the shutdown cause
// (ErrConnectionClosed when the cause was nil) immediately without
// allocating an ID (P8).
//
// The id is built as "req_" + a per-table monotone counter + "_" + a short
// random suffix, per spec §4.4/§3 (PendingRequest invariant) and P1 (every
// emitted frame carries the "req_" prefix).
func (t *correlationTable) register() (id string, slot *pendingRequest, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return "", nil, t.closeErrLocked()
	}
	id = "req_" + strconv.FormatUint(t.counter, 10) + "_" + uuid.NewString()[:8]
	t.counter++
	slot = &pendingRequest{
		resultCh: make(chan json.RawMessage, 1),
		errCh:    make(chan error, 1),
	}
	t.pending[id] = slot
	return id, slot, nil
}

// complete routes a control_response's payload to the matching pending
// request. An unknown request_id is tolerated and ignored (P7).
func (t *correlationTable) complete(requestID string, result json.RawMessage, respErr error) {
	t.mu.Lock()
	slot, ok := t.pending[requestID]
	if ok {
		delete(t.pending, requestID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	if respErr != nil {
		slot.errCh <- respErr
	} else {
		slot.resultCh <- result
	}
}

// cancel removes a pending request on caller-side context cancellation
// (spec §4.4, "Cancellation"). Returns true if it was still pending.
func (t *correlationTable) cancel(requestID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[requestID]
	if ok {
		delete(t.pending, requestID)
	}
	return ok
}

// shutdown marks the table closed and fails every still-pending request with
// cause (spec §5, "dispose... delivers ErrConnectionClosed to every pending
// control request"). Idempotent.
func (t *correlationTable) shutdown(cause error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.closeErr = cause
	pending := t.pending
	t.pending = make(map[string]*pendingRequest)
	t.mu.Unlock()

	for _, slot := range pending {
		slot.errCh <- cause
	}
}

func (t *correlationTable) closeErrLocked() error {
	if t.closeErr != nil {
		return t.closeErr
	}
	return ErrConnectionClosed
}
