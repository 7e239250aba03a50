package agentcli

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shaharia-lab/agentcli-sdk-go/internal/wire"
)

// frameEnvelope is unmarshalled first from every inbound frame to recover
// its discriminant type field (spec §4.3, "MessageClassifier").
type frameEnvelope struct {
	Type MessageType `json:"type"`
}

// controlResponseFrame is the inbound shape of a control_response frame.
type controlResponseFrame struct {
	Response struct {
		Subtype   string          `json:"subtype"`
		RequestID string          `json:"request_id"`
		Response  json.RawMessage `json:"response"`
		Error     string          `json:"error"`
	} `json:"response"`
}

// reader owns the single goroutine that consumes wire.Transport.Frames(),
// classifies each one, and routes it to the correlation table, a detached
// control-server dispatch, or the bounded conversation channel (spec §4.3,
// §5 "single reader goroutine").
type reader struct {
	transport wire.Transport
	table     *correlationTable
	server    *controlServer
	events    chan Event
	metrics   func(*ResultMessage)
	log       *slog.Logger
}

func newReader(t wire.Transport, table *correlationTable, server *controlServer, events chan Event, metrics func(*ResultMessage), log *slog.Logger) *reader {
	if log == nil {
		log = discardLogger()
	}
	return &reader{
		transport: t,
		table:     table,
		server:    server,
		events:    events,
		metrics:   metrics,
		log:       log.With("component", "reader"),
	}
}

// run consumes frames until the transport's channel closes or ctx is
// cancelled. It never panics: a malformed or unrecognised frame is logged
// and skipped (P5). When it stops, every still-pending control request is
// failed with ErrConnectionClosed and the events channel is closed.
func (r *reader) run(ctx context.Context) {
	defer close(r.events)
	defer r.table.shutdown(ErrConnectionClosed)
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-r.transport.Frames():
			if !ok {
				return
			}
			r.handleFrame(ctx, frame)
		}
	}
}

func (r *reader) handleFrame(ctx context.Context, frame json.RawMessage) {
	var env frameEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		r.log.Warn("skipping malformed frame", "error", err)
		return
	}

	switch env.Type {
	case TypeControlResp:
		r.routeControlResponse(frame)
	case TypeControlReq:
		// Detached dispatch: a slow or misbehaving host callback must never
		// stall the reader loop (spec §4.5, §5).
		go r.server.dispatch(ctx, frame)
	default:
		event, err := parseConversationFrame(frame)
		if err != nil {
			r.log.Warn("failed to parse conversation frame", "type", env.Type, "error", err)
			return
		}
		if event.Result != nil && r.metrics != nil {
			go r.invokeMetrics(event.Result)
		}
		select {
		case r.events <- event:
		case <-ctx.Done():
		}
	}
}

func (r *reader) routeControlResponse(frame json.RawMessage) {
	var resp controlResponseFrame
	if err := json.Unmarshal(frame, &resp); err != nil {
		r.log.Warn("malformed control_response frame", "error", err)
		return
	}
	if resp.Response.Subtype == "error" {
		r.table.complete(resp.Response.RequestID, nil, &ProtocolError{Detail: resp.Response.Error})
		return
	}
	r.table.complete(resp.Response.RequestID, resp.Response.Response, nil)
}

// invokeMetrics fires the host metrics sink fire-and-forget, recovering any
// panic so a broken sink can never take down the reader (SPEC_FULL.md §4,
// "metrics_sink").
func (r *reader) invokeMetrics(result *ResultMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("metrics sink panicked", "panic", rec)
		}
	}()
	r.metrics(result)
}
