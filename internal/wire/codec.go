// Package wire implements the newline-delimited JSON framing used between
// the SDK and the agent CLI subprocess, and the Transport contract the core
// control-protocol engine is built against.
package wire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// maxLineSize bounds a single JSON line. Assistant turns with long content
// blocks can be large; 8 MiB comfortably covers real transcripts.
const maxLineSize = 8 * 1024 * 1024

// Decoder reads newline-delimited JSON objects from an io.Reader.
//
// A malformed line is logged and skipped; it never poisons subsequent lines
// (spec: "no framing state is persisted between lines").
type Decoder struct {
	scanner *bufio.Scanner
	log     *slog.Logger
}

// NewDecoder wraps r as a line-delimited JSON frame source. A nil log
// discards diagnostics.
func NewDecoder(r io.Reader, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.New(discardHandler{})
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: scanner, log: log}
}

// Next returns the next well-formed JSON line as a raw message, skipping
// malformed or empty lines. ok is false once the stream is exhausted; callers
// should then check Err.
func (d *Decoder) Next() (raw json.RawMessage, ok bool) {
	for d.scanner.Scan() {
		line := d.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			d.log.Warn("wire: skipping malformed line", "bytes", len(line))
			continue
		}
		out := make(json.RawMessage, len(line))
		copy(out, line)
		return out, true
	}
	return nil, false
}

// Err returns the first non-EOF error encountered while scanning, if any.
func (d *Decoder) Err() error {
	return d.scanner.Err()
}

// Encoder writes values as newline-delimited JSON to an io.Writer.
//
// Write is safe for concurrent use: the spec requires a single writer
// discipline inside the transport so the control client and the session
// facade's send path can both call Write without external locking.
type Encoder struct {
	w  io.Writer
	mu sync.Mutex
}

// NewEncoder wraps w as a line-delimited JSON frame sink.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Write serializes v as one JSON object followed by a single newline.
func (e *Encoder) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: marshal frame: %w", err)
	}
	b = append(b, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(b)
	if err != nil {
		return fmt.Errorf("wire: write frame: %w", err)
	}
	return nil
}
