package wire

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecoderSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"user"}`,
		`not json at all`,
		``,
		`{"type":"result","is_error":false}`,
	}, "\n")

	dec := NewDecoder(strings.NewReader(input), nil)
	var got []string
	for {
		raw, ok := dec.Next()
		if !ok {
			break
		}
		got = append(got, string(raw))
	}
	require.NoError(t, dec.Err())
	require.Equal(t, []string{
		`{"type":"user"}`,
		`{"type":"result","is_error":false}`,
	}, got)
}

func TestEncoderWritesNewlineDelimitedJSON(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.NoError(t, enc.Write(map[string]any{"type": "user"}))
	require.NoError(t, enc.Write(map[string]any{"type": "control_request", "request_id": "req_1"}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "user", first["type"])
}

func TestEncoderConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf syncBuffer
	enc := NewEncoder(&buf)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			_ = enc.Write(map[string]any{"n": i})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 20)
	for _, l := range lines {
		require.True(t, json.Valid([]byte(l)))
	}
}

// syncBuffer is a plain bytes.Buffer with no lock of its own, so the
// concurrency test relies on Encoder's locking to keep writes from racing.
type syncBuffer struct {
	bytes.Buffer
}
