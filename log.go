package agentcli

import (
	"io"
	"log/slog"
)

// discardLogger returns the package default logger used when the host does
// not supply one via WithLogger (spec: ambient stack, structured logging).
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
