package agentcli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ─── MCP server config types (spec §6, "Host-provided capabilities") ───────

// McpStdioServer configures an external MCP server launched as a subprocess.
// The CLI spawns the binary and communicates over its stdin/stdout.
type McpStdioServer struct {
	Type    string            `json:"type"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// McpHTTPServer configures an MCP server reachable over HTTP (streamable
// transport). This is how an in-process Go MCP server is exposed to the
// CLI: start an HTTP listener in this process and pass its URL here.
type McpHTTPServer struct {
	Type    string            `json:"type"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// McpSSEServer configures an MCP server reachable over SSE.
type McpSSEServer struct {
	Type    string            `json:"type"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// StartInProcessMCPServer starts an HTTP MCP server for the given mcp.Server
// and returns the McpHTTPServer config to pass to WithMcpServers.
//
// The HTTP listener is bound to a random local port on 127.0.0.1 and is
// stopped when ctx is cancelled. This is the bridge between in-process Go
// code and the CLI subprocess: the control protocol itself only
// acknowledges mcp_message notifications (see control_server.go), all
// traffic to an in-process server flows over this HTTP listener instead.
//
// Example:
//
//	mcpCfg, err := agentcli.StartInProcessMCPServer(ctx, "my-server", server)
//	if err != nil { ... }
//	result, err := agentcli.Run(ctx, prompt,
//	    agentcli.WithMcpServers(map[string]any{"my-server": mcpCfg}),
//	)
func StartInProcessMCPServer(ctx context.Context, name string, server *mcp.Server) (McpHTTPServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return McpHTTPServer{}, fmt.Errorf("agentcli: mcp %q: listen: %w", name, err)
	}

	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return server
	}, nil)

	httpServer := &http.Server{Handler: handler}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			_ = err
		}
	}()
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	return McpHTTPServer{Type: "http", URL: "http://" + listener.Addr().String()}, nil
}

// ServeStdioMCP runs server as an MCP stdio server, reading from os.Stdin
// and writing to os.Stdout. Intended for a standalone binary registered via
// McpStdioServer. Blocks until ctx is cancelled.
//
// The typical pattern is a self-invoking binary:
//
//	if slices.Contains(os.Args, "--mcp-server") {
//	    if err := agentcli.ServeStdioMCP(ctx, server); err != nil { ... }
//	    return
//	}
//	// Otherwise run as a normal agentcli client.
func ServeStdioMCP(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// SelfAsStdioMCPServer returns a McpStdioServer that runs the current binary
// with the given extra arguments, for the self-invoking stdio pattern above.
func SelfAsStdioMCPServer(extraArgs ...string) (McpStdioServer, error) {
	self, err := os.Executable()
	if err != nil {
		return McpStdioServer{}, fmt.Errorf("agentcli: resolve executable: %w", err)
	}
	return McpStdioServer{Type: "stdio", Command: self, Args: extraArgs}, nil
}
