package agentcli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsBaseline(t *testing.T) {
	o := defaultOptions()
	require.Equal(t, "claude-sonnet-4-6", o.Model)
	require.Equal(t, ThinkingAdaptive, o.Thinking)
	require.Equal(t, PermissionModeBypassPermissions, o.PermissionMode)
	require.True(t, o.AllowDangerouslySkipPermissions)
	require.Equal(t, "claude", o.Executable)
}

func TestBuildArgsAlwaysIncludesStreamJSONMode(t *testing.T) {
	o := defaultOptions()
	args := o.buildArgs()
	require.Contains(t, args, "--output-format")
	require.Contains(t, args, "--input-format")
	require.Contains(t, args, "--verbose")
}

func TestBuildArgsModelAndThinking(t *testing.T) {
	o := defaultOptions()
	WithModel("claude-opus-4-6")(o)
	WithThinking(ThinkingDisabled)(o)
	args := o.buildArgs()
	require.Contains(t, args, "claude-opus-4-6")
	require.Contains(t, args, "disabled")
}

func TestBuildArgsSessionResumeAndFork(t *testing.T) {
	o := defaultOptions()
	WithSessionID("sess-123")(o)
	WithForkSession()(o)
	args := o.buildArgs()
	require.Contains(t, args, "--resume")
	require.Contains(t, args, "sess-123")
	require.Contains(t, args, "--fork-session")
}

func TestBuildArgsAllowedAndDisallowedToolsAreJoined(t *testing.T) {
	o := defaultOptions()
	WithAllowedTools("Bash", "Read")(o)
	WithDisallowedTools("Write")(o)
	args := o.buildArgs()
	require.Contains(t, args, "Bash,Read")
	require.Contains(t, args, "Write")
}

func TestBuildArgsOmitsZeroValueFlags(t *testing.T) {
	o := &Options{}
	args := o.buildArgs()
	require.NotContains(t, args, "--max-turns")
	require.NotContains(t, args, "--fallback-model")
	require.NotContains(t, args, "--max-budget-usd")
	require.NotContains(t, args, "--cwd")
}

func TestBuildArgsMcpServersMarshalToJSONFlag(t *testing.T) {
	o := defaultOptions()
	WithMcpServers(map[string]any{
		"fs": McpStdioServer{Type: "stdio", Command: "mcp-fs"},
	})(o)
	args := o.buildArgs()
	require.Contains(t, args, "--mcp-config")

	idx := -1
	for i, a := range args {
		if a == "--mcp-config" {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	require.Less(t, idx+1, len(args))
	require.Contains(t, args[idx+1], "mcpServers")
}

func TestWithBypassPermissionsSetsBothFields(t *testing.T) {
	o := &Options{}
	WithBypassPermissions()(o)
	require.Equal(t, PermissionModeBypassPermissions, o.PermissionMode)
	require.True(t, o.AllowDangerouslySkipPermissions)
}

func TestWithEnvMergesRatherThanReplaces(t *testing.T) {
	o := &Options{}
	WithEnv(map[string]string{"A": "1"})(o)
	WithEnv(map[string]string{"B": "2"})(o)
	require.Equal(t, "1", o.Env["A"])
	require.Equal(t, "2", o.Env["B"])
}

func TestWithBetasAppendsAcrossCalls(t *testing.T) {
	o := &Options{}
	WithBetas("beta1")(o)
	WithBetas("beta2", "beta3")(o)
	require.Equal(t, []string{"beta1", "beta2", "beta3"}, o.Betas)
}
