package agentcli

// SDKVersion is reported to the CLI subprocess via CLAUDE_AGENT_SDK_VERSION
// (see internal/wire.EnvConfig) and returned by Version for diagnostics.
const SDKVersion = "0.1.0"

// Version returns the SDK's semantic version string.
func Version() string { return SDKVersion }
