package agentcli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// ThinkingMode controls the agent's extended thinking behaviour.
type ThinkingMode string

const (
	// ThinkingAdaptive lets the agent decide when to think (default).
	ThinkingAdaptive ThinkingMode = "adaptive"
	// ThinkingDisabled turns off extended thinking. Also sets
	// MAX_THINKING_TOKENS=0 in the subprocess environment.
	ThinkingDisabled ThinkingMode = "disabled"
	// ThinkingEnabled always enables extended thinking.
	ThinkingEnabled ThinkingMode = "enabled"
)

// EffortLevel controls reasoning effort via the --effort flag.
type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// SdkPluginConfig configures a plugin loaded for a session. Currently only
// local plugins (type "local") are supported; each plugin directory must
// contain a .claude-plugin/plugin.json manifest.
type SdkPluginConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// SettingSource identifies which settings file(s) the CLI subprocess should
// load. By default the SDK loads NO settings files (isolation mode).
type SettingSource string

const (
	SettingSourceUser    SettingSource = "user"
	SettingSourceProject SettingSource = "project"
	SettingSourceLocal   SettingSource = "local"
)

// AgentDefinition configures a named sub-agent the CLI can spawn.
type AgentDefinition struct {
	Description     string   `json:"description,omitempty"`
	Prompt          string   `json:"prompt,omitempty"`
	Tools           []string `json:"tools,omitempty"`
	DisallowedTools []string `json:"disallowedTools,omitempty"`
	Model           string   `json:"model,omitempty"`
	MaxTurns        int      `json:"maxTurns,omitempty"`
	McpServers      []string `json:"mcpServers,omitempty"`
	Skills          []string `json:"skills,omitempty"`
}

// OutputFormat configures structured output from the agent.
type OutputFormat struct {
	Type   string         `json:"type"`
	Schema map[string]any `json:"schema,omitempty"`
}

// NetworkSandboxSettings controls network access for sandboxed command
// execution.
type NetworkSandboxSettings struct {
	AllowLocalBinding   bool     `json:"allowLocalBinding,omitempty"`
	AllowUnixSockets    []string `json:"allowUnixSockets,omitempty"`
	AllowAllUnixSockets bool     `json:"allowAllUnixSockets,omitempty"`
	HTTPProxyPort       int      `json:"httpProxyPort,omitempty"`
	SOCKSProxyPort      int      `json:"socksProxyPort,omitempty"`
}

// SandboxIgnoreViolations lists patterns for which sandbox violations are
// silently ignored.
type SandboxIgnoreViolations struct {
	File    []string `json:"file,omitempty"`
	Network []string `json:"network,omitempty"`
}

// SandboxSettings configures command execution sandboxing for the session.
type SandboxSettings struct {
	Enabled                   bool                     `json:"enabled,omitempty"`
	AutoAllowBashIfSandboxed  bool                     `json:"autoAllowBashIfSandboxed,omitempty"`
	ExcludedCommands          []string                 `json:"excludedCommands,omitempty"`
	AllowUnsandboxedCommands  bool                     `json:"allowUnsandboxedCommands,omitempty"`
	Network                   *NetworkSandboxSettings  `json:"network,omitempty"`
	IgnoreViolations          *SandboxIgnoreViolations `json:"ignoreViolations,omitempty"`
	EnableWeakerNestedSandbox bool                     `json:"enableWeakerNestedSandbox,omitempty"`
}

// Options holds all configuration for a Query/Run/NewSession call. Use the
// With* functional options rather than constructing this directly.
type Options struct {
	Model              string
	SystemPrompt       string
	AppendSystemPrompt string

	SessionID   string
	Continue    bool
	ForkSession bool

	AllowedTools    []string
	DisallowedTools []string

	Thinking          ThinkingMode
	MaxThinkingTokens int
	MaxTurns          int
	Effort            EffortLevel

	Betas         []string
	FallbackModel string
	MaxBudgetUSD  float64

	OutputFormat            *OutputFormat
	EnableFileCheckpointing bool
	StrictMcpConfig         bool
	CWD                     string

	PermissionMode                   PermissionMode
	AllowDangerouslySkipPermissions  bool
	PermissionPromptToolName         string
	PermissionHandler                PermissionHandler

	IncludePartialMessages bool

	McpServers map[string]any
	Agents     map[string]AgentDefinition
	Hooks      map[HookEvent][]HookMatcher

	Plugins        []SdkPluginConfig
	SettingSources []SettingSource

	Env     map[string]string
	Sandbox *SandboxSettings

	// Executable is the path to the agent CLI binary. Defaults to "claude".
	Executable string

	// Logger receives structured diagnostics from every engine component. A
	// nil Logger (the default) discards all log output.
	Logger *slog.Logger

	// MetricsSink, when set, is invoked fire-and-forget with every
	// ResultMessage the agent emits. Panics inside the sink are recovered.
	MetricsSink func(*ResultMessage)
}

// Option is a functional option for configuring a Query/Run/NewSession call.
type Option func(*Options)

func WithModel(model string) Option { return func(o *Options) { o.Model = model } }

func WithSystemPrompt(prompt string) Option { return func(o *Options) { o.SystemPrompt = prompt } }

func WithAppendSystemPrompt(prompt string) Option {
	return func(o *Options) { o.AppendSystemPrompt = prompt }
}

func WithSessionID(id string) Option { return func(o *Options) { o.SessionID = id } }

// WithContinue resumes the most recent conversation session.
func WithContinue() Option { return func(o *Options) { o.Continue = true } }

// WithForkSession forks the resumed session into a new session ID. Use
// together with WithSessionID or WithContinue.
func WithForkSession() Option { return func(o *Options) { o.ForkSession = true } }

func WithAllowedTools(tools ...string) Option { return func(o *Options) { o.AllowedTools = tools } }

func WithDisallowedTools(tools ...string) Option {
	return func(o *Options) { o.DisallowedTools = tools }
}

func WithThinking(mode ThinkingMode) Option { return func(o *Options) { o.Thinking = mode } }

func WithMaxThinkingTokens(n int) Option { return func(o *Options) { o.MaxThinkingTokens = n } }

func WithMaxTurns(n int) Option { return func(o *Options) { o.MaxTurns = n } }

func WithEffort(level EffortLevel) Option { return func(o *Options) { o.Effort = level } }

// WithBetas enables one or more beta feature flags.
func WithBetas(betas ...string) Option {
	return func(o *Options) { o.Betas = append(o.Betas, betas...) }
}

// WithFallbackModel sets the fallback model when the primary model is
// unavailable.
func WithFallbackModel(model string) Option {
	return func(o *Options) { o.FallbackModel = model }
}

// WithMaxBudgetUSD sets the maximum cost budget in USD for the run.
func WithMaxBudgetUSD(usd float64) Option { return func(o *Options) { o.MaxBudgetUSD = usd } }

// WithOutputFormat sets structured output format.
func WithOutputFormat(f *OutputFormat) Option { return func(o *Options) { o.OutputFormat = f } }

// WithEnableFileCheckpointing enables file checkpointing.
func WithEnableFileCheckpointing() Option {
	return func(o *Options) { o.EnableFileCheckpointing = true }
}

// WithStrictMcpConfig enables strict MCP configuration validation.
func WithStrictMcpConfig() Option { return func(o *Options) { o.StrictMcpConfig = true } }

// WithCWD sets the working directory for the CLI subprocess.
func WithCWD(dir string) Option { return func(o *Options) { o.CWD = dir } }

func WithPermissionMode(mode PermissionMode) Option {
	return func(o *Options) { o.PermissionMode = mode }
}

// WithBypassPermissions enables bypassPermissions mode (the SDK default).
func WithBypassPermissions() Option {
	return func(o *Options) {
		o.PermissionMode = PermissionModeBypassPermissions
		o.AllowDangerouslySkipPermissions = true
	}
}

// WithPermissionPromptToolName sets the MCP tool name used for permission
// prompts.
func WithPermissionPromptToolName(name string) Option {
	return func(o *Options) { o.PermissionPromptToolName = name }
}

// WithPermissionHandler sets a callback invoked for each can_use_tool
// request.
func WithPermissionHandler(h PermissionHandler) Option {
	return func(o *Options) { o.PermissionHandler = h }
}

func WithIncludePartialMessages() Option {
	return func(o *Options) { o.IncludePartialMessages = true }
}

// WithMcpServers sets external MCP server configurations. Values should be
// McpStdioServer, McpHTTPServer, or McpSSEServer.
func WithMcpServers(servers map[string]any) Option {
	return func(o *Options) { o.McpServers = servers }
}

// WithAgents configures named sub-agents available to the CLI.
func WithAgents(agents map[string]AgentDefinition) Option {
	return func(o *Options) { o.Agents = agents }
}

// WithHooks configures lifecycle hook callbacks.
func WithHooks(hooks map[HookEvent][]HookMatcher) Option {
	return func(o *Options) { o.Hooks = hooks }
}

// WithPlugins registers one or more local plugins for the session.
func WithPlugins(plugins ...SdkPluginConfig) Option {
	return func(o *Options) { o.Plugins = append(o.Plugins, plugins...) }
}

// WithSettingSources controls which settings files are loaded by the
// subprocess. When not called, no filesystem settings are loaded.
func WithSettingSources(sources ...SettingSource) Option {
	return func(o *Options) { o.SettingSources = append(o.SettingSources, sources...) }
}

// WithEnv merges additional environment variables into the subprocess
// environment.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithSandbox configures command execution sandboxing for the session.
func WithSandbox(s *SandboxSettings) Option { return func(o *Options) { o.Sandbox = s } }

// WithExecutable sets the path to the agent CLI binary.
func WithExecutable(path string) Option { return func(o *Options) { o.Executable = path } }

// WithLogger sets the structured logger used by every engine component.
func WithLogger(log *slog.Logger) Option { return func(o *Options) { o.Logger = log } }

// WithMetricsSink registers a callback invoked with every ResultMessage.
func WithMetricsSink(sink func(*ResultMessage)) Option {
	return func(o *Options) { o.MetricsSink = sink }
}

func defaultOptions() *Options {
	return &Options{
		Model:                           "claude-sonnet-4-6",
		Thinking:                        ThinkingAdaptive,
		PermissionMode:                  PermissionModeBypassPermissions,
		AllowDangerouslySkipPermissions: true,
		Executable:                      "claude",
	}
}

// buildArgs constructs the CLI argument slice for the agent binary.
//
// Uses bidirectional mode (--input-format stream-json --output-format
// stream-json --verbose). The prompt and system prompt are not passed as
// CLI args; they travel over the control protocol instead.
func (o *Options) buildArgs() []string {
	args := []string{
		"--output-format", "stream-json",
		"--input-format", "stream-json",
		"--verbose",
	}

	if o.Model != "" {
		args = append(args, "--model", o.Model)
	}

	switch o.Thinking {
	case ThinkingAdaptive:
		args = append(args, "--thinking", "adaptive")
	case ThinkingDisabled:
		args = append(args, "--thinking", "disabled")
	case ThinkingEnabled:
		args = append(args, "--thinking", "enabled")
	}

	if o.MaxTurns > 0 {
		args = append(args, "--max-turns", fmt.Sprintf("%d", o.MaxTurns))
	}

	if o.Effort != "" {
		args = append(args, "--effort", string(o.Effort))
	}

	if o.SessionID != "" {
		args = append(args, "--resume", o.SessionID)
	}

	if o.Continue {
		args = append(args, "--continue")
	}

	if o.ForkSession {
		args = append(args, "--fork-session")
	}

	if len(o.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(o.AllowedTools, ","))
	}

	if len(o.DisallowedTools) > 0 {
		args = append(args, "--disallowedTools", strings.Join(o.DisallowedTools, ","))
	}

	if o.PermissionMode != "" {
		args = append(args, "--permission-mode", string(o.PermissionMode))
	}

	if o.AllowDangerouslySkipPermissions {
		args = append(args, "--allow-dangerously-skip-permissions")
	}

	if o.IncludePartialMessages {
		args = append(args, "--include-partial-messages")
	}

	if len(o.Betas) > 0 {
		args = append(args, "--betas", strings.Join(o.Betas, ","))
	}

	if o.FallbackModel != "" {
		args = append(args, "--fallback-model", o.FallbackModel)
	}

	if o.MaxBudgetUSD > 0 {
		args = append(args, "--max-budget-usd", fmt.Sprintf("%.6f", o.MaxBudgetUSD))
	}

	if o.EnableFileCheckpointing {
		args = append(args, "--enable-file-checkpointing")
	}

	if o.StrictMcpConfig {
		args = append(args, "--strict-mcp-config")
	}

	if o.CWD != "" {
		args = append(args, "--cwd", o.CWD)
	}

	if o.PermissionPromptToolName != "" {
		args = append(args, "--permission-prompt-tool-name", o.PermissionPromptToolName)
	}

	for _, p := range o.Plugins {
		if p.Path != "" {
			args = append(args, "--plugin-dir", p.Path)
		}
	}

	if len(o.SettingSources) > 0 {
		srcs := make([]string, len(o.SettingSources))
		for i, s := range o.SettingSources {
			srcs[i] = string(s)
		}
		args = append(args, "--setting-sources", strings.Join(srcs, ","))
	}

	if len(o.McpServers) > 0 {
		mcpCfg := map[string]any{"mcpServers": o.McpServers}
		if b, err := json.Marshal(mcpCfg); err == nil {
			args = append(args, "--mcp-config", string(b))
		}
	}

	return args
}
