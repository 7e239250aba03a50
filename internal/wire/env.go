package wire

import (
	"fmt"
	"os"
	"strings"
)

// EnvConfig carries the subprocess-environment knobs the engine needs to set.
// It is deliberately narrow — argument construction and everything else
// about the CLI invocation lives with the caller (spec: "CLI argument
// serialization" is out of the engine's scope).
type EnvConfig struct {
	// Entrypoint identifies this SDK to the CLI for telemetry purposes.
	Entrypoint string
	// SDKVersion is reported alongside Entrypoint.
	SDKVersion string
	// MaxThinkingTokens, when > 0, is exported as MAX_THINKING_TOKENS.
	MaxThinkingTokens int
	// DisableThinking forces MAX_THINKING_TOKENS=0, taking precedence over
	// MaxThinkingTokens.
	DisableThinking bool
	// Extra holds additional environment variables, applied last so they
	// win over both the inherited environment and the SDK's own variables.
	Extra map[string]string
}

// BuildEnv returns the environment for the subprocess:
//   - inherits the parent process environment,
//   - strips CLAUDECODE so the subprocess can launch even from inside an
//     existing agent session,
//   - strips CLAUDE_CODE_ENTRYPOINT and MAX_THINKING_TOKENS so this SDK's
//     values always win,
//   - merges cfg.Extra last.
func BuildEnv(cfg EnvConfig) []string {
	parent := os.Environ()
	out := make([]string, 0, len(parent)+4+len(cfg.Extra))

	for _, e := range parent {
		switch {
		case strings.HasPrefix(e, "CLAUDECODE="),
			strings.HasPrefix(e, "CLAUDE_CODE_ENTRYPOINT="),
			strings.HasPrefix(e, "MAX_THINKING_TOKENS="):
			continue
		}
		if idx := strings.IndexByte(e, '='); idx > 0 {
			if _, overridden := cfg.Extra[e[:idx]]; overridden {
				continue
			}
		}
		out = append(out, e)
	}

	if cfg.Entrypoint != "" {
		out = append(out, "CLAUDE_CODE_ENTRYPOINT="+cfg.Entrypoint)
	}
	if cfg.SDKVersion != "" {
		out = append(out, "CLAUDE_AGENT_SDK_VERSION="+cfg.SDKVersion)
	}
	if cfg.DisableThinking {
		out = append(out, "MAX_THINKING_TOKENS=0")
	} else if cfg.MaxThinkingTokens > 0 {
		out = append(out, fmt.Sprintf("MAX_THINKING_TOKENS=%d", cfg.MaxThinkingTokens))
	}
	for k, v := range cfg.Extra {
		out = append(out, k+"="+v)
	}
	return out
}
