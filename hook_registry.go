package agentcli

import (
	"encoding/json"
	"fmt"
	"sync"
)

// hookDescriptor is one entry in the hooks.<EventName> array of the
// initialize request (spec §4.6).
type hookDescriptor struct {
	Matcher         string   `json:"matcher,omitempty"`
	HookCallbackIDs []string `json:"hookCallbackIds"`
	Timeout         float64  `json:"timeout,omitempty"`
}

// hookRegistry maps generated callback IDs to host callbacks and is frozen
// once initialize has built it (spec §3, "HookRegistry").
//
// Build happens once, synchronously, in engine.start before the initialize
// request is sent; after that the map is read-only, so lookups take no lock (spec §5, "the hook
// registry is effectively immutable after initialization").
type hookRegistry struct {
	callbacks map[string]HookFunc
	frozen    bool
	mu        sync.Mutex // guards frozen only; callbacks is never mutated after freeze
}

func newHookRegistry() *hookRegistry {
	return &hookRegistry{callbacks: make(map[string]HookFunc)}
}

// build converts host-supplied HookMatchers into the initialize request's
// hooks payload and populates the callback-id -> HookFunc map. It must be
// called at most once; subsequent calls are no-ops (initialize idempotence,
// P3, applies transitively through here).
func (r *hookRegistry) build(hooks map[HookEvent][]HookMatcher) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return nil
	}
	r.frozen = true

	if len(hooks) == 0 {
		return map[string]any{}
	}

	out := make(map[string]any, len(hooks))
	n := 0
	for _, event := range hookEventKinds {
		matchers, ok := hooks[event]
		if !ok || len(matchers) == 0 {
			continue
		}
		var descriptors []hookDescriptor
		for _, matcher := range matchers {
			var ids []string
			for _, fn := range matcher.Hooks {
				id := fmt.Sprintf("hook_%d", n)
				n++
				r.callbacks[id] = fn
				ids = append(ids, id)
			}
			if len(ids) == 0 {
				continue
			}
			descriptors = append(descriptors, hookDescriptor{
				Matcher:         matcher.Matcher,
				HookCallbackIDs: ids,
				Timeout:         matcher.Timeout,
			})
		}
		if len(descriptors) > 0 {
			out[string(event)] = descriptors
		}
	}
	return out
}

// lookup resolves a callback ID. ok is false for unknown IDs (P6:
// unknown-callback-id leniency is handled by the caller, control_server.go).
func (r *hookRegistry) lookup(id string) (HookFunc, bool) {
	fn, ok := r.callbacks[id]
	return fn, ok
}

// parseHookInput decodes a raw hook_callback input payload into a typed
// HookInput, dispatching on hook_event_name via a fixed table (spec §4.6,
// "Runtime phase"). An unrecognised or missing hook_event_name yields a
// HookInput with only Common/Raw populated; callers treat that as a
// success/continue fallback (spec §4.5.2 point 2).
func parseHookInput(raw json.RawMessage) HookInput {
	var envelope struct {
		HookEventName HookEvent `json:"hook_event_name"`
		HookInputCommon
	}
	_ = json.Unmarshal(raw, &envelope)

	input := HookInput{
		HookEventName: envelope.HookEventName,
		Common:        envelope.HookInputCommon,
		Raw:           raw,
	}

	switch envelope.HookEventName {
	case HookEventPreToolUse:
		var v PreToolUseInput
		if json.Unmarshal(raw, &v) == nil {
			input.PreToolUse = &v
		}
	case HookEventPostToolUse:
		var v PostToolUseInput
		if json.Unmarshal(raw, &v) == nil {
			input.PostToolUse = &v
		}
	case HookEventPostToolUseFailure:
		var v PostToolUseFailureInput
		if json.Unmarshal(raw, &v) == nil {
			input.PostToolUseFailure = &v
		}
	case HookEventUserPromptSubmit:
		var v UserPromptSubmitInput
		if json.Unmarshal(raw, &v) == nil {
			input.UserPromptSubmit = &v
		}
	case HookEventStop:
		var v StopInput
		if json.Unmarshal(raw, &v) == nil {
			input.Stop = &v
		}
	case HookEventSubagentStart:
		var v SubagentStartInput
		if json.Unmarshal(raw, &v) == nil {
			input.SubagentStart = &v
		}
	case HookEventSubagentStop:
		var v SubagentStopInput
		if json.Unmarshal(raw, &v) == nil {
			input.SubagentStop = &v
		}
	case HookEventPreCompact:
		var v PreCompactInput
		if json.Unmarshal(raw, &v) == nil {
			input.PreCompact = &v
		}
	case HookEventPermissionRequest:
		var v PermissionRequestInput
		if json.Unmarshal(raw, &v) == nil {
			input.PermissionRequest = &v
		}
	case HookEventSessionStart:
		var v SessionStartInput
		if json.Unmarshal(raw, &v) == nil {
			input.SessionStart = &v
		}
	case HookEventSessionEnd:
		var v SessionEndInput
		if json.Unmarshal(raw, &v) == nil {
			input.SessionEnd = &v
		}
	case HookEventNotification:
		var v NotificationInput
		if json.Unmarshal(raw, &v) == nil {
			input.Notification = &v
		}
	}
	return input
}
