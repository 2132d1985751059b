package hooks

import (
	"encoding/json"
)

// CommonInput contains fields common to payloads built by hookrelay itself
type CommonInput struct {
	SessionID     string    `json:"session_id,omitempty"` // Unique session identifier
	CWD           string    `json:"cwd"`                  // Current working directory
	HookEventName EventKind `json:"hook_event_name"`      // The hook event type
	Timestamp     int64     `json:"timestamp"`            // Unix timestamp when hook fired
}

// PreToolUseInput is passed to PreToolUse hooks
type PreToolUseInput struct {
	CommonInput
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
}

// PostToolUseInput is passed to PostToolUse hooks
type PostToolUseInput struct {
	CommonInput
	ToolName     string          `json:"tool_name"`
	ToolInput    json.RawMessage `json:"tool_input"`
	ToolResponse json.RawMessage `json:"tool_response"`
}

// UserPromptSubmitInput is passed to UserPromptSubmit hooks
type UserPromptSubmitInput struct {
	CommonInput
	Prompt string `json:"prompt"`
}

// HookOutput represents the JSON a hook may print on stdout with exit code 0.
// Other top-level keys are ignored.
type HookOutput struct {
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput carries per-event enrichment.
type HookSpecificOutput struct {
	HookEventName     string  `json:"hookEventName,omitempty"`
	AdditionalContext string  `json:"additionalContext,omitempty"`
	ModifiedBody      *string `json:"modifiedBody,omitempty"`
}

// parseHookOutput decodes stdout when it holds a JSON object. Anything else
// is treated as plain output and ignored.
func parseHookOutput(stdout []byte) (*HookOutput, bool) {
	trimmed := json.RawMessage(stdout)
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\n' || trimmed[0] == '\t' || trimmed[0] == '\r') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var out HookOutput
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, false
	}
	return &out, true
}
