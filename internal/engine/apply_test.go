package engine

import (
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/osi4iot/hookrelay/internal/hooks"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		event    hooks.EventKind
		payload  string
		decision hooks.Decision
		path     string
		want     string
	}{
		{
			name:     "allow leaves payload",
			event:    hooks.UserPromptSubmit,
			payload:  `{"prompt":"hi"}`,
			decision: hooks.Decision{Outcome: hooks.Allow},
			path:     "prompt",
			want:     "hi",
		},
		{
			name:     "context prepended to prompt",
			event:    hooks.UserPromptSubmit,
			payload:  `{"prompt":"hi"}`,
			decision: hooks.Decision{Outcome: hooks.Allow, InjectedContext: []string{"A", "B"}},
			path:     "prompt",
			want:     "A\nB\n\nhi",
		},
		{
			name:     "modified prompt",
			event:    hooks.UserPromptSubmit,
			payload:  `{"prompt":"secret=123"}`,
			decision: hooks.Decision{Outcome: hooks.Modify, ModifiedBody: []byte("secret=[redacted]")},
			path:     "prompt",
			want:     "secret=[redacted]",
		},
		{
			name:     "modified prompt with context",
			event:    hooks.UserPromptSubmit,
			payload:  `{"prompt":"x"}`,
			decision: hooks.Decision{Outcome: hooks.Modify, ModifiedBody: []byte("y"), InjectedContext: []string{"C"}},
			path:     "prompt",
			want:     "C\n\ny",
		},
		{
			name:     "notification message",
			event:    hooks.Notification,
			payload:  `{"message":"waiting"}`,
			decision: hooks.Decision{Outcome: hooks.Allow, InjectedContext: []string{"note"}},
			path:     "message",
			want:     "note\n\nwaiting",
		},
		{
			name:     "tool events get a context field",
			event:    hooks.PreToolUse,
			payload:  `{"tool_name":"Bash"}`,
			decision: hooks.Decision{Outcome: hooks.Allow, InjectedContext: []string{"careful"}},
			path:     "additionalContext",
			want:     "careful",
		},
		{
			name:     "modified tool payload replaces body",
			event:    hooks.PreToolUse,
			payload:  `{"tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`,
			decision: hooks.Decision{Outcome: hooks.Modify, ModifiedBody: []byte(`{"tool_name":"Bash","tool_input":{"command":"ls"}}`)},
			path:     "tool_input.command",
			want:     "ls",
		},
		{
			name:     "invalid modified tool payload ignored",
			event:    hooks.PreToolUse,
			payload:  `{"tool_input":{"command":"ls"}}`,
			decision: hooks.Decision{Outcome: hooks.Modify, ModifiedBody: []byte("not json")},
			path:     "tool_input.command",
			want:     "ls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(tt.event, []byte(tt.payload), tt.decision)
			if err != nil {
				t.Fatal(err)
			}
			if got := gjson.GetBytes(out, tt.path).String(); got != tt.want {
				t.Errorf("%s = %q, want %q (payload %s)", tt.path, got, tt.want, out)
			}
		})
	}
}

func TestApplyBlock(t *testing.T) {
	d := hooks.Decision{Event: hooks.PreToolUse, Outcome: hooks.Block, Reason: "no"}
	out, err := Apply(hooks.PreToolUse, []byte(`{}`), d)
	if out != nil || !errors.Is(err, hooks.ErrBlocked) {
		t.Errorf("Apply = %s, %v", out, err)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	payload := []byte(`{"prompt":"hi"}`)
	if _, err := Apply(hooks.UserPromptSubmit, payload, hooks.Decision{InjectedContext: []string{"ctx"}}); err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"prompt":"hi"}` {
		t.Errorf("input modified: %s", payload)
	}
}
