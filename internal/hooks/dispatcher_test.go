package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type staticSource map[EventKind][]Registration

func (s staticSource) Registrations(event EventKind) []Registration {
	return s[event]
}

func mustRegister(t *testing.T, event EventKind, matcher, command string, timeout time.Duration, policy FailPolicy) Registration {
	t.Helper()
	reg, err := NewRegistration(event, matcher, command, timeout, policy)
	if err != nil {
		t.Fatalf("NewRegistration(%q) error = %v", command, err)
	}
	return reg
}

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(NewInvoker(0), nil)
}

func TestDispatchBlockOnFoobarPrompt(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	guard := writeScript(t, dir, "guard.sh", `if grep -q FOOBAR; then
  echo "prompt mentions FOOBAR" >&2
  exit 2
fi
exit 0
`)
	src := staticSource{
		UserPromptSubmit: {mustRegister(t, UserPromptSubmit, "", guard, 5*time.Second, FailOpen)},
	}

	d := newTestDispatcher()

	blocked := d.Dispatch(context.Background(), src, Request{Event: UserPromptSubmit, Payload: []byte(`{"prompt":"say FOOBAR"}`)})
	if blocked.Outcome != Block {
		t.Fatalf("Outcome = %s, want block", blocked.Outcome)
	}
	if blocked.Reason != "prompt mentions FOOBAR" {
		t.Errorf("Reason = %q", blocked.Reason)
	}
	if !errors.Is(blocked.Err(), ErrBlocked) {
		t.Errorf("Err() = %v, want ErrBlocked", blocked.Err())
	}

	allowed := d.Dispatch(context.Background(), src, Request{Event: UserPromptSubmit, Payload: []byte(`{"prompt":"say hello"}`)})
	if allowed.Outcome != Allow {
		t.Errorf("Outcome = %s, want allow", allowed.Outcome)
	}
	if allowed.Err() != nil {
		t.Errorf("Err() = %v, want nil", allowed.Err())
	}
}

func TestDispatchBlockStopsChain(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	marker := filepath.Join(dir, "second-ran")
	block := writeScript(t, dir, "block.sh", "echo denied >&2\nexit 2\n")
	second := writeScript(t, dir, "marker.sh", "touch '"+marker+"'\n")

	payloads := []string{`{}`, `{"prompt":"anything"}`, `{"tool_name":"Bash","tool_input":{"command":"ls"}}`, `not json at all`}

	for _, payload := range payloads {
		src := staticSource{
			PreToolUse: {
				mustRegister(t, PreToolUse, "", block, 5*time.Second, FailOpen),
				mustRegister(t, PreToolUse, "", second, 5*time.Second, FailOpen),
			},
		}
		decision := newTestDispatcher().Dispatch(context.Background(), src, Request{Event: PreToolUse, Payload: []byte(payload)})
		if decision.Outcome != Block {
			t.Errorf("payload %s: Outcome = %s, want block", payload, decision.Outcome)
		}
		if len(decision.Steps) != 1 {
			t.Errorf("payload %s: %d steps recorded, want 1", payload, len(decision.Steps))
		}
		if _, err := os.Stat(marker); !os.IsNotExist(err) {
			t.Fatalf("payload %s: second hook ran after a block", payload)
		}
	}
}

func TestDispatchInjectsAdditionalContext(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	enrich := writeScript(t, dir, "enrich.sh", `echo '{"hookSpecificOutput":{"hookEventName":"UserPromptSubmit","additionalContext":"CTX-123"}}'`+"\n")
	src := staticSource{
		UserPromptSubmit: {mustRegister(t, UserPromptSubmit, "", enrich, 5*time.Second, FailOpen)},
	}

	decision := newTestDispatcher().Dispatch(context.Background(), src, Request{Event: UserPromptSubmit, Payload: []byte(`{"prompt":"hello"}`)})
	if decision.Outcome != Allow {
		t.Fatalf("Outcome = %s, want allow", decision.Outcome)
	}
	if len(decision.InjectedContext) != 1 || decision.InjectedContext[0] != "CTX-123" {
		t.Errorf("InjectedContext = %v, want [CTX-123]", decision.InjectedContext)
	}
}

func TestDispatchContextAccumulatesInOrder(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	one := writeScript(t, dir, "one.sh", `echo '{"hookSpecificOutput":{"additionalContext":"one"}}'`+"\n")
	plain := writeScript(t, dir, "plain.sh", "echo 'not json'\n")
	failing := writeScript(t, dir, "fail.sh", "echo oops >&2\nexit 1\n")
	two := writeScript(t, dir, "two.sh", `echo '{"hookSpecificOutput":{"additionalContext":"two"}}'`+"\n")

	src := staticSource{
		SessionStart: {
			mustRegister(t, SessionStart, "", one, 5*time.Second, FailOpen),
			mustRegister(t, SessionStart, "", plain, 5*time.Second, FailOpen),
			mustRegister(t, SessionStart, "", failing, 5*time.Second, FailOpen),
			mustRegister(t, SessionStart, "", two, 5*time.Second, FailOpen),
		},
	}

	decision := newTestDispatcher().Dispatch(context.Background(), src, Request{Event: SessionStart, Payload: []byte(`{}`)})
	if decision.Outcome != Allow {
		t.Fatalf("Outcome = %s, want allow", decision.Outcome)
	}
	if strings.Join(decision.InjectedContext, ",") != "one,two" {
		t.Errorf("InjectedContext = %v, want [one two]", decision.InjectedContext)
	}
	if len(decision.Steps) != 4 || decision.Steps[2].ExitCode != 1 {
		t.Errorf("Steps = %+v", decision.Steps)
	}
	if decision.ContextText() != "one\ntwo" {
		t.Errorf("ContextText() = %q", decision.ContextText())
	}
}

func TestDispatchTimeoutPolicy(t *testing.T) {
	skipWithoutShell(t)

	tests := []struct {
		name    string
		policy  FailPolicy
		outcome Outcome
	}{
		{name: "fail open by default", policy: FailOpen, outcome: Allow},
		{name: "fail closed when configured", policy: FailClosed, outcome: Block},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := staticSource{
				PreToolUse: {mustRegister(t, PreToolUse, "", "sleep 5", 1*time.Second, tt.policy)},
			}

			start := time.Now()
			decision := newTestDispatcher().Dispatch(context.Background(), src, Request{Event: PreToolUse, Payload: []byte(`{}`)})
			if time.Since(start) > 4*time.Second {
				t.Errorf("dispatch took %v, timeout not enforced", time.Since(start))
			}

			if decision.Outcome != tt.outcome {
				t.Errorf("Outcome = %s, want %s", decision.Outcome, tt.outcome)
			}
			if len(decision.Steps) != 1 || !decision.Steps[0].TimedOut || decision.Steps[0].ExitCode != -1 {
				t.Errorf("Steps = %+v, want one timed out step", decision.Steps)
			}
			if tt.outcome == Block && !strings.Contains(decision.Reason, "timed out") {
				t.Errorf("Reason = %q", decision.Reason)
			}
		})
	}
}

func TestDispatchMatchers(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	touch := writeScript(t, dir, "touch.sh", "echo x >> '"+marker+"'\n")

	tests := []struct {
		name    string
		matcher string
		subject string
		payload string
		ran     bool
	}{
		{name: "explicit subject regex", matcher: "^SlashCommand/", subject: "SlashCommand/echo", payload: `{}`, ran: true},
		{name: "explicit subject mismatch", matcher: "^SlashCommand/", subject: "Bash", payload: `{}`, ran: false},
		{name: "subject from tool_name", matcher: "Bash", payload: `{"tool_name":"Bash"}`, ran: true},
		{name: "tool_name mismatch", matcher: "Bash", payload: `{"tool_name":"Edit"}`, ran: false},
		{name: "wildcard", matcher: "*", payload: `{}`, ran: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(marker)
			src := staticSource{PreToolUse: {mustRegister(t, PreToolUse, tt.matcher, touch, 5*time.Second, FailOpen)}}
			newTestDispatcher().Dispatch(context.Background(), src, Request{Event: PreToolUse, Subject: tt.subject, Payload: []byte(tt.payload)})
			_, err := os.Stat(marker)
			if ran := err == nil; ran != tt.ran {
				t.Errorf("hook ran = %v, want %v", ran, tt.ran)
			}
		})
	}
}

func TestDispatchJSONDecisions(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	tests := []struct {
		name    string
		output  string
		outcome Outcome
		reason  string
		body    string
	}{
		{name: "decision block does not refuse", output: `{"decision":"block","reason":"not on fridays"}`, outcome: Allow},
		{name: "continue false does not refuse", output: `{"continue":false,"stopReason":"halt"}`, outcome: Allow},
		{name: "context beside a decision key", output: `{"decision":"block","hookSpecificOutput":{"additionalContext":"on call: sam"}}`, outcome: Allow},
		{name: "approve is allow", output: `{"decision":"approve","reason":"fine"}`, outcome: Allow},
		{name: "modified body", output: `{"hookSpecificOutput":{"modifiedBody":"rewritten prompt"}}`, outcome: Modify, body: "rewritten prompt"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeScript(t, dir, "out"+string(rune('a'+i))+".sh", "cat <<'EOF'\n"+tt.output+"\nEOF\n")
			src := staticSource{UserPromptSubmit: {mustRegister(t, UserPromptSubmit, "", script, 5*time.Second, FailOpen)}}

			decision := newTestDispatcher().Dispatch(context.Background(), src, Request{Event: UserPromptSubmit, Payload: []byte(`{"prompt":"x"}`)})
			if decision.Outcome != tt.outcome {
				t.Fatalf("Outcome = %s, want %s", decision.Outcome, tt.outcome)
			}
			if tt.reason != "" && decision.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", decision.Reason, tt.reason)
			}
			if tt.body != "" && string(decision.ModifiedBody) != tt.body {
				t.Errorf("ModifiedBody = %q, want %q", decision.ModifiedBody, tt.body)
			}
		})
	}
}

func TestBlockedErrorMessage(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	tests := []struct {
		name   string
		script string
		body   string
		want   string
	}{
		{name: "stderr reason", script: "reason.sh", body: "echo 'no secrets' >&2; exit 2\n", want: "PreToolUse blocked by hook: no secrets"},
		{name: "silent block names the command", script: "silent.sh", body: "exit 2\n", want: "PreToolUse blocked by hook: " + filepath.Join(dir, "silent.sh")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeScript(t, dir, tt.script, tt.body)
			src := staticSource{PreToolUse: {mustRegister(t, PreToolUse, "", script, 5*time.Second, FailOpen)}}

			decision := newTestDispatcher().Dispatch(context.Background(), src, Request{Event: PreToolUse, Payload: []byte(`{"tool_name":"Bash"}`)})
			err := decision.Err()
			if err == nil {
				t.Fatal("expected a block")
			}
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestDispatchNoRegistrations(t *testing.T) {
	decision := newTestDispatcher().Dispatch(context.Background(), staticSource{}, Request{Event: Notification, Payload: []byte(`{}`)})
	if decision.Outcome != Allow || len(decision.Steps) != 0 || decision.ID == "" {
		t.Errorf("decision = %+v", decision)
	}
	if decision.Event != Notification {
		t.Errorf("Event = %s", decision.Event)
	}
}

func TestDispatchDoesNotMutatePayload(t *testing.T) {
	skipWithoutShell(t)

	payload := []byte(`{"prompt":"keep me"}`)
	original := append([]byte(nil), payload...)
	src := staticSource{UserPromptSubmit: {mustRegister(t, UserPromptSubmit, "", "cat >/dev/null", 5*time.Second, FailOpen)}}

	first := newTestDispatcher().Dispatch(context.Background(), src, Request{Event: UserPromptSubmit, Payload: payload})
	second := newTestDispatcher().Dispatch(context.Background(), src, Request{Event: UserPromptSubmit, Payload: payload})

	if !bytes.Equal(payload, original) {
		t.Errorf("payload mutated: %s", payload)
	}
	if first.Outcome != second.Outcome || len(first.Steps) != len(second.Steps) {
		t.Errorf("repeat dispatch differs: %+v vs %+v", first, second)
	}
}

func TestFanoutRunsAllHooks(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	src := staticSource{
		Stop: {
			mustRegister(t, Stop, "", "touch '"+a+"'", 5*time.Second, FailOpen),
			mustRegister(t, Stop, "", "exit 7", 5*time.Second, FailOpen),
			mustRegister(t, Stop, "", "touch '"+b+"'", 5*time.Second, FailOpen),
		},
	}

	err := newTestDispatcher().Fanout(context.Background(), src, Request{Event: Stop, Payload: []byte(`{}`)})
	if !errors.Is(err, ErrHookExecution) {
		t.Errorf("Fanout() error = %v, want ErrHookExecution", err)
	}
	var herr *HookExecutionError
	if !errors.As(err, &herr) || herr.ExitCode != 7 {
		t.Errorf("expected exit code 7 in %v", err)
	}
	for _, p := range []string{a, b} {
		if _, statErr := os.Stat(p); statErr != nil {
			t.Errorf("hook writing %s did not run", filepath.Base(p))
		}
	}
}

func TestDecisionJSON(t *testing.T) {
	d := Decision{
		ID:              "id-1",
		Event:           UserPromptSubmit,
		Outcome:         Modify,
		InjectedContext: []string{"ctx"},
		ModifiedBody:    []byte("new body"),
	}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, want := range []string{`"outcome":"modify"`, `"event":"UserPromptSubmit"`, `"modifiedBody":"new body"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("%s missing %s", data, want)
		}
	}

	var back Decision
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Outcome != Modify || string(back.ModifiedBody) != "new body" || back.Event != UserPromptSubmit {
		t.Errorf("decoded = %+v", back)
	}
}
