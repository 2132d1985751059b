package hookrelay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/osi4iot/hookrelay/internal/engine"
	"github.com/osi4iot/hookrelay/internal/hooks"
	"github.com/osi4iot/hookrelay/internal/security"
)

type fakeHandler struct {
	decision    hooks.Decision
	composition engine.Composition
	composeErr  error
	lastReq     hooks.Request
}

func (f *fakeHandler) Dispatch(_ context.Context, req hooks.Request) hooks.Decision {
	f.lastReq = req
	d := f.decision
	d.Event = req.Event
	return d
}

func (f *fakeHandler) Compose(context.Context, string, engine.ComposeOptions) (engine.Composition, error) {
	return f.composition, f.composeErr
}

func testServer(h Handler) *Server {
	return &Server{
		id:      "test",
		handler: h,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func roundTrip(t *testing.T, s *Server, req any) Reply {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	var reply Reply
	if err := sonic.Unmarshal(s.handle(context.Background(), data), &reply); err != nil {
		t.Fatalf("reply is not JSON: %v", err)
	}
	return reply
}

func TestHandleDispatchAllow(t *testing.T) {
	h := &fakeHandler{decision: hooks.Decision{ID: "d1", Outcome: hooks.Allow, InjectedContext: []string{"CTX-123"}}}
	s := testServer(h)

	reply := roundTrip(t, s, Request{
		ID:      "r1",
		Event:   "UserPromptSubmit",
		Payload: json.RawMessage(`{"prompt":"hello"}`),
	})

	if reply.ID != "r1" || reply.Code != "" {
		t.Fatalf("reply = %+v", reply)
	}
	if h.lastReq.Event != hooks.UserPromptSubmit {
		t.Errorf("dispatched event = %s", h.lastReq.Event)
	}
	if reply.Decision == nil || reply.Decision.Outcome != hooks.Allow || reply.Decision.ID != "d1" {
		t.Errorf("Decision = %+v", reply.Decision)
	}
	var payload map[string]string
	if err := json.Unmarshal(reply.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["prompt"] != "CTX-123\n\nhello" {
		t.Errorf("prompt = %q", payload["prompt"])
	}
}

func TestHandleDispatchBlock(t *testing.T) {
	h := &fakeHandler{decision: hooks.Decision{Outcome: hooks.Block, Reason: "nope"}}
	reply := roundTrip(t, testServer(h), Request{Event: "PreToolUse", Payload: json.RawMessage(`{"tool_name":"Bash"}`)})

	if reply.Code != CodeBlocked || reply.Payload != nil {
		t.Errorf("reply = %+v", reply)
	}
	if reply.ID == "" {
		t.Error("missing generated request id")
	}
	if reply.Decision == nil || reply.Decision.Reason != "nope" {
		t.Errorf("Decision = %+v", reply.Decision)
	}
}

func TestHandleInvalidRequests(t *testing.T) {
	s := testServer(&fakeHandler{})

	tests := []struct {
		name string
		data []byte
	}{
		{name: "not json", data: []byte("{")},
		{name: "unknown event", data: []byte(`{"event":"Whenever"}`)},
		{name: "unknown op", data: []byte(`{"op":"delete"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reply Reply
			if err := sonic.Unmarshal(s.handle(context.Background(), tt.data), &reply); err != nil {
				t.Fatal(err)
			}
			if reply.Code != CodeInvalidRequest || reply.Error == "" {
				t.Errorf("reply = %+v", reply)
			}
		})
	}
}

func TestHandleCompose(t *testing.T) {
	h := &fakeHandler{composition: engine.Composition{Kind: engine.Instruction, Command: "echo", Text: "Echo: hi"}}
	reply := roundTrip(t, testServer(h), Request{Op: OpCompose, Text: "/echo hi"})

	if reply.Code != "" || reply.Composition == nil {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.Composition.Text != "Echo: hi" || reply.Composition.Command != "echo" {
		t.Errorf("Composition = %+v", reply.Composition)
	}
}

func TestHandleComposeRejected(t *testing.T) {
	h := &fakeHandler{composeErr: &security.RejectedError{Kind: security.KindIdentifier, Input: "a;b", Reason: "bad"}}
	reply := roundTrip(t, testServer(h), Request{Op: OpCompose, Text: "/a;b"})

	if reply.Code != CodeRejected || reply.Composition != nil {
		t.Errorf("reply = %+v", reply)
	}
}
