// Package hookrelay exposes the dispatch engine over NATS request/reply so
// hosts in other processes can consult the same hooks and commands.
package hookrelay

import (
	"context"
	"encoding/json"

	"github.com/osi4iot/hookrelay/internal/config"
	"github.com/osi4iot/hookrelay/internal/engine"
	"github.com/osi4iot/hookrelay/internal/hooks"
)

// NATSConfig is the connection configuration shared by Server and Client.
type NATSConfig = config.NATSConfig

// Operations a Request can ask for.
const (
	OpDispatch = "dispatch"
	OpCompose  = "compose"
)

// Error codes carried in Reply.Code.
const (
	CodeBlocked        = "blocked"
	CodeRejected       = "rejected"
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal"
)

// Request is the message body sent to the service subject.
type Request struct {
	ID string `json:"id,omitempty"`
	// Op defaults to dispatch.
	Op        string          `json:"op,omitempty"`
	Event     string          `json:"event,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Text      string          `json:"text,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

// Reply answers a Request. Payload is the event payload rewritten for the
// host; it is empty when the event was blocked.
type Reply struct {
	ID          string              `json:"id"`
	Decision    *hooks.Decision     `json:"decision,omitempty"`
	Payload     json.RawMessage     `json:"payload,omitempty"`
	Composition *engine.Composition `json:"composition,omitempty"`
	Code        string              `json:"code,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Handler is the part of the engine the server needs.
type Handler interface {
	Dispatch(ctx context.Context, req hooks.Request) hooks.Decision
	Compose(ctx context.Context, text string, opts engine.ComposeOptions) (engine.Composition, error)
}
