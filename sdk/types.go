package sdk

import (
	"github.com/osi4iot/hookrelay/internal/engine"
	"github.com/osi4iot/hookrelay/internal/hooks"
)

// Event is a lifecycle event kind
type Event = hooks.EventKind

// Lifecycle events a host can dispatch
const (
	SessionStart     = hooks.SessionStart
	UserPromptSubmit = hooks.UserPromptSubmit
	PreToolUse       = hooks.PreToolUse
	PostToolUse      = hooks.PostToolUse
	Notification     = hooks.Notification
	Stop             = hooks.Stop
	PreCompact       = hooks.PreCompact
	SessionEnd       = hooks.SessionEnd
)

// Decision is the aggregated result of an event's hooks
type Decision = hooks.Decision

// Outcome is Allow, Block or Modify
type Outcome = hooks.Outcome

const (
	Allow  = hooks.Allow
	Block  = hooks.Block
	Modify = hooks.Modify
)

// Composition is the result of expanding prompt text
type Composition = engine.Composition

// CompositionKind classifies a Composition
type CompositionKind = engine.Kind

const (
	PassThrough = engine.PassThrough
	Unknown     = engine.Unknown
	Instruction = engine.Instruction
	Execution   = engine.Execution
)

// BlockedError is returned when a hook refuses a request
type BlockedError = hooks.BlockedError

// ParseEvent converts an event name such as "PreToolUse" to an Event
func ParseEvent(name string) (Event, error) {
	return hooks.ParseEventKind(name)
}
