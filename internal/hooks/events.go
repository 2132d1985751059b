package hooks

import "fmt"

// EventKind represents a point in the assistant's lifecycle where hooks can be executed
type EventKind uint8

const (
	// SessionStart fires when a session begins or resumes
	SessionStart EventKind = iota + 1

	// UserPromptSubmit fires when the user submits a prompt
	UserPromptSubmit

	// PreToolUse fires before any tool execution
	PreToolUse

	// PostToolUse fires after tool execution completes
	PostToolUse

	// Notification fires when the assistant emits a notification
	Notification

	// Stop fires when the main agent finishes responding
	Stop

	// PreCompact fires before the conversation is compacted
	PreCompact

	// SessionEnd fires when a session terminates
	SessionEnd
)

var eventNames = [...]string{
	SessionStart:     "SessionStart",
	UserPromptSubmit: "UserPromptSubmit",
	PreToolUse:       "PreToolUse",
	PostToolUse:      "PostToolUse",
	Notification:     "Notification",
	Stop:             "Stop",
	PreCompact:       "PreCompact",
	SessionEnd:       "SessionEnd",
}

// AllEvents lists every event kind in lifecycle order.
func AllEvents() []EventKind {
	return []EventKind{SessionStart, UserPromptSubmit, PreToolUse, PostToolUse, Notification, Stop, PreCompact, SessionEnd}
}

func (e EventKind) String() string {
	if e.IsValid() {
		return eventNames[e]
	}
	return fmt.Sprintf("EventKind(%d)", uint8(e))
}

// IsValid returns true if the event is a known hook event
func (e EventKind) IsValid() bool {
	return e >= SessionStart && e <= SessionEnd
}

// IsBlocking reports whether the caller must wait for the decision before
// performing the guarded action.
func (e EventKind) IsBlocking() bool {
	switch e {
	case UserPromptSubmit, PreToolUse:
		return true
	}
	return false
}

// IsTerminal reports whether the event fires after the response is already
// on its way to the user. PostToolUse is only terminal when asyncPostToolUse is set.
func (e EventKind) IsTerminal(asyncPostToolUse bool) bool {
	switch e {
	case Stop, SessionEnd:
		return true
	case PostToolUse:
		return asyncPostToolUse
	}
	return false
}

// ParseEventKind maps a configuration or wire name to its EventKind.
func ParseEventKind(name string) (EventKind, error) {
	for _, e := range AllEvents() {
		if eventNames[e] == name {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown hook event %q", name)
}

func (e EventKind) MarshalText() ([]byte, error) {
	if !e.IsValid() {
		return nil, fmt.Errorf("invalid hook event %d", uint8(e))
	}
	return []byte(e.String()), nil
}

func (e *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
