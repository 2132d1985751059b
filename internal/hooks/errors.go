package hooks

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBlocked is matched by BlockedError.
	ErrBlocked = errors.New("blocked by policy")
	// ErrHookExecution is matched by HookExecutionError.
	ErrHookExecution = errors.New("hook execution failed")
)

// BlockedError is the authoritative refusal produced by a blocking hook.
type BlockedError struct {
	Event  EventKind
	Reason string
}

func (e *BlockedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s blocked by hook", e.Event)
	}
	return fmt.Sprintf("%s blocked by hook: %s", e.Event, e.Reason)
}

func (e *BlockedError) Is(target error) bool { return target == ErrBlocked }

// HookExecutionError describes a hook that failed to run cleanly: it could
// not start, timed out, or exited with a code other than 0 or 2.
type HookExecutionError struct {
	Command  string
	ExitCode int
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *HookExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hook %q", e.Command)
	switch {
	case e.TimedOut:
		b.WriteString(" timed out")
	case e.Err != nil:
		fmt.Fprintf(&b, " failed: %v", e.Err)
	default:
		fmt.Fprintf(&b, " exited with code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

func (e *HookExecutionError) Unwrap() error { return e.Err }

func (e *HookExecutionError) Is(target error) bool { return target == ErrHookExecution }
