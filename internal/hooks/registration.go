package hooks

import (
	"fmt"
	"regexp"
	"time"
)

// Kind is the type of a registered hook. Only external commands exist today.
type Kind uint8

const (
	KindCommand Kind = iota
)

func (k Kind) String() string {
	if k == KindCommand {
		return "command"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// FailPolicy decides what a hook failure (timeout, spawn error, unexpected
// exit code) does to the decision. The default is FailOpen.
type FailPolicy uint8

const (
	FailOpen FailPolicy = iota
	FailClosed
)

func (p FailPolicy) String() string {
	switch p {
	case FailOpen:
		return "open"
	case FailClosed:
		return "closed"
	}
	return fmt.Sprintf("FailPolicy(%d)", uint8(p))
}

// ParseFailPolicy accepts "", "open" and "closed".
func ParseFailPolicy(s string) (FailPolicy, error) {
	switch s {
	case "", "open":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	}
	return FailOpen, fmt.Errorf("invalid failPolicy %q (open or closed)", s)
}

// Registration is one hook bound to one event, compiled and ready to run.
type Registration struct {
	Event      EventKind
	Matcher    string
	Command    string
	Timeout    time.Duration
	Kind       Kind
	FailPolicy FailPolicy

	pattern *regexp.Regexp
}

// Matches reports whether the registration applies to subject.
// An empty matcher or "*" applies to every subject.
func (r Registration) Matches(subject string) bool {
	if r.Matcher == "" || r.Matcher == "*" {
		return true
	}
	if r.Matcher == subject {
		return true
	}
	return r.pattern != nil && r.pattern.MatchString(subject)
}

// NewRegistration compiles a single registration. timeout <= 0 means the default.
func NewRegistration(event EventKind, matcher, command string, timeout time.Duration, policy FailPolicy) (Registration, error) {
	if !event.IsValid() {
		return Registration{}, fmt.Errorf("invalid event: %s", event)
	}
	r := Registration{
		Event:      event,
		Matcher:    matcher,
		Command:    command,
		Timeout:    timeout,
		Kind:       KindCommand,
		FailPolicy: policy,
	}
	if matcher != "" && matcher != "*" {
		re, err := regexp.Compile(matcher)
		if err != nil {
			return Registration{}, fmt.Errorf("invalid matcher %q: %w", matcher, err)
		}
		r.pattern = re
	}
	return r, nil
}

// Compile flattens a validated HookConfig into per-event registrations,
// preserving configuration order. Entries without a timeout get defaultTimeout.
func Compile(cfg *HookConfig, defaultTimeout time.Duration) (map[EventKind][]Registration, error) {
	if err := ValidateHookConfig(cfg); err != nil {
		return nil, err
	}

	out := make(map[EventKind][]Registration, len(cfg.Hooks))
	for event, matchers := range cfg.Hooks {
		for _, m := range matchers {
			for _, h := range m.Hooks {
				timeout := defaultTimeout
				if h.Timeout > 0 {
					timeout = time.Duration(h.Timeout) * time.Second
				}
				policy, _ := ParseFailPolicy(h.FailPolicy)
				reg, err := NewRegistration(event, m.Matcher, h.Command, timeout, policy)
				if err != nil {
					return nil, err
				}
				out[event] = append(out[event], reg)
			}
		}
	}
	return out, nil
}
