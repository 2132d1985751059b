package hooks

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome is the verdict of one dispatch.
type Outcome uint8

const (
	Allow Outcome = iota
	Block
	Modify
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Block:
		return "block"
	case Modify:
		return "modify"
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	switch o {
	case Allow, Block, Modify:
		return []byte(o.String()), nil
	}
	return nil, fmt.Errorf("invalid outcome %d", uint8(o))
}

func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "allow":
		*o = Allow
	case "block":
		*o = Block
	case "modify":
		*o = Modify
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// Step records what a single hook did during a dispatch.
type Step struct {
	Command    string `json:"command"`
	ExitCode   int    `json:"exitCode"`
	DurationMs int64  `json:"durationMs"`
	TimedOut   bool   `json:"timedOut,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Decision is the aggregated result of dispatching one event.
type Decision struct {
	ID              string
	Event           EventKind
	Outcome         Outcome
	Reason          string
	InjectedContext []string
	ModifiedBody    []byte
	Steps           []Step
}

// Blocked reports whether the guarded action must not proceed.
func (d Decision) Blocked() bool { return d.Outcome == Block }

// Err returns a *BlockedError for a Block decision and nil otherwise.
func (d Decision) Err() error {
	if d.Outcome != Block {
		return nil
	}
	return &BlockedError{Event: d.Event, Reason: d.Reason}
}

// ContextText joins the injected context in hook execution order.
func (d Decision) ContextText() string {
	return strings.Join(d.InjectedContext, "\n")
}

type decisionJSON struct {
	ID              string    `json:"id,omitempty"`
	Event           EventKind `json:"event"`
	Outcome         Outcome   `json:"outcome"`
	Reason          string    `json:"reason,omitempty"`
	InjectedContext []string  `json:"injectedContext,omitempty"`
	ModifiedBody    *string   `json:"modifiedBody,omitempty"`
	Steps           []Step    `json:"steps,omitempty"`
}

func (d Decision) MarshalJSON() ([]byte, error) {
	out := decisionJSON{
		ID:              d.ID,
		Event:           d.Event,
		Outcome:         d.Outcome,
		Reason:          d.Reason,
		InjectedContext: d.InjectedContext,
		Steps:           d.Steps,
	}
	if d.ModifiedBody != nil {
		body := string(d.ModifiedBody)
		out.ModifiedBody = &body
	}
	return json.Marshal(out)
}

func (d *Decision) UnmarshalJSON(data []byte) error {
	var in decisionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = Decision{
		ID:              in.ID,
		Event:           in.Event,
		Outcome:         in.Outcome,
		Reason:          in.Reason,
		InjectedContext: in.InjectedContext,
		Steps:           in.Steps,
	}
	if in.ModifiedBody != nil {
		d.ModifiedBody = []byte(*in.ModifiedBody)
	}
	return nil
}

type step int

const (
	stepContinue step = iota
	stepBlocked
)

// aggregator folds hook results into a Decision. Once blocked it accepts no
// further results.
type aggregator struct {
	decision Decision
	blocked  bool
	modified []byte
}

func newAggregator(id string, event EventKind) *aggregator {
	return &aggregator{decision: Decision{ID: id, Event: event, Outcome: Allow}}
}

// fold interprets one hook result. The returned error describes a failed
// hook; it is informational unless the registration is fail-closed, in which
// case the fold has already turned it into a block.
func (a *aggregator) fold(reg Registration, res Result) (step, error) {
	if a.blocked {
		return stepBlocked, nil
	}
	a.record(reg, res)

	switch {
	case res.Err == nil && !res.TimedOut && res.ExitCode == 2:
		reason := strings.TrimSpace(string(res.Stderr))
		if reason == "" {
			reason = reg.Command
		}
		return a.block(reason), nil

	case res.Err == nil && !res.TimedOut && res.ExitCode == 0:
		return a.interpretOutput(res.Stdout), nil
	}

	herr := &HookExecutionError{
		Command:  reg.Command,
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
		Stderr:   strings.TrimSpace(string(res.Stderr)),
		Err:      res.Err,
	}
	if reg.FailPolicy == FailClosed {
		return a.block("hook failed (fail-closed): " + herr.Error()), herr
	}
	return stepContinue, herr
}

// interpretOutput reads enrichment from a successful hook. Exit code 2 is
// the only way to block; JSON on stdout never refuses an event.
func (a *aggregator) interpretOutput(stdout []byte) step {
	out, ok := parseHookOutput(stdout)
	if !ok || out.HookSpecificOutput == nil {
		return stepContinue
	}

	hso := out.HookSpecificOutput
	if hso.AdditionalContext != "" {
		a.decision.InjectedContext = append(a.decision.InjectedContext, hso.AdditionalContext)
	}
	if hso.ModifiedBody != nil {
		a.modified = []byte(*hso.ModifiedBody)
	}
	return stepContinue
}

func (a *aggregator) block(reason string) step {
	a.blocked = true
	a.decision.Outcome = Block
	a.decision.Reason = reason
	return stepBlocked
}

func (a *aggregator) record(reg Registration, res Result) {
	s := Step{
		Command:    reg.Command,
		ExitCode:   res.ExitCode,
		DurationMs: res.DurationMs(),
		TimedOut:   res.TimedOut,
		Truncated:  res.StdoutTruncated || res.StderrTruncated,
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	a.decision.Steps = append(a.decision.Steps, s)
}

func (a *aggregator) result() Decision {
	d := a.decision
	if !a.blocked && a.modified != nil {
		d.Outcome = Modify
		d.ModifiedBody = a.modified
	}
	return d
}
