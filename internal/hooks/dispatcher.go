package hooks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// Source supplies the registrations for an event. A configuration snapshot
// is the usual implementation; one dispatch reads from one Source only.
type Source interface {
	Registrations(event EventKind) []Registration
}

// Request is one event to dispatch.
type Request struct {
	Event EventKind
	// Payload is handed unmodified to every hook on stdin.
	Payload []byte
	// Subject is matched against registration matchers. When empty it is
	// taken from the payload's tool_name field.
	Subject string
	// Env carries the project directory and slash command arguments.
	Env Environment
}

// Dispatcher runs matched hook chains through an Invoker.
type Dispatcher struct {
	invoker *Invoker
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil logger means slog.Default().
func NewDispatcher(invoker *Invoker, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{invoker: invoker, logger: logger}
}

// CommonFields fills in the common fields for payloads hookrelay builds itself
func CommonFields(event EventKind, sessionID string) CommonInput {
	return CommonInput{
		SessionID:     sessionID,
		CWD:           currentDir(),
		HookEventName: event,
		Timestamp:     time.Now().Unix(),
	}
}

// subject returns the string registration matchers are evaluated against.
func (r Request) subject() string {
	if r.Subject != "" {
		return r.Subject
	}
	if len(r.Payload) == 0 {
		return ""
	}
	return gjson.GetBytes(r.Payload, "tool_name").String()
}

func (d *Dispatcher) matched(src Source, req Request, subject string) []Registration {
	if src == nil {
		return nil
	}
	var out []Registration
	for _, reg := range src.Registrations(req.Event) {
		if reg.Matches(subject) {
			out = append(out, reg)
		}
	}
	return out
}

func (d *Dispatcher) invocation(reg Registration, req Request, vars map[string]string) Invocation {
	return Invocation{
		Command: reg.Command,
		Payload: req.Payload,
		Timeout: reg.Timeout,
		Env:     vars,
		Dir:     req.Env.ProjectDir,
	}
}

// Dispatch runs the matched hooks one after another in registration order
// and stops at the first block.
func (d *Dispatcher) Dispatch(ctx context.Context, src Source, req Request) Decision {
	subject := req.subject()
	agg := newAggregator(uuid.NewString(), req.Event)

	regs := d.matched(src, req, subject)
	if len(regs) == 0 {
		return agg.result()
	}

	env := req.Env
	env.Event = req.Event
	env.Subject = subject
	vars := env.Vars()

	log := d.logger.With("dispatch", agg.decision.ID, "event", req.Event.String(), "subject", subject)
	log.Debug("dispatching hooks", "count", len(regs))

	for i, reg := range regs {
		res := d.invoker.Invoke(ctx, d.invocation(reg, req, vars))
		next, err := agg.fold(reg, res)
		if err != nil {
			log.Warn("hook failed", "index", i, "command", reg.Command, "policy", reg.FailPolicy.String(), "error", err)
		}
		if next == stepBlocked {
			log.Info("hook blocked event", "index", i, "command", reg.Command, "reason", agg.decision.Reason)
			if skipped := len(regs) - i - 1; skipped > 0 {
				log.Debug("skipping remaining hooks", "skipped", skipped)
			}
			break
		}
	}

	decision := agg.result()
	log.Debug("dispatch complete", "outcome", decision.Outcome.String(), "context", len(decision.InjectedContext))
	return decision
}

// Fanout runs every matched hook concurrently and waits for all of them.
// Decisions are not aggregated; failures are logged and joined into the
// returned error. It is meant for terminal events whose outcome cannot
// affect a response that has already been sent.
func (d *Dispatcher) Fanout(ctx context.Context, src Source, req Request) error {
	subject := req.subject()
	regs := d.matched(src, req, subject)
	if len(regs) == 0 {
		return nil
	}

	env := req.Env
	env.Event = req.Event
	env.Subject = subject
	vars := env.Vars()

	log := d.logger.With("event", req.Event.String(), "subject", subject)
	errs := make([]error, len(regs))

	var g errgroup.Group
	for i, reg := range regs {
		g.Go(func() error {
			res := d.invoker.Invoke(ctx, d.invocation(reg, req, vars))
			if res.Err == nil && !res.TimedOut && (res.ExitCode == 0 || res.ExitCode == 2) {
				return nil
			}
			errs[i] = &HookExecutionError{
				Command:  reg.Command,
				ExitCode: res.ExitCode,
				TimedOut: res.TimedOut,
				Err:      res.Err,
			}
			log.Warn("background hook failed", "command", reg.Command, "error", errs[i])
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
