package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/osi4iot/hookrelay/internal/commands"
	"github.com/osi4iot/hookrelay/internal/hooks"
	"github.com/osi4iot/hookrelay/internal/security"
	"github.com/osi4iot/hookrelay/internal/snapshot"
)

// SlashCommandTool is the tool name hooks see for slash command execution.
const SlashCommandTool = "SlashCommand"

// Kind classifies what composing a prompt produced.
type Kind uint8

const (
	// PassThrough means the text was not a slash command.
	PassThrough Kind = iota
	// Unknown means the command name matched no definition.
	Unknown
	// Instruction is a substituted command body for the model to follow.
	Instruction
	// Execution is an instruction whose inline command lines were run.
	Execution
)

var kindNames = [...]string{"passthrough", "unknown", "instruction", "execution"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown composition kind %q", text)
}

// ExecOutput is the captured result of one inline command line.
type ExecOutput struct {
	Command   string `json:"command"`
	ExitCode  int    `json:"exitCode"`
	Output    string `json:"output"`
	TimedOut  bool   `json:"timedOut,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Composition is the result of routing prompt text through the catalog.
type Composition struct {
	Kind        Kind                 `json:"kind"`
	Command     string               `json:"command,omitempty"`
	Arguments   string               `json:"arguments,omitempty"`
	Text        string               `json:"text"`
	Suggestions []string             `json:"suggestions,omitempty"`
	Outputs     []ExecOutput         `json:"outputs,omitempty"`
	Definition  *commands.Definition `json:"-"`
	// Guard is the PreToolUse decision taken before expansion.
	Guard *hooks.Decision `json:"guard,omitempty"`
}

// IsDenied reports whether err is a policy decision rather than a failure:
// a hook block or a sanitizer rejection.
func IsDenied(err error) bool {
	return errors.Is(err, hooks.ErrBlocked) || errors.Is(err, security.ErrRejected)
}

// ComposeOptions carries per-call values for hook payloads.
type ComposeOptions struct {
	SessionID string
}

// Compose resolves a leading slash command in text and expands it. Text that
// is not a command comes back unchanged as PassThrough, and an unknown name
// is reported as Unknown rather than an error. Errors are authoritative: a
// rejected name or inline command, or a PreToolUse block (*hooks.BlockedError).
func (e *Engine) Compose(ctx context.Context, text string, opts ComposeOptions) (Composition, error) {
	name, args, ok := commands.ParseSlashCommand(text)
	if !ok {
		return Composition{Kind: PassThrough, Text: text}, nil
	}

	snap := e.store.Load()
	def, err := snap.Commands.Resolve(name)
	if err != nil {
		var notFound *commands.NotFoundError
		var ambiguous *commands.AmbiguousError
		switch {
		case errors.As(err, &notFound):
			return Composition{Kind: Unknown, Command: name, Arguments: args, Text: text, Suggestions: notFound.Suggestions}, nil
		case errors.As(err, &ambiguous):
			return Composition{Kind: Unknown, Command: name, Arguments: args, Text: text, Suggestions: ambiguous.Candidates}, nil
		}
		return Composition{}, err
	}

	qualified := def.QualifiedName()
	subject := SlashCommandTool + "/" + qualified
	subst := commands.NewSubstitutionContext(args)
	env := subst.Environment(e.cfg.ProjectRoot)

	comp := Composition{
		Command:    qualified,
		Arguments:  args,
		Definition: def,
	}

	toolInput, err := json.Marshal(map[string]string{"command": qualified, "arguments": args})
	if err != nil {
		return Composition{}, err
	}
	pre, err := json.Marshal(hooks.PreToolUseInput{
		CommonInput: hooks.CommonFields(hooks.PreToolUse, opts.SessionID),
		ToolName:    SlashCommandTool,
		ToolInput:   toolInput,
	})
	if err != nil {
		return Composition{}, err
	}

	guard := e.dispatchOn(ctx, snap, hooks.Request{Event: hooks.PreToolUse, Payload: pre, Subject: subject, Env: env})
	comp.Guard = &guard
	if guard.Blocked() {
		return comp, guard.Err()
	}

	expansion := commands.Expand(def.Body, subst)
	comp.Text = expansion.Text
	comp.Kind = Instruction

	if expansion.HasExec() {
		for _, line := range expansion.ExecLines {
			if err := security.CheckCommand(line); err != nil {
				return comp, err
			}
		}
		comp.Kind = Execution
		comp.Outputs = e.runExecLines(ctx, expansion.ExecLines, env, subject)
		comp.Text = appendOutputs(comp.Text, comp.Outputs)
	}

	if len(guard.InjectedContext) > 0 {
		comp.Text = guard.ContextText() + "\n\n" + comp.Text
	}

	e.afterCompose(ctx, snap, comp, toolInput, env, subject, opts)
	return comp, nil
}

func (e *Engine) runExecLines(ctx context.Context, lines []string, env hooks.Environment, subject string) []ExecOutput {
	env.Subject = subject
	vars := env.Vars()

	outputs := make([]ExecOutput, 0, len(lines))
	for _, line := range lines {
		res := e.invoker.Invoke(ctx, hooks.Invocation{
			Command: line,
			Timeout: e.defaultTimeout(),
			Env:     vars,
			Dir:     env.ProjectDir,
		})
		out := ExecOutput{
			Command:   line,
			ExitCode:  res.ExitCode,
			Output:    strings.TrimRight(string(res.Stdout)+string(res.Stderr), "\n"),
			TimedOut:  res.TimedOut,
			Truncated: res.StdoutTruncated || res.StderrTruncated,
		}
		if res.ExitCode != 0 {
			e.logger.Warn("inline command failed", "command", line, "exit", res.ExitCode, "timedOut", res.TimedOut, "error", res.Err)
		}
		outputs = append(outputs, out)
	}
	return outputs
}

func appendOutputs(text string, outputs []ExecOutput) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(text, "\n"))
	for _, o := range outputs {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "```\n$ %s\n", o.Command)
		if o.Output != "" {
			b.WriteString(o.Output)
			b.WriteString("\n")
		}
		switch {
		case o.TimedOut:
			b.WriteString("[timed out]\n")
		case o.ExitCode != 0:
			fmt.Fprintf(&b, "[exit %d]\n", o.ExitCode)
		}
		b.WriteString("```")
	}
	return b.String()
}

// afterCompose reports the finished command to PostToolUse hooks. Their
// decision cannot undo the expansion, so it is only logged.
func (e *Engine) afterCompose(ctx context.Context, snap *snapshot.Snapshot, comp Composition, toolInput json.RawMessage, env hooks.Environment, subject string, opts ComposeOptions) {
	response, err := json.Marshal(map[string]any{"kind": comp.Kind, "text": comp.Text})
	if err != nil {
		return
	}
	post, err := json.Marshal(hooks.PostToolUseInput{
		CommonInput:  hooks.CommonFields(hooks.PostToolUse, opts.SessionID),
		ToolName:     SlashCommandTool,
		ToolInput:    toolInput,
		ToolResponse: response,
	})
	if err != nil {
		return
	}
	d := e.dispatchOn(ctx, snap, hooks.Request{Event: hooks.PostToolUse, Payload: post, Subject: subject, Env: env})
	if d.Blocked() {
		e.logger.Info("PostToolUse hook flagged slash command", "command", comp.Command, "reason", d.Reason)
	}
}
