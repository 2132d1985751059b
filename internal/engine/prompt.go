package engine

import (
	"context"
	"encoding/json"

	"github.com/osi4iot/hookrelay/internal/commands"
	"github.com/osi4iot/hookrelay/internal/hooks"
)

// Submission is user text after command expansion and UserPromptSubmit hooks.
type Submission struct {
	Composition Composition
	// Payload is the UserPromptSubmit payload with hook decisions applied.
	Payload []byte
}

// SubmitPrompt takes user text the way an agent receives it. A leading slash
// command is first shown to the UserPromptSubmit hooks as typed, so a block
// stops it before any inline command line runs. The composed text then goes
// through the same hooks as the final prompt.
func (e *Engine) SubmitPrompt(ctx context.Context, text string, opts ComposeOptions) (Submission, error) {
	if _, _, isCommand := commands.ParseSlashCommand(text); isCommand {
		if _, err := e.submit(ctx, text, opts); err != nil {
			return Submission{Composition: Composition{Text: text}}, err
		}
	}

	comp, err := e.Compose(ctx, text, opts)
	if err != nil {
		return Submission{Composition: comp}, err
	}
	out, err := e.submit(ctx, comp.Text, opts)
	return Submission{Composition: comp, Payload: out}, err
}

func (e *Engine) submit(ctx context.Context, text string, opts ComposeOptions) ([]byte, error) {
	payload, err := json.Marshal(hooks.UserPromptSubmitInput{
		CommonInput: hooks.CommonFields(hooks.UserPromptSubmit, opts.SessionID),
		Prompt:      text,
	})
	if err != nil {
		return nil, err
	}
	d := e.Dispatch(ctx, hooks.Request{Event: hooks.UserPromptSubmit, Payload: payload})
	return Apply(hooks.UserPromptSubmit, payload, d)
}
