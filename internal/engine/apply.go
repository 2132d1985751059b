package engine

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/osi4iot/hookrelay/internal/hooks"
)

// contextField receives injected context for events without a text field.
const contextField = "additionalContext"

// textField names the payload field holding user-visible text, if any.
func textField(event hooks.EventKind) string {
	switch event {
	case hooks.UserPromptSubmit:
		return "prompt"
	case hooks.Notification:
		return "message"
	default:
		return ""
	}
}

// Apply turns a decision into what the host receives. A Block yields a
// *hooks.BlockedError. Otherwise the payload is returned with a modified body
// substituted and injected context prepended to the event's text field, or
// stored under additionalContext when the event has none.
func Apply(event hooks.EventKind, payload []byte, d hooks.Decision) ([]byte, error) {
	if d.Blocked() {
		return nil, d.Err()
	}

	out := payload
	field := textField(event)

	if d.Outcome == hooks.Modify && d.ModifiedBody != nil {
		var err error
		switch {
		case field != "":
			out, err = sjson.SetBytes(out, field, string(d.ModifiedBody))
		case gjson.ValidBytes(d.ModifiedBody):
			out = d.ModifiedBody
		}
		if err != nil {
			return nil, err
		}
	}

	if len(d.InjectedContext) == 0 {
		return out, nil
	}

	ctx := d.ContextText()
	if field == "" {
		if existing := gjson.GetBytes(out, contextField); existing.Exists() && existing.String() != "" {
			ctx = ctx + "\n" + existing.String()
		}
		return sjson.SetBytes(out, contextField, ctx)
	}

	text := gjson.GetBytes(out, field).String()
	if text != "" {
		ctx = ctx + "\n\n" + text
	}
	return sjson.SetBytes(out, field, ctx)
}
