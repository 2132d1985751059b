package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/osi4iot/hookrelay/internal/engine"
	"github.com/osi4iot/hookrelay/internal/ui"
)

var (
	promptSessionID string
	promptJSON      bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt [text...]",
	Short: "Expand a slash command and run UserPromptSubmit hooks",
	Long: `Prompt takes user text from the arguments or stdin. A leading slash command
is checked by the UserPromptSubmit hooks as typed, then resolved and
expanded; the result goes through the same hooks and the final prompt is
printed. A blocked prompt
exits with status 2.`,
	RunE: runPrompt,
}

func runPrompt(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		data, err := readInput(cmd, "")
		if err != nil {
			return fmt.Errorf("reading prompt: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no prompt given")
	}

	e, cleanup, err := newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	sub, err := e.SubmitPrompt(cmd.Context(), text, engine.ComposeOptions{SessionID: promptSessionID})
	if err != nil {
		return asExit(err)
	}
	comp := sub.Composition
	if comp.Kind == engine.Unknown {
		msg := fmt.Sprintf("unknown command /%s", comp.Command)
		if len(comp.Suggestions) > 0 {
			msg += " (did you mean /" + strings.Join(comp.Suggestions, ", /") + "?)"
		}
		fmt.Fprintln(cmd.ErrOrStderr(), ui.StyleMuted(ui.DefaultTheme()).Render(msg))
	}
	if comp.Definition != nil {
		for _, w := range comp.Definition.Warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: "+w)
		}
	}
	out := sub.Payload

	if promptJSON {
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), gjson.GetBytes(out, "prompt").String())
	return nil
}

// asExit gives policy blocks and rejections their dedicated exit status.
func asExit(err error) error {
	if engine.IsDenied(err) {
		return &ExitError{Code: 2, Err: err}
	}
	return err
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVar(&promptSessionID, "session-id", "", "session id passed to hooks")
	promptCmd.Flags().BoolVar(&promptJSON, "json", false, "print the full UserPromptSubmit payload")
}
