package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/osi4iot/hookrelay/internal/engine"
	"github.com/osi4iot/hookrelay/internal/hooks"
	"github.com/osi4iot/hookrelay/internal/ui"
)

var (
	dispatchSubject     string
	dispatchPayloadFile string
	dispatchSessionID   string
	dispatchOutput      string
	dispatchExplain     bool
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <event>",
	Short: "Run the hooks registered for an event",
	Long: `Dispatch reads an event payload from --payload-file or stdin, runs the
matching hooks and prints the resulting payload. Injected context is merged
into the payload. When a hook blocks, the reason is reported and the command
exits with status 2.

Events: ` + eventNames(),
	Args: cobra.ExactArgs(1),
	RunE: runDispatch,
}

func eventNames() string {
	names := make([]string, 0, len(hooks.AllEvents()))
	for _, e := range hooks.AllEvents() {
		names = append(names, e.String())
	}
	return strings.Join(names, ", ")
}

func runDispatch(cmd *cobra.Command, args []string) error {
	event, err := hooks.ParseEventKind(args[0])
	if err != nil {
		return err
	}
	switch dispatchOutput {
	case "payload", "decision":
	default:
		return fmt.Errorf("unsupported output %q (payload or decision)", dispatchOutput)
	}

	payload, err := readInput(cmd, dispatchPayloadFile)
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}
	if len(strings.TrimSpace(string(payload))) == 0 {
		payload, err = json.Marshal(hooks.CommonFields(event, dispatchSessionID))
		if err != nil {
			return err
		}
	}

	e, cleanup, err := newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	d := e.Dispatch(cmd.Context(), hooks.Request{
		Event:   event,
		Payload: payload,
		Subject: dispatchSubject,
	})
	if dispatchExplain {
		fmt.Fprint(cmd.ErrOrStderr(), ui.RenderDecision(d))
	}

	if dispatchOutput == "decision" {
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		if d.Blocked() {
			return &ExitError{Code: 2, Err: d.Err()}
		}
		return nil
	}

	out, err := engine.Apply(event, payload, d)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
	return nil
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.Flags().StringVar(&dispatchSubject, "subject", "", "matcher subject (default is the payload's tool_name)")
	dispatchCmd.Flags().StringVarP(&dispatchPayloadFile, "payload-file", "f", "", "read the payload from this file instead of stdin")
	dispatchCmd.Flags().StringVar(&dispatchSessionID, "session-id", "", "session id for a generated payload")
	dispatchCmd.Flags().StringVarP(&dispatchOutput, "output", "o", "payload", "what to print: payload or decision")
	dispatchCmd.Flags().BoolVar(&dispatchExplain, "explain", false, "print each hook run to stderr")
}
