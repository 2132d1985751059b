package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/osi4iot/hookrelay/internal/config"
	"github.com/osi4iot/hookrelay/internal/hooks"
	"github.com/osi4iot/hookrelay/internal/logging"
	"github.com/osi4iot/hookrelay/internal/snapshot"
	"github.com/osi4iot/hookrelay/internal/ui"
)

var hooksInitForce bool

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage hookrelay hooks",
	Long:  "Commands for inspecting and validating the hooks configuration",
}

var hooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured hooks in evaluation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()
		snap := e.Snapshot()

		out := cmd.OutOrStdout()
		muted := ui.StyleMuted(ui.DefaultTheme())
		for _, f := range snap.HookFiles {
			if _, err := os.Stat(f); err == nil {
				fmt.Fprintln(out, muted.Render("# "+f))
			}
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "EVENT\tMATCHER\tCOMMAND\tTIMEOUT\tON FAILURE")
		for _, event := range hooks.AllEvents() {
			for _, reg := range snap.Registrations(event) {
				matcher := reg.Matcher
				if matcher == "" {
					matcher = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					event, matcher, reg.Command, reg.Timeout, reg.FailPolicy)
			}
		}
		return w.Flush()
	},
}

var hooksValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate hooks configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		timeout := time.Duration(cfg.DefaultTimeout) * time.Second
		snap, err := snapshot.Build(snapshot.SourcesFor(cfg), timeout, logging.Discard())
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.StyleBadge(ui.DefaultTheme().Success).Render("✓")+" Hooks configuration is valid")
		fmt.Fprintf(cmd.OutOrStdout(), "  %d hooks, %d commands\n", snap.HookCount(), snap.Commands.Len())
		return nil
	},
}

var hooksInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate example hooks configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := viper.GetString("project-root")
		if root == "" {
			root = "."
		}
		path := filepath.Join(root, "."+config.AppName, "hooks.yml")
		if _, err := os.Stat(path); err == nil && !hooksInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}

		data, err := yaml.Marshal(exampleHooks())
		if err != nil {
			return fmt.Errorf("marshaling example: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing example: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s with example configuration\n", path)
		return nil
	},
}

func exampleHooks() *hooks.HookConfig {
	logDir := `"${XDG_CONFIG_HOME:-$HOME/.config}/hookrelay/logs"`
	return &hooks.HookConfig{
		Hooks: map[hooks.EventKind][]hooks.HookMatcher{
			// PreToolUse - can veto a tool call by exiting 2
			hooks.PreToolUse: {
				{
					Matcher: "Bash",
					Hooks: []hooks.HookEntry{
						{
							Type:       "command",
							Command:    `jq -r '.tool_input.command' | grep -qE 'rm -rf /( |$)' && { echo "refusing to delete the filesystem root" >&2; exit 2; } || exit 0`,
							Timeout:    5,
							FailPolicy: "closed",
						},
					},
				},
				{
					Matcher: "SlashCommand/.*",
					Hooks: []hooks.HookEntry{
						{
							Type:    "command",
							Command: `mkdir -p ` + logDir + ` && jq -c '{time: now | strftime("%Y-%m-%d %H:%M:%S"), command: .tool_input.command, args: .tool_input.arguments}' >> ` + logDir + `/slash-commands.jsonl`,
							Timeout: 5,
						},
					},
				},
			},
			// UserPromptSubmit - stdout JSON can inject context
			hooks.UserPromptSubmit: {
				{
					Hooks: []hooks.HookEntry{
						{
							Type:    "command",
							Command: `printf '{"hookSpecificOutput":{"additionalContext":"Branch: %s"}}' "$(git -C "$HOOKRELAY_PROJECT_DIR" branch --show-current 2>/dev/null)"`,
							Timeout: 5,
						},
					},
				},
			},
			// Stop - runs in the background after the agent finishes
			hooks.Stop: {
				{
					Hooks: []hooks.HookEntry{
						{
							Type:    "command",
							Command: `mkdir -p ` + logDir + ` && jq -r '"[" + (now | strftime("%Y-%m-%d %H:%M:%S")) + "] Session " + (.session_id // "-") + " stopped"' >> ` + logDir + `/sessions.log`,
						},
					},
				},
			},
		},
	}
}

func init() {
	rootCmd.AddCommand(hooksCmd)
	hooksCmd.AddCommand(hooksListCmd)
	hooksCmd.AddCommand(hooksValidateCmd)
	hooksCmd.AddCommand(hooksInitCmd)
	hooksInitCmd.Flags().BoolVar(&hooksInitForce, "force", false, "overwrite an existing hooks file")
}
