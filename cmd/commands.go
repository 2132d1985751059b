package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/osi4iot/hookrelay/internal/commands"
	"github.com/osi4iot/hookrelay/internal/engine"
	"github.com/osi4iot/hookrelay/internal/ui"
)

var (
	showRaw   bool
	runJSON   bool
	runSessID string
)

var commandsCmd = &cobra.Command{
	Use:     "commands",
	Aliases: []string{"cmds"},
	Short:   "Inspect and run slash commands",
}

var commandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the slash commands visible from the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		catalog := e.Snapshot().Commands
		rows := make([]ui.CommandRow, 0, catalog.Len())
		for _, entry := range catalog.Entries() {
			row := ui.CommandRow{Name: entry.QualifiedName(), Scope: entry.Scope.String()}
			if def, err := catalog.Resolve(row.Name); err == nil {
				row.Description = def.Frontmatter.Description
				row.ArgumentHint = def.Frontmatter.ArgumentHint
			} else {
				row.Description = err.Error()
			}
			rows = append(rows, row)
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, ui.RenderCommandTable(rows, ui.TerminalWidth(out)))
		return nil
	},
}

var commandsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a command's frontmatter and body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		def, err := e.Snapshot().Commands.Resolve(args[0])
		if err != nil {
			return asExit(err)
		}

		out := cmd.OutOrStdout()
		if showRaw {
			fmt.Fprintln(out, def.Body)
			return nil
		}

		theme := ui.DefaultTheme()
		muted := ui.StyleMuted(theme)
		width := ui.TerminalWidth(out)

		lines := []string{
			ui.StyleHeader(theme).Render("/" + def.QualifiedName()),
			muted.Render(fmt.Sprintf("%s  %s", def.Scope, def.Path)),
		}
		fm := def.Frontmatter
		if fm.Description != "" {
			lines = append(lines, fm.Description)
		}
		if fm.ArgumentHint != "" {
			lines = append(lines, muted.Render("arguments: "+fm.ArgumentHint))
		}
		if len(fm.AllowedTools) > 0 {
			lines = append(lines, muted.Render("allowed tools: "+strings.Join(fm.AllowedTools, ", ")))
		}
		if fm.Model != "" {
			lines = append(lines, muted.Render("model: "+fm.Model))
		}
		for _, w := range def.Warnings {
			lines = append(lines, ui.StyleBadge(theme.Warning).Render("warning")+" "+w)
		}
		fmt.Fprintln(out, ui.StyleCard(width-2, theme).Render(strings.Join(lines, "\n")))
		fmt.Fprintln(out)
		fmt.Fprint(out, ui.RenderMarkdown(def.Body, width))
		return nil
	},
}

var commandsExpandCmd = &cobra.Command{
	Use:   "expand <name> [arguments...]",
	Short: "Substitute arguments into a command without running anything",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		def, err := e.Snapshot().Commands.Resolve(args[0])
		if err != nil {
			return asExit(err)
		}

		expansion := commands.Expand(def.Body, commands.NewSubstitutionContext(strings.Join(args[1:], " ")))
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, expansion.Text)
		if expansion.HasExec() {
			muted := ui.StyleMuted(ui.DefaultTheme())
			fmt.Fprintln(out)
			for _, line := range expansion.ExecLines {
				fmt.Fprintln(out, muted.Render("would run: "+line))
			}
		}
		return nil
	},
}

var commandsRunCmd = &cobra.Command{
	Use:   "run <name> [arguments...]",
	Short: "Compose a slash command, running its hooks and inline commands",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		text := "/" + strings.TrimPrefix(args[0], "/")
		if len(args) > 1 {
			text += " " + strings.Join(args[1:], " ")
		}

		comp, err := e.Compose(cmd.Context(), text, engine.ComposeOptions{SessionID: runSessID})
		if err != nil {
			return asExit(err)
		}
		if comp.Kind == engine.Unknown {
			msg := fmt.Sprintf("unknown command /%s", comp.Command)
			if len(comp.Suggestions) > 0 {
				msg += " (did you mean /" + strings.Join(comp.Suggestions, ", /") + "?)"
			}
			return fmt.Errorf("%s", msg)
		}

		out := cmd.OutOrStdout()
		if runJSON {
			data, err := json.MarshalIndent(comp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		fmt.Fprintln(out, comp.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
	commandsCmd.AddCommand(commandsListCmd)
	commandsCmd.AddCommand(commandsShowCmd)
	commandsCmd.AddCommand(commandsExpandCmd)
	commandsCmd.AddCommand(commandsRunCmd)

	commandsShowCmd.Flags().BoolVar(&showRaw, "raw", false, "print the body without rendering")
	commandsRunCmd.Flags().BoolVar(&runJSON, "json", false, "print the full composition as JSON")
	commandsRunCmd.Flags().StringVar(&runSessID, "session-id", "", "session id passed to hooks")
}
