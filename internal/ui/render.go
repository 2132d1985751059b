package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/osi4iot/hookrelay/internal/hooks"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// TerminalWidth reports the column count of w when it is a terminal.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

func outcomeColor(theme Theme, o hooks.Outcome) lipgloss.AdaptiveColor {
	switch o {
	case hooks.Block:
		return theme.Error
	case hooks.Modify:
		return theme.Warning
	default:
		return theme.Success
	}
}

// RenderDecision formats a decision as a status line followed by one line
// per executed hook.
func RenderDecision(d hooks.Decision) string {
	theme := DefaultTheme()
	muted := StyleMuted(theme)

	var b strings.Builder
	b.WriteString(StyleBadge(outcomeColor(theme, d.Outcome)).Render(strings.ToUpper(d.Outcome.String())))
	b.WriteString(" ")
	b.WriteString(d.Event.String())
	if d.Reason != "" {
		b.WriteString(": ")
		b.WriteString(d.Reason)
	}
	b.WriteString("\n")

	for _, s := range d.Steps {
		status := fmt.Sprintf("exit %d", s.ExitCode)
		if s.TimedOut {
			status = "timed out"
		}
		line := fmt.Sprintf("  %s  %s  %dms", s.Command, status, s.DurationMs)
		if s.Error != "" {
			line += "  " + s.Error
		}
		b.WriteString(muted.Render(line))
		b.WriteString("\n")
	}
	for _, c := range d.InjectedContext {
		b.WriteString(StyleBadge(theme.Info).Render("context"))
		b.WriteString(" ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

// CommandRow is one line of the command listing.
type CommandRow struct {
	Name         string
	Scope        string
	ArgumentHint string
	Description  string
}

// RenderCommandTable lays rows out in aligned columns, truncating
// descriptions to fit width.
func RenderCommandTable(rows []CommandRow, width int) string {
	if len(rows) == 0 {
		return StyleMuted(DefaultTheme()).Render("No commands found") + "\n"
	}
	theme := DefaultTheme()

	nameWidth, scopeWidth := len("NAME"), len("SCOPE")
	for _, r := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(commandLabel(r)))
		scopeWidth = max(scopeWidth, len(r.Scope))
	}
	descWidth := max(width-nameWidth-scopeWidth-4, 10)

	name := lipgloss.NewStyle().Width(nameWidth).Foreground(theme.Primary)
	scope := lipgloss.NewStyle().Width(scopeWidth).Foreground(theme.Muted)
	header := lipgloss.NewStyle().Bold(true)

	var b strings.Builder
	b.WriteString(header.Width(nameWidth).Render("NAME"))
	b.WriteString("  ")
	b.WriteString(header.Width(scopeWidth).Render("SCOPE"))
	b.WriteString("  ")
	b.WriteString(header.Render("DESCRIPTION"))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(name.Render(commandLabel(r)))
		b.WriteString("  ")
		b.WriteString(scope.Render(r.Scope))
		b.WriteString("  ")
		b.WriteString(truncate(r.Description, descWidth))
		b.WriteString("\n")
	}
	return b.String()
}

func commandLabel(r CommandRow) string {
	label := "/" + r.Name
	if r.ArgumentHint != "" {
		label += " " + r.ArgumentHint
	}
	return label
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
