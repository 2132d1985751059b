package commands

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/osi4iot/hookrelay/internal/hooks"
)

var (
	placeholderPattern = regexp.MustCompile(`\$(ARGUMENTS|[1-9][0-9]*)`)
	execLinePattern    = regexp.MustCompile("^!`([^`]+)`$")
)

// SubstitutionContext carries the arguments typed after a slash command.
type SubstitutionContext struct {
	Raw        string
	Positional []string
}

// NewSubstitutionContext splits raw on whitespace into positional tokens.
func NewSubstitutionContext(raw string) SubstitutionContext {
	return SubstitutionContext{Raw: raw, Positional: strings.Fields(raw)}
}

// Arg returns the n-th positional argument (1-based) or "" when absent.
func (c SubstitutionContext) Arg(n int) string {
	if n < 1 || n > len(c.Positional) {
		return ""
	}
	return c.Positional[n-1]
}

// Environment exposes the arguments to hook and exec-line processes.
func (c SubstitutionContext) Environment(projectDir string) hooks.Environment {
	return hooks.Environment{
		ProjectDir:   projectDir,
		RawArguments: c.Raw,
		Positional:   c.Positional,
	}
}

// Substitute replaces $ARGUMENTS and $N in a single left-to-right pass.
// Inserted values are never scanned again.
func Substitute(body string, ctx SubstitutionContext) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(m string) string {
		ref := m[1:]
		if ref == "ARGUMENTS" {
			return ctx.Raw
		}
		n, err := strconv.Atoi(ref)
		if err != nil {
			return ""
		}
		return ctx.Arg(n)
	})
}

// Expansion is a command body ready to hand to the host.
type Expansion struct {
	Text      string   `json:"text"`
	ExecLines []string `json:"execLines,omitempty"`
}

// HasExec reports whether the body contained inline exec lines.
func (e Expansion) HasExec() bool {
	return len(e.ExecLines) > 0
}

// Expand pulls inline exec lines (a line holding only !`cmd`) out of body
// and substitutes arguments into the rest. Inside exec lines placeholders
// become environment references so argument text is never parsed by the shell.
func Expand(body string, ctx SubstitutionContext) Expansion {
	var (
		text  []string
		execs []string
	)
	for _, line := range strings.Split(body, "\n") {
		if m := execLinePattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			execs = append(execs, envReferences(m[1]))
			continue
		}
		text = append(text, line)
	}
	return Expansion{
		Text:      Substitute(strings.Join(text, "\n"), ctx),
		ExecLines: execs,
	}
}

func envReferences(command string) string {
	return placeholderPattern.ReplaceAllStringFunc(command, func(m string) string {
		ref := m[1:]
		if ref == "ARGUMENTS" {
			return "${" + hooks.EnvArguments + "}"
		}
		return "${" + hooks.EnvArgPrefix + ref + "}"
	})
}
