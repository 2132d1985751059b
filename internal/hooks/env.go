package hooks

import (
	"strconv"
	"strings"
)

// Environment variables exported to every hook and inline command.
const (
	EnvProjectDir       = "HOOKRELAY_PROJECT_DIR"
	EnvClaudeProjectDir = "CLAUDE_PROJECT_DIR"
	EnvEvent            = "HOOKRELAY_EVENT"
	EnvSubject          = "HOOKRELAY_SUBJECT"
	EnvArguments        = "HOOKRELAY_ARGUMENTS"
	EnvArgc             = "HOOKRELAY_ARGC"
	EnvArgv             = "HOOKRELAY_ARGV"
	EnvArgPrefix        = "HOOKRELAY_ARG_"
)

// Environment is the per-dispatch context handed to child processes.
type Environment struct {
	ProjectDir   string
	Event        EventKind
	Subject      string
	RawArguments string
	Positional   []string
}

// Vars renders the environment as variables. HOOKRELAY_ARGV holds the
// positional arguments shell-quoted, so `eval "set -- $HOOKRELAY_ARGV"`
// restores them as $1..$N.
func (e Environment) Vars() map[string]string {
	vars := map[string]string{
		EnvArguments: e.RawArguments,
		EnvArgc:      strconv.Itoa(len(e.Positional)),
		EnvArgv:      ShellQuoteAll(e.Positional),
	}
	if e.ProjectDir != "" {
		vars[EnvProjectDir] = e.ProjectDir
		vars[EnvClaudeProjectDir] = e.ProjectDir
	}
	if e.Event.IsValid() {
		vars[EnvEvent] = e.Event.String()
	}
	if e.Subject != "" {
		vars[EnvSubject] = e.Subject
	}
	for i, arg := range e.Positional {
		vars[EnvArgPrefix+strconv.Itoa(i+1)] = arg
	}
	return vars
}

// ShellQuote wraps s in single quotes for POSIX shells.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ShellQuoteAll quotes each word and joins them with spaces.
func ShellQuoteAll(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = ShellQuote(w)
	}
	return strings.Join(quoted, " ")
}
