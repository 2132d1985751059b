package commands

import (
	"strings"
	"unicode"
)

// ParseSlashCommand splits "/name args..." into its name and raw argument
// string. Text that does not start with a slash, or whose first word looks
// like a filesystem path, is not a command.
func ParseSlashCommand(text string) (name, args string, ok bool) {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}

	rest := trimmed[1:]
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		name = rest
	} else {
		name, args = rest[:end], strings.TrimSpace(rest[end:])
	}
	if name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return name, args, true
}
