package security

import (
	"regexp"
	"strings"
)

// Patterns that flag potentially dangerous commands.
var (
	commandInjectionPattern    = regexp.MustCompile(`[;&|]|\$\(|` + "`")
	pathTraversalPattern       = regexp.MustCompile(`\.\.\/`)
	commandSubstitutionPattern = regexp.MustCompile(`\$\([^)]+\)|` + "`" + `[^` + "`" + `]+` + "`")
)

var destructivePatterns = []string{
	"; rm ",
	"&& rm ",
	"| rm ",
	"; dd ",
	"&& dd ",
	"| dd ",
}

// CheckHookCommand applies the policy for commands written in hook files.
// Those are the user's own shell, so pipelines, chains and substitutions are
// allowed; only empty commands, null bytes and chained destructive commands
// are refused.
func CheckHookCommand(command string) error {
	if err := checkBasics(command); err != nil {
		return err
	}
	if containsDestructive(command) {
		return reject(KindCommand, command, "potential command injection detected")
	}
	return nil
}

// CheckCommand applies the strict policy for inline command lines taken
// from slash command bodies.
func CheckCommand(command string) error {
	if err := checkBasics(command); err != nil {
		return err
	}

	if commandInjectionPattern.MatchString(command) && (containsDestructive(command) || separatorCount(command) > 2) {
		return reject(KindCommand, command, "potential command injection detected")
	}

	if pathTraversalPattern.MatchString(command) {
		return reject(KindCommand, command, "path traversal detected")
	}

	if commandSubstitutionPattern.MatchString(command) {
		return reject(KindCommand, command, "command substitution detected")
	}

	return nil
}

func checkBasics(command string) error {
	if strings.TrimSpace(command) == "" {
		return reject(KindCommand, command, "empty command")
	}
	if strings.ContainsRune(command, 0) {
		return reject(KindCommand, command, "null byte in command")
	}
	return nil
}

func containsDestructive(command string) bool {
	for _, pattern := range destructivePatterns {
		if strings.Contains(command, pattern) {
			return true
		}
	}
	return false
}

// separatorCount counts ;, &&, || and | once each. More than two reads as
// chained injection rather than a pipeline.
func separatorCount(command string) int {
	n := strings.Count(command, "&&") + strings.Count(command, "||")
	rest := strings.NewReplacer("&&", " ", "||", " ").Replace(command)
	return n + strings.Count(rest, ";") + strings.Count(rest, "|")
}
