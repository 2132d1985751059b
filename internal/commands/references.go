package commands

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/osi4iot/hookrelay/internal/security"
)

var referencePattern = regexp.MustCompile(`(^|\s)@(\S+)`)

const referenceTrailers = `.,;:!?)]}"'`

// ExpandReferences replaces each @path token with the contents of path when
// it names a regular file inside projectRoot. Anything else stays literal
// and produces a warning.
func ExpandReferences(body, projectRoot string) (string, []string) {
	var warnings []string

	out := referencePattern.ReplaceAllStringFunc(body, func(match string) string {
		at := strings.IndexByte(match, '@')
		lead, token := match[:at], match[at+1:]

		path := strings.TrimRight(token, referenceTrailers)
		trailer := token[len(path):]
		if path == "" {
			return match
		}

		resolved, err := security.SanitizePath(projectRoot, path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("@%s left literal: %v", path, err))
			return match
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.Mode().IsRegular() {
			warnings = append(warnings, fmt.Sprintf("@%s left literal: not a readable file", path))
			return match
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("@%s left literal: %v", path, err))
			return match
		}
		return lead + string(data) + trailer
	})

	return out, warnings
}
