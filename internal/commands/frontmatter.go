package commands

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// ParseFrontmatter extracts YAML frontmatter from Markdown content.
// It returns the parsed frontmatter as T, the remaining body, and any error.
// If no frontmatter is found, it returns (zero T, original content, nil).
func ParseFrontmatter[T any](content string) (T, string, error) {
	var zero T

	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.TrimPrefix(normalized, "\uFEFF")

	if !strings.HasPrefix(normalized, frontmatterDelimiter+"\n") {
		return zero, content, nil
	}

	rest := normalized[len(frontmatterDelimiter)+1:]

	var yamlContent, afterClosing string
	if strings.HasPrefix(rest, frontmatterDelimiter+"\n") || rest == frontmatterDelimiter {
		afterClosing = rest[len(frontmatterDelimiter):]
	} else {
		before, after, ok := strings.Cut(rest, "\n"+frontmatterDelimiter)
		if !ok {
			return zero, "", errors.New("unterminated frontmatter: missing closing ---")
		}
		// The closing fence must be a line of its own.
		if after != "" && after[0] != '\n' {
			return zero, "", errors.New("unterminated frontmatter: closing --- must be on its own line")
		}
		yamlContent = before
		afterClosing = after
	}

	body := strings.TrimPrefix(afterClosing, "\n")

	var result T
	if err := yaml.Unmarshal([]byte(yamlContent), &result); err != nil {
		return zero, "", fmt.Errorf("parse frontmatter YAML: %w", err)
	}

	return result, body, nil
}

// parseDefinition splits a command file into metadata and body. Malformed
// frontmatter never fails: the whole file becomes the body and a warning
// explains why.
func parseDefinition(content string) (Frontmatter, string, []string) {
	fm, body, err := ParseFrontmatter[Frontmatter](content)
	if err != nil {
		return Frontmatter{}, content, []string{"frontmatter ignored: " + err.Error()}
	}
	return fm, body, nil
}
