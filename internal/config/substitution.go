package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Variable substitution patterns
var (
	envVarPattern      = regexp.MustCompile(`\$\{env://([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)
	placeholderPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// parseVariableWithDefault extracts variable name and default value
// from "VAR:-default" or just "VAR".
func parseVariableWithDefault(varPart string) (varName, defaultValue string, hasDefault bool) {
	if strings.Contains(varPart, ":-") {
		parts := strings.SplitN(varPart, ":-", 2)
		return parts[0], parts[1], true
	}
	return varPart, "", false
}

// EnvSubstituter handles environment variable substitution in settings and hook files
type EnvSubstituter struct{}

// SubstituteEnvVars replaces ${env://VAR} and ${env://VAR:-default} patterns with environment variables.
// Lines that are YAML comments are copied unchanged, so a commented-out
// setting never requires its variable.
func (e *EnvSubstituter) SubstituteEnvVars(content string) (string, error) {
	var errors []string

	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines[i] = envVarPattern.ReplaceAllStringFunc(line, func(match string) string {
			varPart := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${env://")

			varName, defaultValue, hasDefault := parseVariableWithDefault(varPart)

			if envValue := os.Getenv(varName); envValue != "" {
				return envValue
			}

			if hasDefault {
				return defaultValue
			}

			errors = append(errors, fmt.Sprintf("required environment variable %s not set in %s", varName, match))
			return match
		})
	}

	if len(errors) > 0 {
		return "", fmt.Errorf("environment variable substitution failed: %s", strings.Join(errors, ", "))
	}

	return strings.Join(lines, ""), nil
}

// PlaceholderExpander replaces ${NAME} placeholders whose NAME is known
// in shell command text. Unknown placeholders are left untouched so the
// shell can resolve them.
type PlaceholderExpander struct {
	values map[string]string
}

// NewPlaceholderExpander creates an expander over the given values
func NewPlaceholderExpander(values map[string]string) *PlaceholderExpander {
	return &PlaceholderExpander{values: values}
}

// Expand performs a single pass; expanded values are not rescanned.
// Each value is quoted for the quoting context its placeholder sits in,
// so a value holding spaces or quotes stays a single shell word.
func (p *PlaceholderExpander) Expand(command string) string {
	if len(p.values) == 0 {
		return command
	}

	var b strings.Builder
	var quote byte
	for i := 0; i < len(command); {
		c := command[i]
		switch {
		case c == '\\' && quote != '\'' && i+1 < len(command):
			b.WriteString(command[i : i+2])
			i += 2
			continue
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		case c == '$':
			if m := placeholderPattern.FindStringSubmatch(command[i:]); m != nil {
				if v, ok := p.values[m[1]]; ok {
					b.WriteString(quoteIn(quote, v))
					i += len(m[0])
					continue
				}
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func quoteIn(quote byte, v string) string {
	single := "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
	switch quote {
	case '"':
		return strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`").Replace(v)
	case '\'':
		// end the open quote around the value
		return "'" + single + "'"
	default:
		return single
	}
}

// HasEnvVars checks if content contains environment variable patterns
func HasEnvVars(content string) bool {
	return envVarPattern.MatchString(content)
}
