package config

import (
	"strings"
	"testing"
)

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("HOOKRELAY_TEST_URL", "nats://bus:4222")
	t.Setenv("HOOKRELAY_TEST_EMPTY", "")

	tests := []struct {
		name     string
		input    string
		expected string
		errMsg   string
	}{
		{
			name:     "set variable",
			input:    "nats:\n  url: ${env://HOOKRELAY_TEST_URL}\n",
			expected: "nats:\n  url: nats://bus:4222\n",
		},
		{
			name:     "default used when unset",
			input:    "default-timeout: ${env://HOOKRELAY_TEST_MISSING:-30}",
			expected: "default-timeout: 30",
		},
		{
			name:     "empty value falls back to default",
			input:    "log:\n  level: ${env://HOOKRELAY_TEST_EMPTY:-warn}",
			expected: "log:\n  level: warn",
		},
		{
			name:     "default containing a URL",
			input:    "url: ${env://HOOKRELAY_TEST_MISSING:-nats://127.0.0.1:4222}",
			expected: "url: nats://127.0.0.1:4222",
		},
		{
			name:     "commented line is left alone",
			input:    "# token: ${env://HOOKRELAY_TEST_MISSING}\nwatch: true\n",
			expected: "# token: ${env://HOOKRELAY_TEST_MISSING}\nwatch: true\n",
		},
		{
			name:     "indented comment is left alone",
			input:    "nats:\n  # password: ${env://HOOKRELAY_TEST_MISSING}\n",
			expected: "nats:\n  # password: ${env://HOOKRELAY_TEST_MISSING}\n",
		},
		{
			name:     "shell placeholders untouched",
			input:    `command: "${HOOKRELAY_PROJECT_DIR}/check.sh"`,
			expected: `command: "${HOOKRELAY_PROJECT_DIR}/check.sh"`,
		},
		{
			name:   "required variable missing",
			input:  "password: ${env://HOOKRELAY_TEST_MISSING}",
			errMsg: "HOOKRELAY_TEST_MISSING not set",
		},
	}

	substituter := &EnvSubstituter{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := substituter.SubstituteEnvVars(tt.input)
			if tt.errMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
					t.Fatalf("error = %v, want %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDefaultTemplateSubstitutes(t *testing.T) {
	if _, err := (&EnvSubstituter{}).SubstituteEnvVars(defaultConfigTemplate); err != nil {
		t.Errorf("default template needs environment variables: %v", err)
	}
}

func TestHasEnvVars(t *testing.T) {
	if !HasEnvVars("url: ${env://NATS_URL:-nats://127.0.0.1:4222}") {
		t.Error("expected env reference to be detected")
	}
	if HasEnvVars("command: ${HOOKRELAY_PROJECT_DIR}/check.sh") {
		t.Error("shell placeholder reported as env reference")
	}
}

func TestPlaceholderExpander_Expand(t *testing.T) {
	values := map[string]string{
		"HOOKRELAY_PROJECT_DIR": "/work/my repo",
		"QUOTED":                `it's "x"`,
		"LOOP":                  "${HOOKRELAY_EVENT}",
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare placeholder becomes one word",
			input:    "${HOOKRELAY_PROJECT_DIR}/.hookrelay/check.sh",
			expected: "'/work/my repo'/.hookrelay/check.sh",
		},
		{
			name:     "inside double quotes",
			input:    `cd "${HOOKRELAY_PROJECT_DIR}" && echo "${QUOTED}"`,
			expected: `cd "/work/my repo" && echo "it's \"x\""`,
		},
		{
			name:     "inside single quotes",
			input:    `echo '${QUOTED}!'`,
			expected: `echo ''it'\''s "x"''!'`,
		},
		{
			name:     "escaped dollar untouched",
			input:    `echo \${HOOKRELAY_PROJECT_DIR}`,
			expected: `echo \${HOOKRELAY_PROJECT_DIR}`,
		},
		{
			name:     "unknown placeholder left for the shell",
			input:    "echo ${HOME}",
			expected: "echo ${HOME}",
		},
		{
			name:     "shell default syntax untouched",
			input:    "echo ${HOOKRELAY_PROJECT_DIR:-none}",
			expected: "echo ${HOOKRELAY_PROJECT_DIR:-none}",
		},
		{
			name:     "expanded value not rescanned",
			input:    "echo ${LOOP}",
			expected: "echo '${HOOKRELAY_EVENT}'",
		},
	}

	expander := NewPlaceholderExpander(values)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expander.Expand(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPlaceholderExpander_NoValues(t *testing.T) {
	input := "echo ${HOOKRELAY_PROJECT_DIR}"
	if got := NewPlaceholderExpander(nil).Expand(input); got != input {
		t.Errorf("Expected input unchanged, got %q", got)
	}
}
