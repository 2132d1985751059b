package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/osi4iot/hookrelay/internal/config"
	"github.com/osi4iot/hookrelay/internal/hooks"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "blocked", err: &ExitError{Code: 2, Err: errors.New("no")}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInitConfig(t *testing.T) {
	t.Run("project file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".hookrelay.yml"), "default-timeout: 7\n")

		v := viper.New()
		if err := InitConfig(v, "", dir); err != nil {
			t.Fatal(err)
		}
		if got := v.GetInt("default-timeout"); got != 7 {
			t.Errorf("default-timeout = %d, want 7", got)
		}
	})

	t.Run("home default is created", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		v := viper.New()
		if err := InitConfig(v, "", t.TempDir()); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(filepath.Join(home, ".hookrelay.yml")); err != nil {
			t.Errorf("default config not created: %v", err)
		}
		if got := v.GetInt("default-timeout"); got != config.DefaultTimeoutSeconds {
			t.Errorf("default-timeout = %d", got)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("HOOKRELAY_DEFAULT_TIMEOUT", "9")
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".hookrelay.yml"), "default-timeout: 7\n")

		v := viper.New()
		if err := InitConfig(v, "", dir); err != nil {
			t.Fatal(err)
		}
		if got := v.GetInt("default-timeout"); got != 9 {
			t.Errorf("default-timeout = %d, want 9", got)
		}
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		err := InitConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yml"), "")
		if !errors.Is(err, config.ErrConfiguration) {
			t.Errorf("error = %v, want ConfigurationError", err)
		}
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// newProject creates a project directory with its own settings file so the
// developer's home configuration never leaks into a run.
func newProject(t *testing.T, hooksYAML string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("hook commands run through sh")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hookrelay.yml"), "log:\n  level: error\n")
	if hooksYAML != "" {
		writeFile(t, filepath.Join(dir, ".hookrelay", "hooks.yml"), hooksYAML)
	}
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestDispatchCommand(t *testing.T) {
	project := newProject(t, `
hooks:
  PreToolUse:
    - matcher: "Bash"
      hooks:
        - type: command
          command: "grep -q 'rm -rf' && { echo 'destructive command' >&2; exit 2; } || exit 0"
  UserPromptSubmit:
    - hooks:
        - type: command
          command: "echo '{\"hookSpecificOutput\":{\"additionalContext\":\"CTX\"}}'"
`)

	t.Run("block exits with status 2", func(t *testing.T) {
		_, _, err := execute(t, `{"tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`,
			"dispatch", "PreToolUse", "-C", project, "-o", "payload", "--subject", "")
		if ExitCode(err) != 2 || !errors.Is(err, hooks.ErrBlocked) {
			t.Fatalf("error = %v, want exit 2 block", err)
		}
		if !strings.Contains(err.Error(), "destructive command") {
			t.Errorf("error = %v, want the hook's stderr as reason", err)
		}
	})

	t.Run("allowed tool call", func(t *testing.T) {
		out, _, err := execute(t, `{"tool_name":"Bash","tool_input":{"command":"ls"}}`,
			"dispatch", "PreToolUse", "-C", project, "-o", "payload", "--subject", "")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, `"tool_name":"Bash"`) {
			t.Errorf("stdout = %q", out)
		}
	})

	t.Run("context injected into prompt", func(t *testing.T) {
		out, _, err := execute(t, `{"prompt":"hello"}`,
			"dispatch", "UserPromptSubmit", "-C", project, "-o", "payload", "--subject", "")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, `"prompt":"CTX\n\nhello"`) {
			t.Errorf("stdout = %q", out)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		_, _, err := execute(t, "", "dispatch", "Teardown", "-C", project, "-o", "payload")
		if err == nil {
			t.Fatal("expected error for unknown event")
		}
	})
}

func TestPromptCommandExpandsSlashCommand(t *testing.T) {
	project := newProject(t, "")
	writeFile(t, filepath.Join(project, ".hookrelay", "commands", "review.md"),
		"---\ndescription: Review a file\n---\nReview $1 carefully.")

	out, _, err := execute(t, "", "prompt", "-C", project, "--json=false", "/review main.go")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "Review main.go carefully." {
		t.Errorf("stdout = %q", out)
	}
}

func TestPromptBlockedBeforeExecLines(t *testing.T) {
	project := newProject(t, `
hooks:
  UserPromptSubmit:
    - hooks:
        - type: command
          command: 'grep -q FOOBAR && { echo "prompt mentions FOOBAR" >&2; exit 2; } || exit 0'
`)
	marker := filepath.Join(t.TempDir(), "touched")
	writeFile(t, filepath.Join(project, ".hookrelay", "commands", "touch.md"),
		"Touching $ARGUMENTS\n!`touch "+marker+"`")

	out, _, err := execute(t, "", "prompt", "-C", project, "--json=false", "/touch FOOBAR")
	if ExitCode(err) != 2 || !errors.Is(err, hooks.ErrBlocked) {
		t.Fatalf("err = %v, want exit 2 block", err)
	}
	if out != "" {
		t.Errorf("blocked prompt printed %q", out)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("exec line ran for a blocked prompt")
	}
}

func TestHooksInitWritesValidConfig(t *testing.T) {
	project := newProject(t, "")

	if _, _, err := execute(t, "", "hooks", "init", "-C", project, "--force"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(project, ".hookrelay", "hooks.yml")
	cfg, err := hooks.LoadHooksConfig(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if len(cfg.Hooks[hooks.PreToolUse]) == 0 || len(cfg.Hooks[hooks.Stop]) == 0 {
		t.Errorf("generated config = %+v", cfg.Hooks)
	}

	if _, _, err := execute(t, "", "hooks", "init", "-C", project, "--force=false"); err == nil {
		t.Error("init overwrote an existing file without --force")
	}
}

func TestCommandsSubcommands(t *testing.T) {
	project := newProject(t, "")
	writeFile(t, filepath.Join(project, ".hookrelay", "commands", "git", "log.md"),
		"---\ndescription: Summarise history\nargument-hint: <n>\n---\nSummarise the last $1 commits.\n!`git log -n $1 --oneline`")

	t.Run("list", func(t *testing.T) {
		out, _, err := execute(t, "", "commands", "list", "-C", project)
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"/git:log <n>", "project", "Summarise history"} {
			if !strings.Contains(out, want) {
				t.Errorf("list output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("show raw", func(t *testing.T) {
		out, _, err := execute(t, "", "commands", "show", "log", "-C", project, "--raw")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(out, "Summarise the last $1 commits.") {
			t.Errorf("show output = %q", out)
		}
	})

	t.Run("expand runs nothing", func(t *testing.T) {
		out, _, err := execute(t, "", "commands", "expand", "git:log", "5", "-C", project)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "Summarise the last 5 commits.") || !strings.Contains(out, "would run: git log -n ${HOOKRELAY_ARG_1} --oneline") {
			t.Errorf("expand output = %q", out)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if _, _, err := execute(t, "", "commands", "show", "nope", "-C", project, "--raw"); err == nil {
			t.Error("expected an error for an unknown command")
		}
	})
}
