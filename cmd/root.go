package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/osi4iot/hookrelay/internal/config"
	"github.com/osi4iot/hookrelay/internal/engine"
	"github.com/osi4iot/hookrelay/internal/logging"
)

var (
	configFile       string
	projectRoot      string
	debugMode        bool
	noHooks          bool
	hookFiles        []string
	logFile          string
	defaultTimeout   int
	asyncPostToolUse bool
)

// ExitError carries a process exit code for main to use. Code 2 means a hook
// blocked the request.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "hookrelay",
	Short: "Run lifecycle hooks and expand slash commands for agent hosts",
	Long: `hookrelay evaluates lifecycle events against user-configured shell hooks
and expands markdown slash commands into prompts.

Hooks are read from hooks.yml files in the user config directory and the
project's .hookrelay directory. Slash commands are markdown files under
.hookrelay/commands (project) and ~/.config/hookrelay/commands (user).

Examples:
  # Evaluate a tool call; exits 2 when a hook blocks it
  echo '{"tool_name":"Bash","tool_input":{"command":"rm -rf /"}}' | hookrelay dispatch PreToolUse

  # Expand a slash command and run UserPromptSubmit hooks over the result
  hookrelay prompt "/review src/main.go"

  # List the slash commands visible from this project
  hookrelay commands list

  # Serve dispatch requests over NATS
  hookrelay serve --watch`,
	SilenceUsage: true,
}

// GetRootCommand returns the root command with the version set
func GetRootCommand(v string) *cobra.Command {
	rootCmd.Version = v
	return rootCmd
}

func initConfig() {
	if err := InitConfig(viper.GetViper(), configFile, projectRoot); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// InitConfig loads settings into v. An explicit file must load cleanly;
// otherwise the project directory is searched, then the home directory,
// where a commented default file is created on first use.
func InitConfig(v *viper.Viper, explicit, dir string) error {
	config.SetDefaults(v)

	v.SetEnvPrefix("HOOKRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if explicit != "" {
		return config.ReadConfigFile(v, explicit)
	}

	if dir == "" {
		dir, _ = os.Getwd()
	}
	if path := config.FindConfigFile(dir); path != "" {
		return config.ReadConfigFile(v, path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// No home directory means no user config; flags and env still apply.
		return nil
	}
	path, err := config.EnsureConfigExists(home)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not create default config file: %v\n", err)
		return nil
	}
	return config.ReadConfigFile(v, path)
}

// newEngine builds an engine from the global settings. The returned cleanup
// waits for background hooks and flushes the log file.
func newEngine() (*engine.Engine, func(), error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	logger, closer, err := logging.Setup(cfg.Log, cfg.Debug, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	e, err := engine.New(cfg, logger)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return e, func() {
		e.Close()
		closer.Close()
	}, nil
}

// readInput returns the contents of path, or of stdin when path is empty and
// stdin is not a terminal.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, nil
	}
	return io.ReadAll(in)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is ./.hookrelay.yml, then $HOME/.hookrelay.yml)")
	flags.StringVarP(&projectRoot, "project-root", "C", "", "project directory (default is the working directory)")
	flags.BoolVar(&debugMode, "debug", false, "enable debug logging")
	flags.BoolVar(&noHooks, "no-hooks", false, "disable all hooks execution")
	flags.StringSliceVar(&hookFiles, "hooks-file", nil, "additional hook files, merged after the defaults")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file with rotation instead of stderr")
	flags.IntVar(&defaultTimeout, "timeout", config.DefaultTimeoutSeconds, "default hook timeout in seconds")
	flags.BoolVar(&asyncPostToolUse, "async-post-tool-use", false, "run PostToolUse hooks in the background")

	// Bind flags to viper for config file support
	bindFlags(flags, map[string]string{
		"project-root":        "project-root",
		"debug":               "debug",
		"no-hooks":            "no-hooks",
		"hooks-file":          "hooks-file",
		"log.file":            "log-file",
		"default-timeout":     "timeout",
		"async-post-tool-use": "async-post-tool-use",
	})
}

// bindFlags binds each config key to the named flag of fs.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}
