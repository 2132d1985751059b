// Package sdk embeds hookrelay in a Go host: dispatch lifecycle events to
// hooks and expand slash commands without shelling out to the CLI.
package sdk

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/osi4iot/hookrelay/cmd"
	"github.com/osi4iot/hookrelay/internal/config"
	"github.com/osi4iot/hookrelay/internal/engine"
	"github.com/osi4iot/hookrelay/internal/hooks"
	"github.com/osi4iot/hookrelay/internal/logging"
)

// Relay provides programmatic access to hookrelay
type Relay struct {
	engine *engine.Engine
	closer io.Closer
	cancel context.CancelFunc
}

// Options for creating a Relay (all optional - will use CLI defaults)
type Options struct {
	ConfigFile  string   // Override config file path
	ProjectRoot string   // Project directory (default is the working directory)
	HookFiles   []string // Extra hook files, merged last
	CommandDirs []string // Extra user-scoped command directories
	NoHooks     bool     // Disable all hooks
	Timeout     int      // Default hook timeout in seconds (0 = use config)
	Watch       bool     // Reload on file changes until Close
	Debug       bool     // Enable debug logging
	Quiet       bool     // Discard all log output
}

// New creates a Relay using the same configuration lookup as the CLI
func New(ctx context.Context, opts *Options) (*Relay, error) {
	if opts == nil {
		opts = &Options{}
	}

	v := viper.New()
	if err := cmd.InitConfig(v, opts.ConfigFile, opts.ProjectRoot); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override viper settings with options
	if opts.ProjectRoot != "" {
		v.Set("project-root", opts.ProjectRoot)
	}
	if len(opts.HookFiles) > 0 {
		v.Set("hooks-file", opts.HookFiles)
	}
	if len(opts.CommandDirs) > 0 {
		v.Set("command-dirs", opts.CommandDirs)
	}
	if opts.NoHooks {
		v.Set("no-hooks", true)
	}
	if opts.Timeout > 0 {
		v.Set("default-timeout", opts.Timeout)
	}
	if opts.Debug {
		v.Set("debug", true)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	var closer io.Closer
	logger := logging.Discard()
	if !opts.Quiet {
		logger, closer, err = logging.Setup(cfg.Log, cfg.Debug, os.Stderr)
		if err != nil {
			return nil, err
		}
	}

	e, err := engine.New(cfg, logger)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	r := &Relay{engine: e, closer: closer, cancel: func() {}}
	if opts.Watch || cfg.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		r.cancel = cancel
		go func() {
			if err := e.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
				logger.Warn("watching configuration stopped", "error", err)
			}
		}()
	}
	return r, nil
}

// Dispatch runs the hooks for event and returns the aggregated decision.
// An empty subject is taken from the payload's tool_name.
func (r *Relay) Dispatch(ctx context.Context, event Event, subject string, payload []byte) Decision {
	return r.engine.Dispatch(ctx, hooks.Request{Event: event, Subject: subject, Payload: payload})
}

// Apply merges a decision into payload, or returns a *BlockedError
func (r *Relay) Apply(event Event, payload []byte, d Decision) ([]byte, error) {
	return engine.Apply(event, payload, d)
}

// Process dispatches event and applies the decision in one step
func (r *Relay) Process(ctx context.Context, event Event, payload []byte) ([]byte, error) {
	d := r.Dispatch(ctx, event, "", payload)
	return r.Apply(event, payload, d)
}

// Compose expands a leading slash command in text. Text that is not a
// command comes back unchanged with Kind PassThrough.
func (r *Relay) Compose(ctx context.Context, text, sessionID string) (Composition, error) {
	return r.engine.Compose(ctx, text, engine.ComposeOptions{SessionID: sessionID})
}

// SubmitPrompt checks text with the UserPromptSubmit hooks, expands a
// leading slash command and returns the final UserPromptSubmit payload.
// A prompt the hooks block never runs the command's inline lines.
func (r *Relay) SubmitPrompt(ctx context.Context, text, sessionID string) (Composition, []byte, error) {
	sub, err := r.engine.SubmitPrompt(ctx, text, engine.ComposeOptions{SessionID: sessionID})
	return sub.Composition, sub.Payload, err
}

// Reload rebuilds hooks and commands from disk and returns the new version
func (r *Relay) Reload() (uint64, error) {
	return r.engine.Reload()
}

// Version returns the configuration version in effect
func (r *Relay) Version() uint64 {
	return r.engine.Snapshot().Version
}

// Close stops watching, waits for background hooks and flushes logs
func (r *Relay) Close() error {
	r.cancel()
	err := r.engine.Close()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
