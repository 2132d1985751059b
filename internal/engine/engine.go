// Package engine wires the configuration snapshot, the hook dispatcher and
// the slash command catalog into the operations a host calls.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osi4iot/hookrelay/internal/config"
	"github.com/osi4iot/hookrelay/internal/hooks"
	"github.com/osi4iot/hookrelay/internal/snapshot"
)

// Engine is safe for concurrent use. Each call reads one snapshot for its
// whole duration, so a reload never splits a dispatch.
type Engine struct {
	cfg        *config.Config
	sources    snapshot.Sources
	store      *snapshot.Store
	invoker    *hooks.Invoker
	dispatcher *hooks.Dispatcher
	logger     *slog.Logger

	// background tracks fire-and-forget dispatches of terminal events.
	background sync.WaitGroup
}

// New loads the initial snapshot for cfg. A malformed hook file is a
// *config.ConfigurationError and the engine is not created.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:     cfg,
		sources: snapshot.SourcesFor(cfg),
		invoker: hooks.NewInvoker(cfg.MaxOutputBytes),
		logger:  logger,
	}
	e.dispatcher = hooks.NewDispatcher(e.invoker, logger)

	snap, err := e.load()
	if err != nil {
		return nil, err
	}
	e.store = snapshot.NewStore(snap)

	logger.Debug("engine ready",
		"project", cfg.ProjectRoot,
		"version", snap.Version,
		"hooks", snap.HookCount(),
		"commands", snap.Commands.Len())
	return e, nil
}

func (e *Engine) defaultTimeout() time.Duration {
	if e.cfg.DefaultTimeout <= 0 {
		return config.DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(e.cfg.DefaultTimeout) * time.Second
}

func (e *Engine) load() (*snapshot.Snapshot, error) {
	return snapshot.Build(e.sources, e.defaultTimeout(), e.logger)
}

// Snapshot returns the configuration currently in effect.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	return e.store.Load()
}

// Config returns the settings the engine was created with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Reload rebuilds the snapshot from disk. On error the current one stays.
func (e *Engine) Reload() (uint64, error) {
	snap, err := e.load()
	if err != nil {
		return e.store.Load().Version, err
	}
	return e.store.Publish(snap), nil
}

// Watch reloads the snapshot whenever a hook file or command directory
// changes, until ctx is done.
func (e *Engine) Watch(ctx context.Context) error {
	w, err := snapshot.NewWatcher(e.store, e.sources, e.load, e.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Dispatch evaluates one event against the current snapshot. Blocking and
// informational events run their chain in order and return the aggregated
// decision. Terminal events are handed to a background fan-out and an Allow
// decision is returned at once; their failures are only logged.
func (e *Engine) Dispatch(ctx context.Context, req hooks.Request) hooks.Decision {
	return e.dispatchOn(ctx, e.store.Load(), req)
}

func (e *Engine) dispatchOn(ctx context.Context, snap *snapshot.Snapshot, req hooks.Request) hooks.Decision {
	if req.Env.ProjectDir == "" {
		req.Env.ProjectDir = e.cfg.ProjectRoot
	}

	// A blocking event always waits for its chain.
	if !req.Event.IsBlocking() && req.Event.IsTerminal(e.cfg.AsyncPostToolUse) {
		e.fanout(ctx, snap, req)
		return hooks.Decision{ID: uuid.NewString(), Event: req.Event, Outcome: hooks.Allow}
	}
	return e.dispatcher.Dispatch(ctx, snap, req)
}

func (e *Engine) fanout(ctx context.Context, snap *snapshot.Snapshot, req hooks.Request) {
	// The caller's response may complete before the hooks do.
	bg := context.WithoutCancel(ctx)

	e.background.Add(1)
	go func() {
		defer e.background.Done()
		if err := e.dispatcher.Fanout(bg, snap, req); err != nil {
			e.logger.Warn("terminal event hooks failed", "event", req.Event.String(), "error", err)
		}
	}()
}

// Wait blocks until every background dispatch has finished.
func (e *Engine) Wait() {
	e.background.Wait()
}

// Close waits for background dispatches. The engine must not be used afterwards.
func (e *Engine) Close() error {
	e.Wait()
	return nil
}
