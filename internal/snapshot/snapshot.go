// Package snapshot holds the immutable, versioned view of hooks and slash
// commands that every dispatch reads from.
package snapshot

import (
	"log/slog"
	"time"

	"github.com/osi4iot/hookrelay/internal/commands"
	"github.com/osi4iot/hookrelay/internal/config"
	"github.com/osi4iot/hookrelay/internal/hooks"
)

// Snapshot is never modified after it is published. Readers may hold on to
// one for the duration of a dispatch while a newer one replaces it.
type Snapshot struct {
	Version  uint64
	LoadedAt time.Time
	// HookFiles lists the files that were consulted, lowest precedence first.
	HookFiles []string
	Commands  *commands.Catalog

	hooks map[hooks.EventKind][]hooks.Registration
}

// Registrations implements hooks.Source.
func (s *Snapshot) Registrations(event hooks.EventKind) []hooks.Registration {
	if s == nil {
		return nil
	}
	return s.hooks[event]
}

// HookCount returns the number of registrations across all events.
func (s *Snapshot) HookCount() int {
	n := 0
	for _, regs := range s.hooks {
		n += len(regs)
	}
	return n
}

// Sources lists the hook files and command roots a snapshot is built from.
type Sources struct {
	ProjectRoot  string
	HookFiles    []string
	CommandRoots []commands.Root
}

// SourcesFor derives the search paths for cfg.
func SourcesFor(cfg *config.Config) Sources {
	src := Sources{
		ProjectRoot: cfg.ProjectRoot,
		CommandRoots: commands.RootsFor(
			config.ProjectCommandDirs(cfg.ProjectRoot),
			config.UserCommandDirs(cfg.CommandDirs...),
		),
	}
	if !cfg.NoHooks {
		src.HookFiles = config.HookSearchPaths(cfg.ProjectRoot, cfg.HookFiles...)
	}
	return src
}

// Build loads every source into a new unversioned snapshot. A malformed hook
// file yields a *config.ConfigurationError and no snapshot.
func Build(src Sources, defaultTimeout time.Duration, logger *slog.Logger) (*Snapshot, error) {
	hookCfg, err := hooks.LoadHooksConfig(src.HookFiles...)
	if err != nil {
		return nil, err
	}
	regs, err := hooks.Compile(hookCfg, defaultTimeout)
	if err != nil {
		return nil, &config.ConfigurationError{Err: err}
	}

	return &Snapshot{
		LoadedAt:  time.Now(),
		HookFiles: src.HookFiles,
		Commands:  commands.NewCatalog(src.ProjectRoot, src.CommandRoots, logger),
		hooks:     regs,
	}, nil
}
