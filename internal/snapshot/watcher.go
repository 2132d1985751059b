package snapshot

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of editor writes into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Loader builds a fresh snapshot from disk.
type Loader func() (*Snapshot, error)

// Watcher rebuilds and republishes the snapshot when a watched hook file or
// command directory changes. A failed rebuild keeps the previous snapshot.
type Watcher struct {
	store    *Store
	load     Loader
	logger   *slog.Logger
	debounce time.Duration
	fs       *fsnotify.Watcher

	hookFiles map[string]bool
	targets   []string // hook file directories and command roots
	roots     []string
	watched   map[string]bool

	// OnReload, when set, is called after every reload attempt.
	OnReload func(version uint64, err error)
}

// NewWatcher watches the directories holding src's hook files and every
// command root, including nested namespace directories. A directory that
// does not exist yet is covered by watching its nearest existing parent
// until it appears.
func NewWatcher(store *Store, src Sources, load Loader, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		store:     store,
		load:      load,
		logger:    logger,
		debounce:  DefaultDebounce,
		fs:        fw,
		hookFiles: make(map[string]bool),
		watched:   make(map[string]bool),
	}

	for _, file := range src.HookFiles {
		file = filepath.Clean(file)
		w.hookFiles[file] = true
		w.targets = append(w.targets, filepath.Dir(file))
	}
	for _, root := range src.CommandRoots {
		path := filepath.Clean(root.Path)
		w.roots = append(w.roots, path)
		w.targets = append(w.targets, path)
	}

	for _, dir := range w.targets {
		if isDir(dir) {
			w.addTree(dir)
		} else {
			w.add(nearestExisting(dir))
		}
	}

	return w, nil
}

func (w *Watcher) add(dir string) {
	if dir == "" || w.watched[dir] {
		return
	}
	w.watched[dir] = true
	if err := w.fs.Add(dir); err != nil {
		w.logger.Debug("not watching directory", "dir", dir, "error", err)
	}
}

// addTree watches dir and every directory below it that leads to or lies
// inside a target.
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if !w.relevant(path) {
			return filepath.SkipDir
		}
		w.add(path)
		return nil
	})
}

// relevant reports whether path is a hook file, lies inside a command root,
// or is a directory on the way to one of the targets.
func (w *Watcher) relevant(path string) bool {
	if w.hookFiles[path] {
		return true
	}
	for _, root := range w.roots {
		if within(root, path) {
			return true
		}
	}
	for _, target := range w.targets {
		if within(path, target) {
			return true
		}
	}
	return false
}

func within(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func nearestExisting(dir string) string {
	for {
		if isDir(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				w.addTree(event.Name)
			}
			w.logger.Debug("configuration change", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			w.Reload()
		}
	}
}

// Reload rebuilds the snapshot immediately.
func (w *Watcher) Reload() {
	snap, err := w.load()
	if err != nil {
		w.logger.Error("reload failed, keeping previous configuration",
			"version", w.store.Load().Version, "error", err)
		if w.OnReload != nil {
			w.OnReload(0, err)
		}
		return
	}

	version := w.store.Publish(snap)
	w.logger.Info("configuration reloaded", "version", version, "hooks", snap.HookCount(), "commands", snap.Commands.Len())
	if w.OnReload != nil {
		w.OnReload(version, nil)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
