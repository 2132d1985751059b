package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/osi4iot/hookrelay/internal/security"
)

const commandExt = ".md"

// maxSuggestions bounds the "did you mean" list on a miss.
const maxSuggestions = 3

type key struct {
	namespace string
	name      string
}

// Entry is a discovered command file that may not have been parsed yet.
type Entry struct {
	Name      string
	Namespace string
	Scope     Scope
	Path      string
}

// QualifiedName returns namespace:name, or just name at the top level.
func (e Entry) QualifiedName() string {
	return qualify(e.Namespace, e.Name)
}

// Catalog indexes command files across ordered roots and parses them on
// first use. Earlier roots shadow later ones for the same qualified name.
// A Catalog is safe for concurrent use.
type Catalog struct {
	projectRoot string
	logger      *slog.Logger

	entries map[key]Entry
	order   []key
	byBase  map[string][]key

	mu    sync.Mutex
	cache map[key]*Definition
}

// NewCatalog walks every root and builds the index. Missing roots are
// skipped; files or directories whose names are not valid identifiers are
// ignored with a warning.
func NewCatalog(projectRoot string, roots []Root, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		projectRoot: projectRoot,
		logger:      logger,
		entries:     make(map[key]Entry),
		byBase:      make(map[string][]key),
		cache:       make(map[key]*Definition),
	}
	for _, root := range roots {
		c.scan(root)
	}
	sort.Slice(c.order, func(i, j int) bool {
		return qualify(c.order[i].namespace, c.order[i].name) < qualify(c.order[j].namespace, c.order[j].name)
	})
	for _, k := range c.order {
		c.byBase[k.name] = append(c.byBase[k.name], k)
	}
	return c
}

// RootsFor orders project directories ahead of user directories.
func RootsFor(projectDirs, userDirs []string) []Root {
	roots := make([]Root, 0, len(projectDirs)+len(userDirs))
	for _, d := range projectDirs {
		roots = append(roots, Root{Path: d, Scope: ScopeProject})
	}
	for _, d := range userDirs {
		roots = append(roots, Root{Path: d, Scope: ScopeUser})
	}
	return roots
}

func (c *Catalog) scan(root Root) {
	info, err := os.Stat(root.Path)
	if err != nil || !info.IsDir() {
		return
	}

	err = filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn("skipping unreadable command path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root.Path {
			return nil
		}
		if d.IsDir() {
			if _, err := security.SanitizeIdentifier(d.Name()); err != nil {
				c.logger.Warn("skipping command directory", "path", path, "error", err)
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || filepath.Ext(d.Name()) != commandExt {
			return nil
		}

		name := strings.TrimSuffix(d.Name(), commandExt)
		if _, err := security.SanitizeIdentifier(name); err != nil {
			c.logger.Warn("skipping command file", "path", path, "error", err)
			return nil
		}

		rel, _ := filepath.Rel(root.Path, filepath.Dir(path))
		namespace := ""
		if rel != "." {
			namespace = strings.Join(strings.Split(filepath.ToSlash(rel), "/"), NamespaceSeparator)
		}

		k := key{namespace: namespace, name: name}
		if _, shadowed := c.entries[k]; shadowed {
			return nil
		}
		c.entries[k] = Entry{Name: name, Namespace: namespace, Scope: root.Scope, Path: path}
		c.order = append(c.order, k)
		return nil
	})
	if err != nil {
		c.logger.Warn("failed to scan command root", "root", root.Path, "error", err)
	}
}

// Entries lists every visible command sorted by qualified name.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.entries[k])
	}
	return out
}

// Len returns the number of visible commands.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Resolve finds a command by qualified name (sub:dir:name) or by a flat name.
// A flat name prefers a top-level definition and otherwise must match
// exactly one namespaced definition.
func (c *Catalog) Resolve(name string) (*Definition, error) {
	k, err := c.lookup(name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if def, ok := c.cache[k]; ok {
		return def, nil
	}

	def, err := c.load(c.entries[k])
	if err != nil {
		return nil, err
	}
	c.cache[k] = def
	return def, nil
}

func (c *Catalog) lookup(name string) (key, error) {
	segments := strings.Split(strings.TrimPrefix(name, "/"), NamespaceSeparator)
	for _, s := range segments {
		if _, err := security.SanitizeIdentifier(s); err != nil {
			return key{}, err
		}
	}

	last := len(segments) - 1
	k := key{namespace: strings.Join(segments[:last], NamespaceSeparator), name: segments[last]}
	if _, ok := c.entries[k]; ok {
		return k, nil
	}
	if k.namespace != "" {
		return key{}, c.notFound(name)
	}

	candidates := c.byBase[k.name]
	switch len(candidates) {
	case 0:
		return key{}, c.notFound(name)
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, cand := range candidates {
			names[i] = qualify(cand.namespace, cand.name)
		}
		return key{}, &AmbiguousError{Name: name, Candidates: names}
	}
}

func (c *Catalog) notFound(name string) error {
	labels := make([]string, len(c.order))
	for i, k := range c.order {
		labels[i] = qualify(k.namespace, k.name)
	}
	var suggestions []string
	for _, m := range fuzzy.Find(name, labels) {
		suggestions = append(suggestions, m.Str)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return &NotFoundError{Name: name, Suggestions: suggestions}
}

func (c *Catalog) load(e Entry) (*Definition, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Name: e.QualifiedName()}
		}
		return nil, fmt.Errorf("read command %s: %w", e.QualifiedName(), err)
	}

	fm, body, warnings := parseDefinition(string(data))
	for _, w := range warnings {
		c.logger.Warn(w, "command", e.QualifiedName(), "path", e.Path)
	}

	body, refWarnings := ExpandReferences(body, c.projectRoot)
	for _, w := range refWarnings {
		c.logger.Warn(w, "command", e.QualifiedName())
	}

	return &Definition{
		Name:        e.Name,
		Namespace:   e.Namespace,
		Frontmatter: fm,
		Body:        body,
		Scope:       e.Scope,
		Path:        e.Path,
		Warnings:    append(warnings, refWarnings...),
	}, nil
}
