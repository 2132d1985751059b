package commands

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// NamespaceSeparator joins directory segments in a qualified command name.
const NamespaceSeparator = ":"

// Scope says where a definition was found. Project definitions shadow user ones.
type Scope uint8

const (
	ScopeProject Scope = iota
	ScopeUser
)

func (s Scope) String() string {
	switch s {
	case ScopeProject:
		return "project"
	case ScopeUser:
		return "user"
	}
	return fmt.Sprintf("Scope(%d)", uint8(s))
}

// Root is one directory searched for command files.
type Root struct {
	Path  string
	Scope Scope
}

// ToolSet is the allowed-tools frontmatter key. It accepts a YAML list or a
// comma separated string and drops duplicates while keeping order.
type ToolSet []string

func (t *ToolSet) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	switch node.Kind {
	case yaml.ScalarNode:
		for _, part := range strings.Split(node.Value, ",") {
			raw = append(raw, part)
		}
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("allowed-tools must be a list or a string")
	}

	seen := make(map[string]struct{}, len(raw))
	out := make(ToolSet, 0, len(raw))
	for _, tool := range raw {
		tool = strings.TrimSpace(tool)
		if tool == "" {
			continue
		}
		if _, dup := seen[tool]; dup {
			continue
		}
		seen[tool] = struct{}{}
		out = append(out, tool)
	}
	*t = out
	return nil
}

// Contains reports whether tool is listed verbatim.
func (t ToolSet) Contains(tool string) bool {
	for _, v := range t {
		if v == tool {
			return true
		}
	}
	return false
}

// Frontmatter is the metadata block at the top of a command file.
type Frontmatter struct {
	AllowedTools ToolSet `yaml:"allowed-tools,omitempty" json:"allowedTools,omitempty"`
	Description  string  `yaml:"description,omitempty" json:"description,omitempty"`
	ArgumentHint string  `yaml:"argument-hint,omitempty" json:"argumentHint,omitempty"`
	Model        string  `yaml:"model,omitempty" json:"model,omitempty"`
}

// Definition is a parsed slash command.
type Definition struct {
	Name        string      `json:"name"`
	Namespace   string      `json:"namespace,omitempty"`
	Frontmatter Frontmatter `json:"frontmatter"`
	Body        string      `json:"body"`
	Scope       Scope       `json:"-"`
	Path        string      `json:"path"`
	// Warnings collects recoverable problems found while loading, such as
	// malformed frontmatter or @file references that were left literal.
	Warnings []string `json:"warnings,omitempty"`
}

// QualifiedName returns namespace:name, or just name at the top level.
func (d *Definition) QualifiedName() string {
	return qualify(d.Namespace, d.Name)
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + NamespaceSeparator + name
}
