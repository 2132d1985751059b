package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/osi4iot/hookrelay/internal/config"
	"gopkg.in/yaml.v3"
)

// HookConfig represents the complete hooks configuration
type HookConfig struct {
	Hooks map[EventKind][]HookMatcher `yaml:"hooks" json:"hooks"`
}

// HookMatcher matches specific subjects and defines hooks to execute
type HookMatcher struct {
	Matcher string      `yaml:"matcher,omitempty" json:"matcher,omitempty"`
	Merge   string      `yaml:"_merge,omitempty" json:"_merge,omitempty"`
	Hooks   []HookEntry `yaml:"hooks" json:"hooks"`
}

// HookEntry defines a single hook command
type HookEntry struct {
	Type       string `yaml:"type" json:"type"`
	Command    string `yaml:"command" json:"command"`
	Timeout    int    `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	FailPolicy string `yaml:"failPolicy,omitempty" json:"failPolicy,omitempty"`
}

// LoadHooksConfig loads and merges hook configurations from paths, lowest precedence first.
// Missing files are skipped; unreadable or malformed ones yield a ConfigurationError.
func LoadHooksConfig(paths ...string) (*HookConfig, error) {
	merged := &HookConfig{
		Hooks: make(map[EventKind][]HookMatcher),
	}

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, &config.ConfigurationError{Path: path, Err: fmt.Errorf("reading hooks: %w", err)}
		}

		envSubstituter := &config.EnvSubstituter{}
		substituted, err := envSubstituter.SubstituteEnvVars(string(content))
		if err != nil {
			return nil, &config.ConfigurationError{Path: path, Err: err}
		}

		var cfg HookConfig
		if filepath.Ext(path) == ".json" {
			err = json.Unmarshal([]byte(substituted), &cfg)
		} else {
			err = yaml.Unmarshal([]byte(substituted), &cfg)
		}
		if err != nil {
			return nil, &config.ConfigurationError{Path: path, Err: fmt.Errorf("parsing hooks: %w", err)}
		}

		if err := ValidateHookConfig(&cfg); err != nil {
			return nil, &config.ConfigurationError{Path: path, Err: err}
		}

		mergeHookConfigs(merged, &cfg)
	}

	return merged, nil
}

// mergeHookConfigs merges source hooks into destination
func mergeHookConfigs(dst, src *HookConfig) {
	for event, matchers := range src.Hooks {
		if dst.Hooks[event] == nil {
			dst.Hooks[event] = matchers
			continue
		}

		for _, srcMatcher := range matchers {
			if srcMatcher.Merge == "replace" {
				// Replace all matchers for this event
				dst.Hooks[event] = []HookMatcher{srcMatcher}
				continue
			}

			found := false
			for i, dstMatcher := range dst.Hooks[event] {
				if dstMatcher.Matcher == srcMatcher.Matcher {
					dst.Hooks[event][i] = srcMatcher
					found = true
					break
				}
			}
			if !found {
				dst.Hooks[event] = append(dst.Hooks[event], srcMatcher)
			}
		}
	}
}
