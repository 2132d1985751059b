package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultTimeoutSeconds = 60
	MaxTimeoutSeconds     = 600
	DefaultMaxOutputBytes = 1 << 20
	DefaultNATSSubject    = "hookrelay.dispatch"
	DefaultNATSQueue      = "hookrelay"
)

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a malformed settings or hook file. At startup it
// is fatal; during a reload the previous configuration stays in effect.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// LogConfig controls where and how verbosely hookrelay logs
type LogConfig struct {
	Level      string `mapstructure:"level" json:"level,omitempty" yaml:"level,omitempty"`
	File       string `mapstructure:"file" json:"file,omitempty" yaml:"file,omitempty"`
	Format     string `mapstructure:"format" json:"format,omitempty" yaml:"format,omitempty"`
	MaxSize    int    `mapstructure:"max-size" json:"max-size,omitempty" yaml:"max-size,omitempty"`
	MaxBackups int    `mapstructure:"max-backups" json:"max-backups,omitempty" yaml:"max-backups,omitempty"`
	MaxAge     int    `mapstructure:"max-age" json:"max-age,omitempty" yaml:"max-age,omitempty"`
	Compress   bool   `mapstructure:"compress" json:"compress,omitempty" yaml:"compress,omitempty"`
}

// NATSConfig configures the remote dispatch service
type NATSConfig struct {
	URL      string `mapstructure:"url" json:"url,omitempty" yaml:"url,omitempty"`
	Subject  string `mapstructure:"subject" json:"subject,omitempty" yaml:"subject,omitempty"`
	Queue    string `mapstructure:"queue" json:"queue,omitempty" yaml:"queue,omitempty"`
	Username string `mapstructure:"username" json:"username,omitempty" yaml:"username,omitempty"`
	Password string `mapstructure:"password" json:"password,omitempty" yaml:"password,omitempty"`
}

// Config represents the application configuration
type Config struct {
	ProjectRoot      string     `mapstructure:"project-root" json:"project-root,omitempty" yaml:"project-root,omitempty"`
	CommandDirs      []string   `mapstructure:"command-dirs" json:"command-dirs,omitempty" yaml:"command-dirs,omitempty"`
	HookFiles        []string   `mapstructure:"hooks-file" json:"hooks-file,omitempty" yaml:"hooks-file,omitempty"`
	NoHooks          bool       `mapstructure:"no-hooks" json:"no-hooks,omitempty" yaml:"no-hooks,omitempty"`
	DefaultTimeout   int        `mapstructure:"default-timeout" json:"default-timeout,omitempty" yaml:"default-timeout,omitempty"`
	MaxOutputBytes   int        `mapstructure:"max-output-bytes" json:"max-output-bytes,omitempty" yaml:"max-output-bytes,omitempty"`
	AsyncPostToolUse bool       `mapstructure:"async-post-tool-use" json:"async-post-tool-use,omitempty" yaml:"async-post-tool-use,omitempty"`
	Watch            bool       `mapstructure:"watch" json:"watch,omitempty" yaml:"watch,omitempty"`
	Debug            bool       `mapstructure:"debug" json:"debug,omitempty" yaml:"debug,omitempty"`
	Log              LogConfig  `mapstructure:"log" json:"log,omitempty" yaml:"log,omitempty"`
	NATS             NATSConfig `mapstructure:"nats" json:"nats,omitempty" yaml:"nats,omitempty"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("default-timeout", DefaultTimeoutSeconds)
	v.SetDefault("max-output-bytes", DefaultMaxOutputBytes)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max-size", 10)
	v.SetDefault("log.max-backups", 5)
	v.SetDefault("log.max-age", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("nats.subject", DefaultNATSSubject)
	v.SetDefault("nats.queue", DefaultNATSQueue)
}

// Load unmarshals v into a Config, fills zero values and validates the result
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &ConfigurationError{Path: v.ConfigFileUsed(), Err: fmt.Errorf("failed to unmarshal config: %w", err)}
	}
	cfg.applyDefaults()

	if cfg.ProjectRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, &ConfigurationError{Err: fmt.Errorf("determining project root: %w", err)}
		}
		cfg.ProjectRoot = cwd
	}
	abs, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("resolving project root: %w", err)}
	}
	cfg.ProjectRoot = abs

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Path: v.ConfigFileUsed(), Err: err}
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = DefaultTimeoutSeconds
	}
	if c.MaxOutputBytes == 0 {
		c.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = DefaultNATSSubject
	}
	if c.NATS.Queue == "" {
		c.NATS.Queue = DefaultNATSQueue
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DefaultTimeout < 0 || c.DefaultTimeout > MaxTimeoutSeconds {
		return fmt.Errorf("default-timeout %d out of range (0-%d seconds)", c.DefaultTimeout, MaxTimeoutSeconds)
	}
	if c.MaxOutputBytes < 0 {
		return fmt.Errorf("negative max-output-bytes: %d", c.MaxOutputBytes)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (text or json)", c.Log.Format)
	}
	if info, err := os.Stat(c.ProjectRoot); err != nil {
		return fmt.Errorf("project root: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("project root %s is not a directory", c.ProjectRoot)
	}
	return nil
}

// ReadConfigFile loads a settings file into v after environment variable substitution
func ReadConfigFile(v *viper.Viper, configPath string) error {
	rawContent, err := os.ReadFile(configPath)
	if err != nil {
		return &ConfigurationError{Path: configPath, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	substituter := &EnvSubstituter{}
	processedContent, err := substituter.SubstituteEnvVars(string(rawContent))
	if err != nil {
		return &ConfigurationError{Path: configPath, Err: err}
	}

	configType := "yaml"
	if strings.HasSuffix(configPath, ".json") {
		configType = "json"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType(configType)
	if err := v.ReadConfig(strings.NewReader(processedContent)); err != nil {
		return &ConfigurationError{Path: configPath, Err: err}
	}
	return nil
}

// FindConfigFile returns the first settings file found in dir, or "" if none exists
func FindConfigFile(dir string) string {
	for _, ext := range []string{"yml", "yaml", "json"} {
		p := filepath.Join(dir, ".hookrelay."+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// EnsureConfigExists creates a commented default settings file in homeDir if none exists
func EnsureConfigExists(homeDir string) (string, error) {
	if existing := FindConfigFile(homeDir); existing != "" {
		return existing, nil
	}

	configPath := filepath.Join(homeDir, ".hookrelay.yml")
	if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0o644); err != nil {
		return "", fmt.Errorf("error creating config file: %w", err)
	}
	return configPath, nil
}

const defaultConfigTemplate = `# hookrelay configuration file
# All command-line flags can be configured here.
# Values may reference the environment with env://NAME or env://NAME:-default
# wrapped in ${...}; commented lines are never substituted.

# project-root: "/path/to/project"   # defaults to the working directory
# command-dirs: []                   # extra user-scoped slash command directories
# hooks-file: []                     # extra hook files, merged last
# default-timeout: 60                # seconds, per hook unless overridden
# max-output-bytes: 1048576          # stdout/stderr cap per hook
# async-post-tool-use: false         # run PostToolUse hooks fire-and-forget
# watch: true                        # reload hooks and commands on change

# log:
#   level: info                      # debug, info, warn, error
#   format: text                     # text or json
#   file: ""                         # rotate into this file instead of stderr

# nats:
#   url: "nats://127.0.0.1:4222"
#   subject: "hookrelay.dispatch"
#   queue: "hookrelay"
#   username: "${env://NATS_USER:-}"
#   password: "${env://NATS_PASSWORD:-}"
`
