// Package config handles loading rewriter configuration from files.
//
// Configuration can be specified in a YAML file named rebind.yaml or
// .rebindrc. The config file is searched for in the current directory and
// parent directories, and individual settings can be overridden through
// REBIND_* environment variables.
package config

import (
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/varmark/rebind/pkg/api"
)

// Config represents the configuration file structure.
// All fields are optional and will use default values if not specified.
type Config struct {
	// Enabled toggles the rewrite. Disabled builds pass sources through
	// untouched.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Indent is the indentation unit of rewritten output.
	Indent *string `yaml:"indent,omitempty"`

	// Annotate adds the per-function name listing to every rewrite.
	Annotate *bool `yaml:"annotate,omitempty"`

	// History is the REPL history file path.
	History *string `yaml:"history,omitempty"`
}

// ConfigFileNames are the names searched for config files, in order of
// preference.
var ConfigFileNames = []string{
	"rebind.yaml",
	".rebindrc",
	".rebindrc.yaml",
}

// Load searches for a config file starting from the given directory
// and walking up to parent directories. Returns nil if no config file
// is found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, no config found.
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides config fields from REBIND_* environment variables.
// Environment variables take precedence over the config file.
func (c *Config) ApplyEnv() {
	if env.Has("REBIND_ENABLED") {
		v := env.Bool("REBIND_ENABLED")
		c.Enabled = &v
	}
	if env.Has("REBIND_INDENT") {
		v := env.Str("REBIND_INDENT")
		c.Indent = &v
	}
	if env.Has("REBIND_ANNOTATE") {
		v := env.Bool("REBIND_ANNOTATE")
		c.Annotate = &v
	}
	if env.Has("REBIND_HISTORY") {
		v := env.Str("REBIND_HISTORY")
		c.History = &v
	}
}

// ToOptions converts a Config to api.Options, using defaults for unset
// fields.
func (c *Config) ToOptions() api.Options {
	opts := api.DefaultOptions()

	if c.Enabled != nil {
		opts.Enabled = *c.Enabled
	}
	if c.Indent != nil {
		opts.Indent = *c.Indent
	}
	if c.Annotate != nil {
		opts.Annotate = *c.Annotate
	}

	return opts
}

// HistoryFile returns the configured REPL history path, or the default
// under the home directory.
func (c *Config) HistoryFile() string {
	if c.History != nil && *c.History != "" {
		return *c.History
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rebind_history"
	}
	return filepath.Join(home, ".rebind_history")
}

// MergeOptions carries CLI flags; nil means not specified on the command
// line.
type MergeOptions struct {
	Enabled  *bool
	Indent   *string
	Annotate *bool
}

// Merge merges CLI options with config file options.
// CLI options override config file options when specified.
func (c *Config) Merge(cli MergeOptions) api.Options {
	opts := c.ToOptions()

	if cli.Enabled != nil {
		opts.Enabled = *cli.Enabled
	}
	if cli.Indent != nil {
		opts.Indent = *cli.Indent
	}
	if cli.Annotate != nil {
		opts.Annotate = *cli.Annotate
	}

	return opts
}
