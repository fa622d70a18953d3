// Package config loads lifter settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"lifter/internal/ldefs"
)

const (
	EnvSpecHome = "LIFTER_SPEC_HOME"
	EnvLogLevel = "LIFTER_LOG_LEVEL"
	EnvNoColor  = "LIFTER_NO_COLOR"
)

// Config holds the settings shared by all commands.
type Config struct {
	SpecDir  string `yaml:"specDir,omitempty" json:"specDir,omitempty" jsonschema:"title=Spec Directory,description=Directory holding *.ldefs.yaml language definitions; the built-in set is used when empty"`
	LogLevel string `yaml:"logLevel,omitempty" json:"logLevel,omitempty" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
	NoColor  bool   `yaml:"noColor,omitempty" json:"noColor,omitempty" jsonschema:"title=No Color,description=Disable colorized output"`
	Debug    bool   `yaml:"debug,omitempty" json:"debug,omitempty" jsonschema:"title=Debug,description=Enable debug logging and sequence dumps"`

	// SpecFS overrides SpecDir. Tests use it to inject fixtures.
	SpecFS fs.FS `yaml:"-" json:"-"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{LogLevel: "info"}
}

// DefaultPath is ~/.config/lifter/lifter.yaml, or "" when the user config
// directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lifter", "lifter.yaml")
}

// Load reads path over the defaults and applies the environment. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from LIFTER_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvSpecHome); v != "" {
		c.SpecDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvNoColor); v != "" && v != "0" {
		c.NoColor = true
	}
}

// LanguageFS is where language definitions are read from.
func (c *Config) LanguageFS() fs.FS {
	switch {
	case c == nil:
		return ldefs.Embedded()
	case c.SpecFS != nil:
		return c.SpecFS
	case c.SpecDir != "":
		return os.DirFS(c.SpecDir)
	}
	return ldefs.Embedded()
}

// Schema describes the config file format.
func Schema() *jsonschema.Schema {
	r := new(jsonschema.Reflector)
	return r.Reflect(&Config{})
}
