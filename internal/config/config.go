// Package config loads and stores the toolkit's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned by Get and Set for keys not in the config.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds all toolkit configuration.
type Config struct {
	// Game install, used to find the canvas cache and the bundled converter
	InstallPath string `yaml:"install_path"`

	// External save converter executable; empty means look it up on PATH
	ConverterPath string `yaml:"converter_path"`
	FromSource    bool   `yaml:"from_source"`

	// Resource backups
	BackupDir string `yaml:"backup_dir"`

	// Saved selections for blueprint make/place
	BlueprintDir string `yaml:"blueprint_dir"`

	// Tool metadata index
	ToolsIndex string `yaml:"tools_index"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	LogFile  string `yaml:"log_file"`
}

// DefaultInstallPath is the usual Steam location of the game.
func DefaultInstallPath() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files (x86)\Steam\steamapps\common\Tower Unite`
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "steamapps", "common", "Tower Unite")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		InstallPath:   DefaultInstallPath(),
		ConverterPath: "",
		FromSource:    false,
		BackupDir:     "backups",
		BlueprintDir:  "blueprints",
		ToolsIndex:    "tools-index.json",
		LogLevel:      "info",
		LogFile:       "output.log",
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults, which are written to path so the user has something to edit.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("TOWER_INSTALL_PATH"); path != "" {
		c.InstallPath = path
	}
	if path := os.Getenv("TOWER_CONVERTER"); path != "" {
		c.ConverterPath = path
	}
}

//------------------------------------------------------------------------------
// KEY ACCESS
//------------------------------------------------------------------------------

func (c *Config) fields() map[string]interface{} {
	return map[string]interface{}{
		"install_path":   &c.InstallPath,
		"converter_path": &c.ConverterPath,
		"from_source":    &c.FromSource,
		"backup_dir":     &c.BackupDir,
		"blueprint_dir":  &c.BlueprintDir,
		"tools_index":    &c.ToolsIndex,
		"log_level":      &c.LogLevel,
		"log_file":       &c.LogFile,
	}
}

// Keys lists the config keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, 9)
	for k := range c.fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key formatted as a string.
func (c *Config) Get(key string) (string, error) {
	switch v := c.fields()[key].(type) {
	case *string:
		return *v, nil
	case *bool:
		return strconv.FormatBool(*v), nil
	}
	return "", fmt.Errorf("%w: %q (keys: %s)", ErrUnknownKey, key, strings.Join(c.Keys(), ", "))
}

// Set parses value into key.
func (c *Config) Set(key, value string) error {
	switch v := c.fields()[key].(type) {
	case *string:
		*v = value
		return nil
	case *bool:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(value)))
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, err)
		}
		*v = b
		return nil
	}
	return fmt.Errorf("%w: %q (keys: %s)", ErrUnknownKey, key, strings.Join(c.Keys(), ", "))
}

// Validate checks values that other packages depend on.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.BackupDir == "" {
		return errors.New("backup_dir must not be empty")
	}
	if c.BlueprintDir == "" {
		return errors.New("blueprint_dir must not be empty")
	}
	return nil
}
