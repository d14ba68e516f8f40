// Package config loads dealdesk settings from ini files. lookup order is the embedded
// defaults/config, then the global ~/.config/dealdesk/config, then a local .dealdesk/config
// in the working directory; later files win key by key.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

//go:embed defaults
var defaultsFS embed.FS

// localDirName is the project-level config directory looked up in the working directory.
const localDirName = ".dealdesk"

// Config is the merged configuration.
type Config struct {
	Values
	Colors ColorConfig

	configDir string // global config directory
	localDir  string // project config directory, empty if none
}

// Load installs defaults into configDir if needed and loads the merged configuration.
// empty configDir uses DefaultConfigDir. a .dealdesk directory in the working directory
// is used as the local override when present.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := installDefaults(defaultsFS, configDir); err != nil {
		return nil, fmt.Errorf("install defaults: %w", err)
	}
	return loadWithLocal(configDir, detectLocalDir())
}

// loadWithLocal loads config from the global directory with overrides from localDir.
func loadWithLocal(globalDir, localDir string) (*Config, error) {
	globalPath := filepath.Join(globalDir, "config")
	localPath := ""
	if localDir != "" {
		localPath = filepath.Join(localDir, "config")
	}

	layers, err := readLayers(defaultsFS, localPath, globalPath)
	if err != nil {
		return nil, err
	}
	values, err := loadValues(layers)
	if err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}
	colors, err := loadColors(layers)
	if err != nil {
		return nil, fmt.Errorf("load colors: %w", err)
	}

	return &Config{Values: values, Colors: colors, configDir: globalDir, localDir: localDir}, nil
}

// DefaultConfigDir returns ~/.config/dealdesk.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "dealdesk")
	}
	return filepath.Join(home, ".config", "dealdesk")
}

// ConfigDir returns the global config directory.
func (c *Config) ConfigDir() string { return c.configDir }

// LocalDir returns the project config directory, empty if none was found.
func (c *Config) LocalDir() string { return c.localDir }

// SubmitLatency returns the simulated create-deal latency.
func (c *Config) SubmitLatency() time.Duration {
	return time.Duration(c.SubmitLatencyMs) * time.Millisecond
}

// ResetDelay returns how long the success banner stays.
func (c *Config) ResetDelay() time.Duration {
	return time.Duration(c.ResetDelayMs) * time.Millisecond
}

// detectLocalDir returns .dealdesk in the working directory if it is a directory.
func detectLocalDir() string {
	info, err := os.Stat(localDirName)
	if err != nil || !info.IsDir() {
		return ""
	}
	abs, err := filepath.Abs(localDirName)
	if err != nil {
		return localDirName
	}
	return abs
}
