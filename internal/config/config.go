// Package config loads flowstate's runtime configuration via a
// spf13/viper singleton, following the same discovery order and
// environment-prefix convention as the teacher's internal/config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper singleton. Call once at startup, before
// any Get* helper.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from CWD looking for a project .flowstate/config.yaml,
	//    so subcommands work from any subdirectory of a project.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".flowstate", "config.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. XDG config directory ($XDG_CONFIG_HOME/flowstate/config.yaml).
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "flowstate", "config.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory fallback (~/.flowstate/config.yaml).
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".flowstate", "config.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("FLOWSTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// backend: "file:<path>" for the sqlite backend, "memory" for the
	// in-memory reference store (spec.md section 6, "Environment").
	v.SetDefault("backend", "file:flowstate.db")
	v.SetDefault("engine-version", "")
	v.SetDefault("snapshot.every", 1)
	v.SetDefault("log.path", "")
	v.SetDefault("log.max-size-mb", 50)
	v.SetDefault("no-color", false)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}
	return nil
}

// Get returns the viper singleton. Initialize must have been called
// first; this package never implicitly self-initializes so tests can
// control config state explicitly.
func Get() *viper.Viper { return v }

// Backend returns the configured storage backend string.
func Backend() string { return v.GetString("backend") }

// EngineVersion returns the configured engine version string, or "" if
// unset (version-skew checking is then disabled).
func EngineVersion() string { return v.GetString("engine-version") }

// SnapshotEvery returns the configured SnapshotPolicy.Every value.
func SnapshotEvery() int { return v.GetInt("snapshot.every") }

// LogPath returns the configured rotating-log file path, or "" to log to
// stderr only.
func LogPath() string { return v.GetString("log.path") }

// LogMaxSizeMB returns the configured lumberjack max size in megabytes.
func LogMaxSizeMB() int { return v.GetInt("log.max-size-mb") }

// NoColor reports whether color output has been explicitly disabled.
func NoColor() bool { return v.GetBool("no-color") }
