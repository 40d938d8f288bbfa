// Package config loads and validates the recognizer settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/ayusman/keyflick/internal/gesture"
)

const appName = "keyflick"

// StoreKey is the settings table key holding overrides made through the
// HTTP API.
const StoreKey = "recognizer"

// LiveConfig tunes the circular detector that runs while the finger is down.
type LiveConfig struct {
	HistorySize         int     `toml:"history_size" json:"history_size"`
	CompletionTolerance float64 `toml:"completion_tolerance" json:"completion_tolerance"`
}

// Settings is an immutable snapshot of everything the recognizer needs.
type Settings struct {
	Preprocess gesture.PreprocessConfig `toml:"preprocess" json:"preprocess"`
	Thresholds gesture.Thresholds       `toml:"thresholds" json:"thresholds"`
	Live       LiveConfig               `toml:"live" json:"live"`
}

// Default returns the reference settings.
func Default() Settings {
	return Settings{
		Preprocess: gesture.DefaultPreprocessConfig(),
		Thresholds: gesture.DefaultThresholds(),
		Live: LiveConfig{
			HistorySize:         gesture.DefaultHistorySize,
			CompletionTolerance: gesture.DefaultCompletionTolerance,
		},
	}
}

// Validate reports every invalid value in s.
func (s Settings) Validate() error {
	var errs []error
	if err := s.Preprocess.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("preprocess: %w", err))
	}
	if err := s.Thresholds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("thresholds: %w", err))
	}
	if s.Live.HistorySize < 3 {
		errs = append(errs, fmt.Errorf("live: history size must be at least 3, got %d", s.Live.HistorySize))
	}
	if !(s.Live.CompletionTolerance >= 0) {
		errs = append(errs, fmt.Errorf("live: completion tolerance must not be negative, got %v", s.Live.CompletionTolerance))
	}
	return errors.Join(errs...)
}

// DefaultPath returns the config file location under XDG_CONFIG_HOME.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// DefaultDBPath returns the trace database location under XDG_DATA_HOME.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, appName, appName+".db")
}

// DefaultPluginDir returns the plugin directory under XDG_DATA_HOME.
func DefaultPluginDir() string {
	return filepath.Join(xdg.DataHome, appName, "plugins")
}

// DefaultLogPath returns the log file location under XDG_STATE_HOME.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, appName, appName+".log")
}

// Load reads a TOML file over the defaults. Keys missing from the file
// keep their default value and a missing file yields the defaults.
func Load(path string) (Settings, error) {
	settings := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return settings, nil
	}

	md, err := toml.DecodeFile(path, &settings)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to decode TOML config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("unknown config keys: %v", undecoded)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return settings, nil
}

// Write encodes s as TOML to path, creating parent directories.
func Write(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("failed to encode TOML config: %w", err)
	}
	return f.Close()
}
