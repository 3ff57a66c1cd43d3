// Package config provides the configuration schema, loader, environment
// overlay, and engine registry for vvpreset.
package config

import (
	"time"

	"github.com/MrWong99/vvpreset/internal/preset"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults.
const (
	DefaultEngineName = "voicevox"
	DefaultAPIBase    = "http://voicevox:50021"
	DefaultTimeout    = 30 * time.Second
	DefaultLogLevel   = LogInfo
)

// Config is the root configuration structure for vvpreset. Start from
// [Default], then overlay a file ([Load]), the environment ([ApplyEnv]),
// and command-line flags.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Log     LogConfig     `yaml:"log"`
	Merge   MergeConfig   `yaml:"merge"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// EngineConfig selects and addresses the TTS engine the speaker catalogue is
// read from.
type EngineConfig struct {
	// Name selects the registered engine implementation (e.g., "voicevox").
	Name string `yaml:"name"`

	// APIBase is the engine's base URL, without the /speakers path.
	APIBase string `yaml:"api_base"`

	// Timeout bounds the catalogue request. Zero disables the timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level LogLevel `yaml:"level"`
}

// MergeConfig controls how saved and fresh presets are reconciled.
type MergeConfig struct {
	// Key is the natural key presets are matched by: "name" or "style".
	Key preset.Key `yaml:"key"`

	// Strict aborts the run when the saved file has duplicate ids, negative
	// ids, or duplicate names instead of logging warnings.
	Strict bool `yaml:"strict"`
}

// MetricsConfig controls the end-of-run metrics dump.
type MetricsConfig struct {
	// File is where Prometheus text-format metrics are written after the
	// run. Empty disables the dump.
	File string `yaml:"file"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:    DefaultEngineName,
			APIBase: DefaultAPIBase,
			Timeout: DefaultTimeout,
		},
		Log:   LogConfig{Level: DefaultLogLevel},
		Merge: MergeConfig{Key: preset.KeyName},
	}
}
