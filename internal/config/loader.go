package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path on top of [Default] and
// returns the validated result. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Keys absent from the document keep their defaults;
// unknown keys are rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Engine
	if cfg.Engine.Name == "" {
		errs = append(errs, errors.New("engine.name is required"))
	}
	if cfg.Engine.APIBase == "" {
		errs = append(errs, errors.New("engine.api_base is required"))
	} else if u, err := url.Parse(cfg.Engine.APIBase); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("engine.api_base %q is not an absolute http(s) URL", cfg.Engine.APIBase))
	}
	if cfg.Engine.Timeout < 0 {
		errs = append(errs, fmt.Errorf("engine.timeout %s must not be negative", cfg.Engine.Timeout))
	}

	// Log
	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	// Merge
	if cfg.Merge.Key != "" && !cfg.Merge.Key.IsValid() {
		errs = append(errs, fmt.Errorf("merge.key %q is invalid; valid values: name, style", cfg.Merge.Key))
	}

	return errors.Join(errs...)
}
