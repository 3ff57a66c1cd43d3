package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables consulted by [ApplyEnv].
const (
	EnvAPIBase  = "VVPRESET_API_BASE"
	EnvTimeout  = "VVPRESET_TIMEOUT"
	EnvLogLevel = "VVPRESET_LOG_LEVEL"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are given) into the process environment. Variables that are already set
// are not overridden. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %q: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays values from the environment onto cfg. lookup is usually
// [os.LookupEnv]. Unset or empty variables leave cfg untouched. The result
// is validated.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	if v, ok := lookupNonEmpty(lookup, EnvAPIBase); ok {
		cfg.Engine.APIBase = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvTimeout, err))
		} else {
			cfg.Engine.Timeout = d
		}
	}
	if v, ok := lookupNonEmpty(lookup, EnvLogLevel); ok {
		cfg.Log.Level = LogLevel(strings.ToLower(v))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: environment: %w", errors.Join(errs...))
	}
	return Validate(cfg)
}

func lookupNonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
