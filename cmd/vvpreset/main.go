// Command vvpreset regenerates a VOICEVOX preset file from the engine's
// speaker catalogue.
//
// It reads the saved presets (if a file is given), fetches GET /speakers,
// keeps every saved preset that still matches a speaker style, numbers the
// new ones, and prints the merged YAML document to stdout:
//
//	vvpreset presets.yaml > presets.new.yaml
//
// Logs go to stderr. Nothing is printed to stdout when the run fails.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/vvpreset/internal/app"
	"github.com/MrWong99/vvpreset/internal/config"
	"github.com/MrWong99/vvpreset/internal/observe"
	"github.com/MrWong99/vvpreset/internal/preset"
	"github.com/MrWong99/vvpreset/pkg/provider/tts"
	"github.com/MrWong99/vvpreset/pkg/provider/tts/voicevox"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv))
}

// flags holds the raw command-line values. Only flags the user actually set
// override the configuration.
type flags struct {
	configPath  string
	apiBase     string
	timeout     time.Duration
	logLevel    string
	mergeKey    string
	strict      bool
	metricsFile string
	version     bool
}

func run(args []string, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	fs := flag.NewFlagSet("vvpreset", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f flags
	fs.StringVar(&f.configPath, "config", "", "path to an optional YAML configuration file")
	fs.StringVar(&f.apiBase, "api-base", "", "TTS engine base URL (default "+config.DefaultAPIBase+")")
	fs.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "timeout for the speaker catalogue request (0 disables)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error (default info)")
	fs.StringVar(&f.mergeKey, "merge-key", "", "match saved presets by: name, style (default name)")
	fs.BoolVar(&f.strict, "strict", false, "abort when the saved file has duplicate ids, negative ids or duplicate names")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus text-format metrics to this file after the run")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: vvpreset [flags] [preset-file]\n\n")
		fmt.Fprintf(fs.Output(), "Merges the engine's speaker catalogue into preset-file and prints the result to stdout.\n\nflags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if f.version {
		fmt.Fprintf(stdout, "vvpreset %s\n", version)
		return exitOK
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "vvpreset: expected at most one preset file, got %d arguments\n", fs.NArg())
		fs.Usage()
		return exitUsage
	}
	presetFile := fs.Arg(0)

	// ── Configuration: defaults ← file ← environment ← flags ──────────────────
	cfg, err := loadConfig(fs, f, lookupEnv)
	if err != nil {
		fmt.Fprintf(stderr, "vvpreset: %v\n", err)
		if errors.Is(err, errUsage) {
			return exitUsage
		}
		return exitFail
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Log.Level, stderr)
	slog.SetDefault(logger)

	slog.Debug("vvpreset starting",
		"version", version,
		"engine", cfg.Engine.Name,
		"api_base", cfg.Engine.APIBase,
		"timeout", cfg.Engine.Timeout,
		"merge_key", cfg.Merge.Key,
		"strict", cfg.Merge.Strict,
		"preset_file", presetFile,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return exitFail
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(provider.MeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return exitFail
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerEngines(reg)
	catalogue, err := reg.CreateCatalogue(cfg.Engine, observe.NewTransport(nil, metrics).Client())
	if err != nil {
		slog.Error("failed to create engine client", "err", err)
		return exitFail
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	application, err := app.New(catalogue,
		app.WithMergeKey(cfg.Merge.Key),
		app.WithStrict(cfg.Merge.Strict),
		app.WithMetrics(metrics),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return exitFail
	}

	code := exitOK
	if _, err := application.Run(ctx, presetFile, stdout); err != nil {
		slog.Error("run failed", "err", err)
		code = exitFail
	}

	if cfg.Metrics.File != "" {
		if err := provider.WriteTextfile(cfg.Metrics.File); err != nil {
			slog.Error("failed to write metrics", "err", err)
			code = exitFail
		}
	}
	return code
}

// errUsage marks configuration errors caused by bad flag values.
var errUsage = errors.New("invalid flag")

// loadConfig builds the effective configuration. Errors from flag values
// match errUsage.
func loadConfig(fs *flag.FlagSet, f flags, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}

	var flagErr error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "api-base":
			cfg.Engine.APIBase = f.apiBase
		case "timeout":
			cfg.Engine.Timeout = f.timeout
		case "log-level":
			cfg.Log.Level = config.LogLevel(f.logLevel)
		case "merge-key":
			k, err := preset.ParseKey(f.mergeKey)
			if err != nil {
				flagErr = errors.Join(flagErr, err)
				return
			}
			cfg.Merge.Key = k
		case "strict":
			cfg.Merge.Strict = f.strict
		case "metrics-file":
			cfg.Metrics.File = f.metricsFile
		}
	})
	if flagErr == nil {
		flagErr = config.Validate(cfg)
	}
	if flagErr != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, flagErr)
	}
	return cfg, nil
}

// ── Engine wiring ─────────────────────────────────────────────────────────────

// registerEngines wires the built-in catalogue factories into reg. AivisSpeech
// serves the VOICEVOX engine API, so both names share one client.
func registerEngines(reg *config.Registry) {
	newVoicevox := func(cfg config.EngineConfig, hc *http.Client) (tts.Catalogue, error) {
		return voicevox.New(cfg.APIBase,
			voicevox.WithHTTPClient(hc),
			voicevox.WithTimeout(cfg.Timeout),
			voicevox.WithUserAgent("vvpreset/"+version),
		)
	}
	reg.RegisterCatalogue("voicevox", newVoicevox)
	reg.RegisterCatalogue("aivisspeech", newVoicevox)
}

// ── Logging ───────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
