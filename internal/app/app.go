// Package app wires the vvpreset pipeline: load the saved presets, fetch the
// speaker catalogue, transform, merge, and emit.
//
// The saved file is loaded before the catalogue is requested, so a broken
// file never reaches the engine. The merged document is rendered into a
// buffer and written out only when every stage succeeded.
//
// For testing, inject a mock catalogue (see pkg/provider/tts/mock) and a
// [observe.Metrics] backed by a manual reader via functional options.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/vvpreset/internal/observe"
	"github.com/MrWong99/vvpreset/internal/phonetic"
	"github.com/MrWong99/vvpreset/internal/preset"
	"github.com/MrWong99/vvpreset/pkg/provider/tts"
)

// App runs the preset pipeline against one speaker catalogue. An App holds
// no per-run state and may be reused.
type App struct {
	catalogue tts.Catalogue
	key       preset.Key
	strict    bool
	matcher   *phonetic.Matcher
	metrics   *observe.Metrics
}

// Option is a functional option for New.
type Option func(*App)

// WithMergeKey sets the natural key saved and fresh presets are matched by.
// Defaults to [preset.KeyName].
func WithMergeKey(k preset.Key) Option {
	return func(a *App) { a.key = k }
}

// WithStrict makes problems in the saved file (duplicate ids, negative ids,
// duplicate names) abort the run instead of being logged.
func WithStrict(strict bool) Option {
	return func(a *App) { a.strict = strict }
}

// WithMatcher replaces the name matcher used for rename hints. A nil matcher
// disables name-based hints.
func WithMatcher(m *phonetic.Matcher) Option {
	return func(a *App) { a.matcher = m }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App reading speakers from catalogue.
func New(catalogue tts.Catalogue, opts ...Option) (*App, error) {
	if catalogue == nil {
		return nil, errors.New("app: catalogue must not be nil")
	}
	a := &App{
		catalogue: catalogue,
		key:       preset.KeyName,
		matcher:   phonetic.New(),
	}
	for _, o := range opts {
		o(a)
	}
	if !a.key.IsValid() {
		return nil, fmt.Errorf("app: invalid merge key %q", a.key)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a, nil
}

// Report summarises a successful run.
type Report struct {
	// Speakers is the number of speakers the catalogue returned.
	Speakers int

	// Merge is the full merge outcome; Merge.Presets is what was written.
	Merge preset.Result

	// Issues lists problems found in the saved file (non-strict runs only).
	Issues []preset.Issue

	// Renames lists likely renames among the dropped presets.
	Renames []preset.Rename
}

// Run executes the pipeline once. presetFile names the saved collection; an
// empty path means there is none. The merged YAML document is written to w
// only when the run succeeds.
func (a *App) Run(ctx context.Context, presetFile string, w io.Writer) (*Report, error) {
	ctx, span := observe.StartSpan(ctx, "vvpreset.run", trace.WithAttributes(
		attribute.String("vvpreset.preset_file", presetFile),
		attribute.String("vvpreset.merge_key", string(a.key)),
		attribute.Bool("vvpreset.strict", a.strict),
	))
	defer span.End()

	rep, err := a.run(ctx, presetFile, w)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rep, nil
}

func (a *App) run(ctx context.Context, presetFile string, w io.Writer) (*Report, error) {
	log := observe.Logger(ctx)

	// ── Load, then fetch ──────────────────────────────────────────────────────
	saved, err := a.load(ctx, presetFile)
	if err != nil {
		return nil, err
	}
	speakers, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{Speakers: len(speakers)}

	// ── Validate ──────────────────────────────────────────────────────────────
	issues := preset.Validate(saved)
	for _, is := range issues {
		a.metrics.RecordValidationIssue(ctx, string(is.Kind))
	}
	if len(issues) > 0 {
		if a.strict {
			return nil, fmt.Errorf("app: %s: %w", displayPath(presetFile), preset.Check(saved))
		}
		for _, is := range issues {
			log.Warn("saved preset file has a problem",
				"file", displayPath(presetFile),
				"kind", is.Kind,
				"detail", is.Error(),
			)
		}
		rep.Issues = issues
	}

	// ── Transform and merge ───────────────────────────────────────────────────
	start := time.Now()
	fresh := preset.FromSpeakers(speakers)
	res := preset.Merge(saved, fresh, preset.WithKey(a.key))
	if err := preset.CheckIDSpace(saved, len(res.Created)); err != nil {
		return nil, fmt.Errorf("app: %s: %w", displayPath(presetFile), err)
	}
	a.metrics.RecordStage(ctx, "merge", time.Since(start).Seconds())
	a.metrics.RecordPresets(ctx, observe.OutcomeKept, len(res.Kept))
	a.metrics.RecordPresets(ctx, observe.OutcomeCreated, len(res.Created))
	a.metrics.RecordPresets(ctx, observe.OutcomeDropped, len(res.Dropped))
	rep.Merge = res

	rep.Renames = preset.DetectRenames(res, a.matcher)
	a.reportDropped(log, res, rep.Renames)

	// ── Emit ──────────────────────────────────────────────────────────────────
	start = time.Now()
	var buf bytes.Buffer
	if err := preset.Encode(&buf, res.Presets); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("app: write output: %w", err)
	}
	a.metrics.RecordStage(ctx, "emit", time.Since(start).Seconds())

	log.Info("presets merged",
		"speakers", rep.Speakers,
		"presets", len(res.Presets),
		"kept", len(res.Kept),
		"created", len(res.Created),
		"dropped", len(res.Dropped),
		"next_id", res.NextID,
	)
	return rep, nil
}

// load reads the saved collection. An empty path yields an empty collection.
func (a *App) load(ctx context.Context, path string) (preset.Collection, error) {
	if path == "" {
		return nil, nil
	}
	ctx, span := observe.StartSpan(ctx, "preset.load",
		trace.WithAttributes(attribute.String("vvpreset.preset_file", path)),
	)
	defer span.End()

	start := time.Now()
	c, err := preset.LoadFile(path)
	a.metrics.RecordStage(ctx, "load", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("app: %w", err)
	}
	observe.Logger(ctx).Debug("saved presets loaded", "file", path, "count", len(c))
	return c, nil
}

// fetch reads the speaker catalogue.
func (a *App) fetch(ctx context.Context) ([]tts.Speaker, error) {
	ctx, span := observe.StartSpan(ctx, "catalogue.speakers")
	defer span.End()

	start := time.Now()
	speakers, err := a.catalogue.Speakers(ctx)
	a.metrics.RecordStage(ctx, "fetch", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("app: fetch speakers: %w", err)
	}
	a.metrics.SpeakersFetched.Add(ctx, int64(len(speakers)))
	span.SetAttributes(
		attribute.Int("vvpreset.speakers", len(speakers)),
		attribute.Int("vvpreset.styles", tts.StyleCount(speakers)),
	)
	observe.Logger(ctx).Debug("speaker catalogue fetched",
		"speakers", len(speakers),
		"styles", tts.StyleCount(speakers),
	)
	return speakers, nil
}

// reportDropped logs every dropped preset, with its likely replacement when
// one was found.
func (a *App) reportDropped(log *slog.Logger, res preset.Result, renames []preset.Rename) {
	renamed := make(map[int]preset.Rename, len(renames))
	for _, r := range renames {
		for i, d := range res.Dropped {
			if _, done := renamed[i]; !done && d.ID == r.From.ID && d.Name == r.From.Name {
				renamed[i] = r
				break
			}
		}
	}
	for i, d := range res.Dropped {
		if r, ok := renamed[i]; ok {
			log.Warn("possible rename",
				"id", d.ID,
				"from", d.Name,
				"to", r.To.Name,
				"new_id", r.To.ID,
				"reason", r.Reason,
				"score", r.Score,
			)
			continue
		}
		log.Warn("preset dropped", "id", d.ID, "name", d.Name)
	}
}

func displayPath(path string) string {
	if path == "" {
		return "(none)"
	}
	return path
}
