package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/vvpreset/internal/app"
	"github.com/MrWong99/vvpreset/internal/observe"
	"github.com/MrWong99/vvpreset/internal/preset"
	"github.com/MrWong99/vvpreset/pkg/provider/tts"
	"github.com/MrWong99/vvpreset/pkg/provider/tts/mock"
	"github.com/MrWong99/vvpreset/pkg/provider/tts/voicevox"
)

var aliceOnly = []tts.Speaker{
	{Name: "Alice", UUID: "u1", Styles: []tts.Style{{Name: "Normal", ID: 0}}},
}

const aliceNormalYAML = `- id: 0
  name: Alice Normal
  speaker_uuid: u1
  style_id: 0
  speedScale: 1.2
  pitchScale: 0
  intonationScale: 1
  volumeScale: 1
  prePhonemeLength: 0.1
  postPhonemeLength: 0.1
  pauseLength: null
  pauseLengthScale: 1
`

// newTestMetrics returns Metrics backed by a ManualReader.
func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// newApp builds an App over a mock catalogue returning speakers.
func newApp(t *testing.T, speakers []tts.Speaker, opts ...app.Option) (*app.App, *mock.Catalogue) {
	t.Helper()
	cat := &mock.Catalogue{SpeakersResult: speakers}
	m, _ := newTestMetrics(t)
	a, err := app.New(cat, append([]app.Option{app.WithMetrics(m)}, opts...)...)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return a, cat
}

// writeFile writes content to a fresh file in a temp dir and returns its path.
func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// runOK runs a and fails the test on error.
func runOK(t *testing.T, a *app.App, path string) (string, *app.Report) {
	t.Helper()
	var out bytes.Buffer
	rep, err := a.Run(context.Background(), path, &out)
	if err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	return out.String(), rep
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := app.New(nil); err == nil {
		t.Error("New(nil): expected error, got nil")
	}
	if _, err := app.New(&mock.Catalogue{}, app.WithMergeKey("uuid")); err == nil {
		t.Error("New with invalid merge key: expected error, got nil")
	}
	if _, err := app.New(&mock.Catalogue{}); err != nil {
		t.Errorf("New: unexpected error: %v", err)
	}
}

func TestRun_ScenarioA_EmptyFile(t *testing.T) {
	t.Parallel()

	a, cat := newApp(t, aliceOnly)
	got, rep := runOK(t, a, writeFile(t, ""))
	if got != aliceNormalYAML {
		t.Errorf("output mismatch (-want +got):\n%s", cmp.Diff(aliceNormalYAML, got))
	}
	if rep.Speakers != 1 || len(rep.Merge.Created) != 1 {
		t.Errorf("report = %+v, want 1 speaker and 1 created preset", rep)
	}
	if cat.CallCount() != 1 {
		t.Errorf("catalogue called %d times, want 1", cat.CallCount())
	}
}

func TestRun_NoPresetFile(t *testing.T) {
	t.Parallel()

	a, _ := newApp(t, aliceOnly)
	if got, _ := runOK(t, a, ""); got != aliceNormalYAML {
		t.Errorf("output mismatch (-want +got):\n%s", cmp.Diff(aliceNormalYAML, got))
	}
}

func TestRun_ScenarioB_ExistingValuesWin(t *testing.T) {
	t.Parallel()

	const saved = `- id: 5
  name: Alice Normal
  speaker_uuid: u1
  style_id: 0
  speedScale: 2.0
  pitchScale: 0
  intonationScale: 1
  volumeScale: 1
  prePhonemeLength: 0.1
  postPhonemeLength: 0.1
  pauseLength: null
  pauseLengthScale: 1
`
	a, _ := newApp(t, aliceOnly)
	got, rep := runOK(t, a, writeFile(t, saved))
	if got != saved {
		t.Errorf("output mismatch (-want +got):\n%s", cmp.Diff(saved, got))
	}
	if len(rep.Merge.Kept) != 1 || rep.Merge.Presets[0].SpeedScale != 2.0 {
		t.Errorf("kept = %d, speedScale = %v; want 1 kept with speedScale 2.0", len(rep.Merge.Kept), rep.Merge.Presets[0].SpeedScale)
	}
}

func TestRun_ScenarioC_DroppedStillCountsForIDs(t *testing.T) {
	t.Parallel()

	a, _ := newApp(t, aliceOnly)
	got, rep := runOK(t, a, writeFile(t, "- id: 3\n  name: Bob X\n"))

	want := strings.Replace(aliceNormalYAML, "- id: 0\n", "- id: 4\n", 1)
	if got != want {
		t.Errorf("output mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
	if strings.Contains(got, "Bob X") {
		t.Error("dropped preset Bob X appears in output")
	}
	if len(rep.Merge.Dropped) != 1 || rep.Merge.Dropped[0].Name != "Bob X" {
		t.Errorf("dropped = %v, want [Bob X]", rep.Merge.Dropped.Names())
	}
}

func TestRun_ScenarioD_UpstreamUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := voicevox.New(base)
	if err != nil {
		t.Fatalf("voicevox.New: %v", err)
	}
	m, _ := newTestMetrics(t)
	a, err := app.New(client, app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	var out bytes.Buffer
	_, err = a.Run(context.Background(), writeFile(t, "- id: 1\n  name: Alice Normal\n"), &out)
	if !errors.Is(err, voicevox.ErrUpstreamUnavailable) {
		t.Fatalf("Run error = %v, want ErrUpstreamUnavailable", err)
	}
	if out.Len() != 0 {
		t.Errorf("output written on failure: %q", out.String())
	}
}

func TestRun_EndToEndWithEngine(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speakers" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"name":"Alice","speaker_uuid":"u1","styles":[{"name":"Normal","id":0}]}]`)
	}))
	t.Cleanup(srv.Close)

	m, _ := newTestMetrics(t)
	client, err := voicevox.New(srv.URL, voicevox.WithHTTPClient(observe.NewTransport(nil, m).Client()))
	if err != nil {
		t.Fatalf("voicevox.New: %v", err)
	}
	a, err := app.New(client, app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	if got, _ := runOK(t, a, ""); got != aliceNormalYAML {
		t.Errorf("output mismatch (-want +got):\n%s", cmp.Diff(aliceNormalYAML, got))
	}
}

func TestRun_UpstreamStatusError(t *testing.T) {
	t.Parallel()

	cat := &mock.Catalogue{SpeakersErr: &voicevox.StatusError{Endpoint: "/speakers", StatusCode: 503}}
	m, _ := newTestMetrics(t)
	a, err := app.New(cat, app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	var out bytes.Buffer
	if _, err := a.Run(context.Background(), "", &out); !errors.Is(err, voicevox.ErrUpstreamError) {
		t.Fatalf("Run error = %v, want ErrUpstreamError", err)
	}
	if out.Len() != 0 {
		t.Errorf("output written on failure: %q", out.String())
	}
}

func TestRun_MalformedFile(t *testing.T) {
	t.Parallel()

	a, _ := newApp(t, aliceOnly)
	var out bytes.Buffer
	_, err := a.Run(context.Background(), writeFile(t, "id: 1\nname: A\n"), &out)
	if !errors.Is(err, preset.ErrMalformedPresetFile) {
		t.Fatalf("Run error = %v, want ErrMalformedPresetFile", err)
	}
	if out.Len() != 0 {
		t.Errorf("output written on failure: %q", out.String())
	}
}

func TestRun_MissingFile(t *testing.T) {
	t.Parallel()

	a, _ := newApp(t, aliceOnly)
	var out bytes.Buffer
	_, err := a.Run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), &out)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Run error = %v, want os.ErrNotExist", err)
	}
	if out.Len() != 0 {
		t.Errorf("output written on failure: %q", out.String())
	}
}

// blockingCatalogue waits for its context to be cancelled.
type blockingCatalogue struct{}

func (blockingCatalogue) Speakers(ctx context.Context) ([]tts.Speaker, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRun_LoadFailureSkipsFetch(t *testing.T) {
	t.Parallel()

	a, cat := newApp(t, nil)
	cat.SpeakersErr = voicevox.ErrUpstreamUnavailable

	var out bytes.Buffer
	_, err := a.Run(context.Background(), writeFile(t, "hello\n"), &out)
	if !errors.Is(err, preset.ErrMalformedPresetFile) {
		t.Fatalf("Run error = %v, want ErrMalformedPresetFile", err)
	}
	if errors.Is(err, voicevox.ErrUpstreamUnavailable) {
		t.Errorf("Run error = %v, should not carry the upstream error", err)
	}
	if n := cat.CallCount(); n != 0 {
		t.Errorf("catalogue called %d times, want 0", n)
	}
	if out.Len() != 0 {
		t.Errorf("output written on failure: %q", out.String())
	}
}

func TestRun_IDSpaceExhausted(t *testing.T) {
	t.Parallel()

	a, _ := newApp(t, aliceOnly)
	var out bytes.Buffer
	_, err := a.Run(context.Background(), writeFile(t, "- id: 9223372036854775807\n  name: Bob X\n"), &out)
	if !errors.Is(err, preset.ErrIDSpaceExhausted) {
		t.Fatalf("Run error = %v, want ErrIDSpaceExhausted", err)
	}
	if out.Len() != 0 {
		t.Errorf("output written on failure: %q", out.String())
	}
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	m, _ := newTestMetrics(t)
	a, err := app.New(blockingCatalogue{}, app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if _, err := a.Run(ctx, "", &out); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("output written on failure: %q", out.String())
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	speakers := []tts.Speaker{
		{Name: "四国めたん", UUID: "7ffcb7ce-00ec-4bdc-82cd-45a8889e43ff", Styles: []tts.Style{
			{Name: "ノーマル", ID: 2},
			{Name: "あまあま", ID: 0},
		}},
		{Name: "ずんだもん", UUID: "388f246b-8c41-4ac1-8e2d-5d79f3ff56d9", Styles: []tts.Style{
			{Name: "ノーマル", ID: 3},
		}},
	}
	a, cat := newApp(t, speakers)

	first, _ := runOK(t, a, writeFile(t, "- id: 9\n  name: 四国めたん あまあま\n  speedScale: 1.0\n"))
	cat.Reset()
	second, rep := runOK(t, a, writeFile(t, first))
	if n := cat.CallCount(); n != 1 {
		t.Errorf("second run called the catalogue %d times, want 1", n)
	}
	if first != second {
		t.Errorf("second run changed the document (-first +second):\n%s", cmp.Diff(first, second))
	}
	if len(rep.Merge.Created) != 0 {
		t.Errorf("second run created %d presets, want 0", len(rep.Merge.Created))
	}
}

func TestRun_Validation(t *testing.T) {
	t.Parallel()

	const dup = "- id: 1\n  name: Alice Normal\n- id: 1\n  name: Other\n"

	t.Run("lenient", func(t *testing.T) {
		t.Parallel()
		a, _ := newApp(t, aliceOnly)
		got, rep := runOK(t, a, writeFile(t, dup))
		if len(rep.Issues) != 1 || rep.Issues[0].Kind != preset.IssueDuplicateID {
			t.Errorf("issues = %v, want one duplicate_id", rep.Issues)
		}
		if want := "- id: 1\n  name: Alice Normal\n"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("strict", func(t *testing.T) {
		t.Parallel()
		a, _ := newApp(t, aliceOnly, app.WithStrict(true))
		var out bytes.Buffer
		_, err := a.Run(context.Background(), writeFile(t, dup), &out)
		if !errors.Is(err, preset.ErrInvalidPresetFile) {
			t.Fatalf("Run error = %v, want ErrInvalidPresetFile", err)
		}
		if out.Len() != 0 {
			t.Errorf("output written on failure: %q", out.String())
		}
	})
}

func TestRun_StyleKeyKeepsRenamedPreset(t *testing.T) {
	t.Parallel()

	const saved = `- id: 7
  name: Alicia Normal
  speaker_uuid: u1
  style_id: 0
  speedScale: 1.5
`
	renamed, _ := newApp(t, aliceOnly)
	_, rep := runOK(t, renamed, writeFile(t, saved))
	if len(rep.Renames) != 1 || rep.Renames[0].Reason != preset.RenameSameStyle {
		t.Errorf("renames = %+v, want one same_style hint", rep.Renames)
	}

	styled, _ := newApp(t, aliceOnly, app.WithMergeKey(preset.KeyStyle))
	got, rep := runOK(t, styled, writeFile(t, saved))
	if got != saved {
		t.Errorf("output mismatch (-want +got):\n%s", cmp.Diff(saved, got))
	}
	if len(rep.Merge.Kept) != 1 || len(rep.Renames) != 0 {
		t.Errorf("kept = %d, renames = %d; want 1 and 0", len(rep.Merge.Kept), len(rep.Renames))
	}
}

// failingWriter rejects every write.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRun_WriteError(t *testing.T) {
	t.Parallel()

	a, _ := newApp(t, aliceOnly)
	if _, err := a.Run(context.Background(), "", failingWriter{}); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Run error = %v, want write failure", err)
	}
}

func TestRun_RecordsMetrics(t *testing.T) {
	t.Parallel()

	cat := &mock.Catalogue{SpeakersResult: aliceOnly}
	m, reader := newTestMetrics(t)
	a, err := app.New(cat, app.WithMetrics(m))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	if _, err := a.Run(context.Background(), writeFile(t, "- id: 3\n  name: Bob X\n"), io.Discard); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				key := met.Name
				if v, ok := dp.Attributes.Value("outcome"); ok {
					key += "/" + v.AsString()
				}
				got[key] += dp.Value
			}
		}
	}
	want := map[string]int64{
		"vvpreset.speakers.fetched": 1,
		"vvpreset.presets/created":  1,
		"vvpreset.presets/dropped":  1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("counters mismatch (-want +got):\n%s", diff)
	}
}
