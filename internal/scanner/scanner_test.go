package scanner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"tonearm/internal/catalog"
	"tonearm/internal/extractor"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/scanner"
	"tonearm/internal/testsupport"
)

type fakeExtractor struct {
	mu      sync.Mutex
	artists map[string][]string
	fail    map[string]bool
	calls   []string
}

func (f *fakeExtractor) Probe(_ context.Context, path string) (extractor.Probe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	name := filepath.Base(path)
	if f.fail[name] {
		return extractor.Probe{}, errors.New("invalid data found when processing input")
	}
	probe := extractor.Probe{Codec: "flac", Duration: 200, Channels: 2, BitDepth: 16, SampleRate: 44100}
	for _, artist := range f.artists[name] {
		probe.Tags = append(probe.Tags, catalog.Tag{Name: extractor.TagArtist, Value: artist})
	}
	probe.Tags = append(probe.Tags, catalog.Tag{Name: extractor.TagTitle, Value: name})
	return probe, nil
}

type harness struct {
	root    string
	catalog *catalog.Store
	queue   *queue.Store
	ex      *fakeExtractor
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	db := testsupport.MustOpenDatabase(t, cfg)
	return &harness{
		root:    cfg.Paths.LibraryDir,
		catalog: testsupport.MustOpenCatalog(t, db),
		queue:   testsupport.MustOpenQueue(t, cfg, db),
		ex:      &fakeExtractor{artists: map[string][]string{}, fail: map[string]bool{}},
	}
}

func (h *harness) scanner(maxFiles int) *scanner.Scanner {
	return scanner.New(h.catalog, h.queue, h.ex, scanner.Options{MaxFiles: maxFiles, FollowSymlinks: true}, logging.NewNop())
}

func TestScanIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.WriteAudioFixture(t, filepath.Join(h.root, "dummy", "01.flac"))
	testsupport.WriteAudioFixture(t, filepath.Join(h.root, "dummy", "02.flac"))
	h.ex.artists["01.flac"] = []string{"Radiohead"}
	h.ex.artists["02.flac"] = []string{"Radiohead"}

	first, err := h.scanner(0).Scan(ctx, h.root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if first.Inserted != 2 || first.Enqueued != 2 || first.RunID == "" {
		t.Fatalf("unexpected first summary %+v", first)
	}

	second, err := h.scanner(0).Scan(ctx, h.root)
	if err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}
	if second.Inserted != 0 || second.Existing != 2 || second.Probed != 0 {
		t.Fatalf("unexpected second summary %+v", second)
	}
	if len(h.ex.calls) != 2 {
		t.Fatalf("expected files probed once, got %d probes", len(h.ex.calls))
	}

	stats, err := h.catalog.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Audio != 2 || stats.Tags != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	jobs, err := h.queue.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	uri := scanner.FileURI(filepath.Join(h.root, "dummy", "01.flac"))
	audio, err := h.catalog.FindAudioByURI(ctx, uri)
	if err != nil || audio == nil {
		t.Fatalf("expected audio for %s: %v", uri, err)
	}
	if audio.Path != filepath.Join(h.root, "dummy") || audio.Name != "01.flac" || audio.Extension != "flac" || audio.Hertz != 44100 {
		t.Fatalf("unexpected audio record %+v", audio)
	}
}

func TestScanLinksKnownArtistWithoutEnqueue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, _, err := h.catalog.SaveResolvedArtist(ctx, 0, catalog.Artist{Name: "Radiohead"}, nil); err != nil {
		t.Fatalf("SaveResolvedArtist failed: %v", err)
	}
	testsupport.WriteAudioFixture(t, filepath.Join(h.root, "a", "01.flac"))
	h.ex.artists["01.flac"] = []string{"radiohead", "Thom Yorke"}

	summary, err := h.scanner(0).Scan(ctx, h.root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if summary.Linked != 1 || summary.Enqueued != 1 {
		t.Fatalf("expected one link and one job, got %+v", summary)
	}
	jobs, _ := h.queue.List(ctx)
	if len(jobs) != 1 || jobs[0].Payload.AudioArtist.Artist != "Thom Yorke" {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
}

func TestScanSkipsFailedProbesAndNonAudio(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.WriteAudioFixture(t, filepath.Join(h.root, "a", "broken.flac"))
	testsupport.WriteAudioFixture(t, filepath.Join(h.root, "a", "good.flac"))
	testsupport.WriteAudioFixture(t, filepath.Join(h.root, "a", ".hidden.flac"))
	testsupport.WriteAudioFixture(t, filepath.Join(h.root, ".cache", "cached.flac"))
	testsupport.WriteImageFixture(t, filepath.Join(h.root, "a", "cover.png"))
	testsupport.WriteFile(t, filepath.Join(h.root, "a", "notes.txt"), 32)
	h.ex.fail["broken.flac"] = true

	summary, err := h.scanner(0).Scan(ctx, h.root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if summary.Inserted != 1 || summary.Failed != 1 || summary.Images != 1 || summary.Unknown != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, call := range h.ex.calls {
		if filepath.Base(call) == ".hidden.flac" || filepath.Base(call) == "cached.flac" {
			t.Fatalf("hidden entry probed: %s", call)
		}
	}
}

func TestScanHonoursMaxFiles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, name := range []string{"01.flac", "02.flac", "03.flac"} {
		testsupport.WriteAudioFixture(t, filepath.Join(h.root, "album", name))
	}

	first, err := h.scanner(2).Scan(ctx, h.root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if first.Inserted != 2 || !first.Truncated {
		t.Fatalf("expected truncated scan with 2 inserts, got %+v", first)
	}
	second, err := h.scanner(2).Scan(ctx, h.root)
	if err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}
	if second.Inserted != 1 || second.Existing != 2 || second.Truncated {
		t.Fatalf("expected remaining file cataloged, got %+v", second)
	}
}

func TestScanMaxFilesSkipsPastFailedProbes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, name := range []string{"01.flac", "02.flac", "03.flac"} {
		testsupport.WriteAudioFixture(t, filepath.Join(h.root, "album", name))
	}
	h.ex.fail["01.flac"] = true
	h.ex.fail["02.flac"] = true

	for run := 1; run <= 2; run++ {
		summary, err := h.scanner(2).Scan(ctx, h.root)
		if err != nil {
			t.Fatalf("run %d: Scan failed: %v", run, err)
		}
		if summary.Failed != 2 || summary.Truncated {
			t.Fatalf("run %d: unexpected summary %+v", run, summary)
		}
	}
	audio, err := h.catalog.FindAudioByURI(ctx, scanner.FileURI(filepath.Join(h.root, "album", "03.flac")))
	if err != nil {
		t.Fatalf("FindAudioByURI failed: %v", err)
	}
	if audio == nil {
		t.Fatal("expected 03.flac cataloged despite earlier probe failures")
	}
}

func TestScanFollowsSymlinksWithoutLooping(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	external := filepath.Join(t.TempDir(), "external")
	testsupport.WriteAudioFixture(t, filepath.Join(external, "ext.flac"))
	testsupport.WriteAudioFixture(t, filepath.Join(h.root, "a", "01.flac"))
	if err := os.Symlink(external, filepath.Join(h.root, "linked")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(h.root, filepath.Join(h.root, "a", "loop")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	summary, err := h.scanner(0).Scan(ctx, h.root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if summary.Inserted != 2 {
		t.Fatalf("expected 2 inserts, got %+v", summary)
	}
	audio, err := h.catalog.FindAudioByURI(ctx, scanner.FileURI(filepath.Join(h.root, "linked", "ext.flac")))
	if err != nil || audio == nil {
		t.Fatalf("expected symlinked file cataloged under link path: %v", err)
	}
}

func TestScanStopsOnCancelledContext(t *testing.T) {
	h := newHarness(t)
	testsupport.WriteAudioFixture(t, filepath.Join(h.root, "a", "01.flac"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.scanner(0).Scan(ctx, h.root); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestScanRejectsMissingRoot(t *testing.T) {
	h := newHarness(t)
	if _, err := h.scanner(0).Scan(context.Background(), filepath.Join(h.root, "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}
