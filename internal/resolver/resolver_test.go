package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"tonearm/internal/catalog"
	"tonearm/internal/database"
	"tonearm/internal/logging"
	"tonearm/internal/musicbrainz"
	"tonearm/internal/queue"
	"tonearm/internal/ratelimit"
	"tonearm/internal/resolver"
	"tonearm/internal/services"
	"tonearm/internal/testsupport"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]musicbrainz.Candidate
	errs    map[string]error
	calls   []time.Time
	names   []string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{results: map[string][]musicbrainz.Candidate{}, errs: map[string]error{}}
}

func (f *fakeSearcher) SearchArtists(_ context.Context, name string) ([]musicbrainz.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	f.names = append(f.names, name)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.results[name], nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type harness struct {
	db       *database.DB
	catalog  *catalog.Store
	queue    *queue.Store
	searcher *fakeSearcher
	resolver *resolver.Resolver
	interval time.Duration
}

func newHarness(t *testing.T, interval time.Duration) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMinInterval(interval.Seconds()))
	cfg.Queue.MaxAttempts = 3
	db := testsupport.MustOpenDatabase(t, cfg)
	h := &harness{
		db:       db,
		catalog:  testsupport.MustOpenCatalog(t, db),
		queue:    testsupport.MustOpenQueue(t, cfg, db),
		searcher: newFakeSearcher(),
		interval: interval,
	}
	limiter := ratelimit.New(cfg.MinInterval())
	h.resolver = resolver.New(h.catalog, h.queue, h.searcher, limiter, resolver.OptionsFromConfig(cfg), logging.NewNop())
	return h
}

// addAudio catalogs one file and enqueues a job for artist.
func (h *harness) addAudio(t *testing.T, name, artist string) int64 {
	t.Helper()
	ctx := context.Background()
	result, err := h.catalog.InsertAudio(ctx, catalog.Audio{URI: "file:///lib/" + name, Path: "/lib", Name: name}, nil, nil, nil)
	if err != nil {
		t.Fatalf("InsertAudio failed: %v", err)
	}
	if _, err := h.queue.Enqueue(ctx, queue.NewAudioArtistPayload(result.Audio.ID, artist)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return result.Audio.ID
}

func TestLocalArtistNeedsNoExternalCall(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)
	ctx := context.Background()
	existing, _, err := h.catalog.SaveResolvedArtist(ctx, 0, catalog.Artist{Name: "Radiohead"}, nil)
	if err != nil {
		t.Fatalf("SaveResolvedArtist failed: %v", err)
	}
	audioID := h.addAudio(t, "01.flac", "Radiohead")

	stats, err := h.resolver.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if stats.Local != 1 || stats.Processed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if calls := h.searcher.callCount(); calls != 0 {
		t.Fatalf("expected zero external calls, got %d", calls)
	}
	linked, _ := h.catalog.ArtistsForAudio(ctx, audioID)
	if len(linked) != 1 || linked[0].ID != existing.ID {
		t.Fatalf("expected link to existing artist, got %+v", linked)
	}
	if jobs, _ := h.queue.List(ctx); len(jobs) != 0 {
		t.Fatalf("expected queue empty, got %d jobs", len(jobs))
	}
}

func TestResolveStoresFirstCandidate(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)
	ctx := context.Background()
	h.searcher.results["New Artist"] = []musicbrainz.Candidate{
		{ID: "mbid-1", Name: "New Artist", SortName: "Artist, New", Type: "Person", Gender: "Female",
			Area: &musicbrainz.Area{Type: "Country", Name: "Iceland", SortName: "Iceland"}},
		{ID: "mbid-2", Name: "New Artist (2)", Type: "Group"},
	}
	audioID := h.addAudio(t, "01.flac", "New Artist")

	stats, err := h.resolver.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if stats.Resolved != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	artist, err := h.catalog.FindArtistByName(ctx, "New Artist")
	if err != nil || artist == nil {
		t.Fatalf("expected artist stored: %v", err)
	}
	if artist.MusicBrainzID != "mbid-1" || artist.Type != catalog.ArtistTypePerson || artist.Gender != catalog.GenderFemale {
		t.Fatalf("unexpected artist %+v", artist)
	}
	area, _ := h.catalog.FindArea(ctx, "Iceland")
	if area == nil || area.ID != artist.AreaID {
		t.Fatalf("expected Iceland area linked, got %+v", area)
	}
	linked, _ := h.catalog.ArtistsForAudio(ctx, audioID)
	if len(linked) != 1 {
		t.Fatalf("expected one audio artist link, got %d", len(linked))
	}
	if jobs, _ := h.queue.List(ctx); len(jobs) != 0 {
		t.Fatalf("expected job removed, got %d", len(jobs))
	}
}

func TestNoCandidateStoresBareArtist(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)
	ctx := context.Background()
	h.addAudio(t, "01.flac", "Obscure Demo Band")
	h.addAudio(t, "02.flac", "obscure demo band")

	stats, err := h.resolver.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if stats.Bare != 1 || stats.Local != 1 {
		t.Fatalf("expected one bare and one local resolution, got %+v", stats)
	}
	if calls := h.searcher.callCount(); calls != 1 {
		t.Fatalf("expected a single external call, got %d", calls)
	}
	artist, _ := h.catalog.FindArtistByName(ctx, "Obscure Demo Band")
	if artist == nil || artist.MusicBrainzID != "" {
		t.Fatalf("expected bare artist, got %+v", artist)
	}
}

func TestExternalCallsAreSpaced(t *testing.T) {
	const interval = 40 * time.Millisecond
	h := newHarness(t, interval)
	for i := 0; i < 10; i++ {
		h.addAudio(t, fmt.Sprintf("%02d.flac", i), fmt.Sprintf("Artist %d", i))
	}

	stats, err := h.resolver.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if stats.Processed != 10 {
		t.Fatalf("expected 10 processed, got %+v", stats)
	}
	h.searcher.mu.Lock()
	defer h.searcher.mu.Unlock()
	if len(h.searcher.calls) != 10 {
		t.Fatalf("expected 10 calls, got %d", len(h.searcher.calls))
	}
	// The slot is recorded just before the call, so allow a little scheduling slack.
	for i := 1; i < len(h.searcher.calls); i++ {
		gap := h.searcher.calls[i].Sub(h.searcher.calls[i-1])
		if gap < interval-5*time.Millisecond {
			t.Fatalf("calls %d and %d only %v apart", i-1, i, gap)
		}
	}
	if h.searcher.names[0] != "Artist 0" || h.searcher.names[9] != "Artist 9" {
		t.Fatalf("jobs not processed in enqueue order: %v", h.searcher.names)
	}
}

func TestFailuresAreRecorded(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	ctx := context.Background()
	h.searcher.errs["Flaky"] = services.Wrap(services.ErrTransient, "musicbrainz", "search", "status 503", nil)
	h.searcher.errs["Broken"] = services.Wrap(services.ErrValidation, "musicbrainz", "search", "status 400", nil)
	h.addAudio(t, "01.flac", "Flaky")
	h.addAudio(t, "02.flac", "Broken")

	stats, err := h.resolver.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if stats.Retrying != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	retrying, _ := h.queue.List(ctx, queue.StateRetrying)
	if len(retrying) != 1 || retrying[0].Attempts != 1 || retrying[0].Error == "" {
		t.Fatalf("expected one retrying job with error text, got %+v", retrying)
	}
	failed, _ := h.queue.List(ctx, queue.StateFailed)
	if len(failed) != 1 || failed[0].Payload.AudioArtist.Artist != "Broken" {
		t.Fatalf("expected Broken to fail permanently, got %+v", failed)
	}
}

func TestPayloadWithoutBodyFailsWithoutLookup(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	ctx := context.Background()
	if _, err := h.db.ExecWithRetry(ctx,
		"INSERT INTO enrichment_jobs (created_at, payload) VALUES (?, ?)",
		database.FormatTime(time.Now().Add(-time.Minute)), `{"v":1,"kind":"audio_artist"}`); err != nil {
		t.Fatalf("insert raw job: %v", err)
	}

	stats, err := h.resolver.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if stats.Failed != 1 || stats.Processed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if calls := h.searcher.callCount(); calls != 0 {
		t.Fatalf("expected no external calls, got %d", calls)
	}
	failed, _ := h.queue.List(ctx, queue.StateFailed)
	if len(failed) != 1 || failed[0].Attempts != 1 || !strings.Contains(failed[0].Error, "audio_artist body missing") {
		t.Fatalf("expected one permanently failed job, got %+v", failed)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	h.searcher.results["Later"] = []musicbrainz.Candidate{{ID: "x", Name: "Later"}}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.resolver.Run(ctx) }()

	h.addAudio(t, "01.flac", "Later")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.resolver.Stats().Resolved == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if h.resolver.Stats().Resolved != 1 {
		t.Fatal("resolver loop did not pick up the job")
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("resolver did not stop")
	}
}
