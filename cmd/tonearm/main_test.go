package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tonearm/internal/config"
	"tonearm/internal/daemon"
	"tonearm/internal/queue"
	"tonearm/internal/services"
	"tonearm/internal/testsupport"
)

const queuedArtistProbe = `{"streams":[{"index":0,"codec_name":"mp3","codec_type":"audio","sample_rate":"44100","channels":2}],
"format":{"format_name":"mp3","duration":"200.5","tags":{"artist":"Queued Artist","title":"One"}}}`

type cliEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLI(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithStubbedFFprobe(queuedArtistProbe)}, opts...)...)
	cfg.Logging.Level = "error"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "tonearm.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{cfg: cfg, configPath: configPath}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("tonearm %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireValue(t *testing.T, output, key, want string) {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(line, key+":"); ok {
			if got := strings.TrimSpace(rest); got != want {
				t.Fatalf("%s = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Fatalf("no %q line in %q", key, output)
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLI(t)

	out := env.mustRun(t, "config", "validate")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = env.mustRun(t, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}

	out = env.mustRun(t, "config", "show")
	requireContains(t, out, "[paths]")
	requireContains(t, out, env.cfg.Paths.LibraryDir)
}

func TestScanQueuesUnknownArtist(t *testing.T) {
	env := setupCLI(t)
	testsupport.WriteAudioFixture(t, filepath.Join(env.cfg.Paths.LibraryDir, "album", "01.mp3"))
	testsupport.WriteImageFixture(t, filepath.Join(env.cfg.Paths.LibraryDir, "album", "cover.png"))

	out := env.mustRun(t, "scan")
	requireValue(t, out, "Files seen", "2")
	requireValue(t, out, "Audio files", "1")
	requireValue(t, out, "Inserted", "1")
	requireValue(t, out, "Lookups queued", "1")
	requireContains(t, out, "Grouped 1 directories")

	out = env.mustRun(t, "scan")
	requireValue(t, out, "Inserted", "0")
	requireValue(t, out, "Already cataloged", "1")

	out = env.mustRun(t, "queue", "list")
	requireContains(t, out, "Queued Artist")
	requireContains(t, out, "pending")

	out = env.mustRun(t, "queue", "health")
	requireValue(t, out, "Total", "1")
	requireValue(t, out, "Pending", "1")

	out = env.mustRun(t, "artists")
	requireContains(t, out, "No artists cataloged")
	requireContains(t, out, "1 audio files, 0 artists, 1 directories")
}

func TestResolveOnceDrainsQueue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"artists":[{"id":"a1","name":"Queued Artist","type":"Person","gender":"Female","area":{"type":"Country","name":"Iceland"}}]}`))
	}))
	defer server.Close()

	env := setupCLI(t, testsupport.WithMusicBrainzURL(server.URL))
	testsupport.WriteAudioFixture(t, filepath.Join(env.cfg.Paths.LibraryDir, "a.mp3"))
	testsupport.WriteAudioFixture(t, filepath.Join(env.cfg.Paths.LibraryDir, "b.mp3"))
	out := env.mustRun(t, "scan")
	requireValue(t, out, "Lookups queued", "2")

	if _, err := env.run(t, "resolve"); err == nil {
		t.Fatal("expected resolve without --once to fail")
	}

	out = env.mustRun(t, "resolve", "--once")
	requireValue(t, out, "Processed", "2")
	requireValue(t, out, "Resolved", "1")
	requireValue(t, out, "Matched locally", "1")

	out = env.mustRun(t, "queue", "list")
	requireContains(t, out, "Queue is empty")

	out = env.mustRun(t, "artists")
	requireContains(t, out, "Queued Artist")
	requireContains(t, out, "Iceland")
	requireContains(t, out, "2 audio files, 1 artists, 1 directories")
}

func TestResolveRefusesWhileDaemonHoldsLock(t *testing.T) {
	env := setupCLI(t)
	lock, err := daemon.AcquireLock(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	defer lock.Unlock() //nolint:errcheck

	_, err = env.run(t, "resolve", "--once")
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestQueueRetryAndClearFailed(t *testing.T) {
	env := setupCLI(t)
	testsupport.WriteAudioFixture(t, filepath.Join(env.cfg.Paths.LibraryDir, "a.mp3"))
	env.mustRun(t, "scan")

	db := testsupport.MustOpenDatabase(t, env.cfg)
	jobs := testsupport.MustOpenQueue(t, env.cfg, db)
	ctx := context.Background()
	failJob := func() {
		t.Helper()
		job, err := jobs.Claim(ctx)
		if err != nil || job == nil {
			t.Fatalf("Claim failed: %v", err)
		}
		cause := services.Wrap(services.ErrValidation, "resolver", "lookup", "rejected query", nil)
		if _, err := jobs.Fail(ctx, job.ID, cause, false); err != nil {
			t.Fatalf("Fail failed: %v", err)
		}
	}

	failJob()
	out := env.mustRun(t, "queue", "list", "--failed")
	requireContains(t, out, "failed")
	requireContains(t, out, "rejected query")

	out = env.mustRun(t, "queue", "retry")
	requireContains(t, out, "Retrying 1 failed jobs")
	pending, err := jobs.List(ctx, queue.StatePending)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending job, got %d (%v)", len(pending), err)
	}

	failJob()
	out = env.mustRun(t, "queue", "clear-failed")
	requireContains(t, out, "Cleared 1 failed jobs")
	out = env.mustRun(t, "queue", "list")
	requireContains(t, out, "Queue is empty")
}

func TestParseStates(t *testing.T) {
	states, err := parseStates([]string{"Pending", " failed "})
	if err != nil {
		t.Fatalf("parseStates failed: %v", err)
	}
	if len(states) != 2 || states[0] != queue.StatePending || states[1] != queue.StateFailed {
		t.Fatalf("unexpected states %v", states)
	}
	if _, err := parseStates([]string{"done"}); err == nil {
		t.Fatal("expected unknown state to fail")
	}
	if _, err := parsePositiveIDs([]string{"3", "0"}); err == nil {
		t.Fatal("expected zero id to fail")
	}
}

func TestDoctorOffline(t *testing.T) {
	env := setupCLI(t)
	out := env.mustRun(t, "doctor", "--offline")
	requireContains(t, out, "Library directory")
	requireContains(t, out, "FFprobe")
	if strings.Contains(out, "FAIL") {
		t.Fatalf("unexpected failure in %q", out)
	}
}

func TestLogsPrintsTail(t *testing.T) {
	env := setupCLI(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := "first scan_started\nsecond resolver_idle\nthird scan_completed\n"
	if err := os.WriteFile(env.cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out := env.mustRun(t, "logs", "-n", "2")
	if out != "second resolver_idle\nthird scan_completed\n" {
		t.Fatalf("unexpected tail %q", out)
	}
	out = env.mustRun(t, "logs", "--grep", "scan_")
	if out != "first scan_started\nthird scan_completed\n" {
		t.Fatalf("unexpected filtered tail %q", out)
	}
}
