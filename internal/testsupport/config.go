package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tonearm/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The library directory exists and is empty; the MusicBrainz interval is
// shortened so resolver tests run quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.MusicBrainz.BaseURL = "http://127.0.0.1:0/ws/2"
	cfgVal.MusicBrainz.MinIntervalSeconds = 0.02
	cfgVal.MusicBrainz.RequestTimeoutSeconds = 2
	cfgVal.Queue.RetryBaseSeconds = 1
	cfgVal.Queue.RetryMaxSeconds = 4
	cfgVal.Workflow.ErrorRetryInterval = 1
	cfgVal.Workflow.StartupAttempts = 1

	if err := os.MkdirAll(cfgVal.Paths.LibraryDir, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMinInterval overrides the MusicBrainz request spacing in seconds.
func WithMinInterval(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.MusicBrainz.MinIntervalSeconds = seconds
	}
}

// WithMaxFiles caps the number of new files cataloged per scan.
func WithMaxFiles(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scanner.MaxFiles = n
	}
}

// WithMusicBrainzURL points the client at a test server.
func WithMusicBrainzURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.MusicBrainz.BaseURL = url
	}
}

// WithStubbedFFprobe installs a shell script that prints output regardless of
// its arguments and points scanner.ffprobe_binary at it.
func WithStubbedFFprobe(output string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		outPath := filepath.Join(binDir, "ffprobe.json")
		if err := os.WriteFile(outPath, []byte(output), 0o644); err != nil {
			b.t.Fatalf("write stub output: %v", err)
		}
		script := []byte("#!/bin/sh\ncat '" + outPath + "'\n")
		target := filepath.Join(binDir, "ffprobe")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write stub ffprobe: %v", err)
		}
		b.cfg.Scanner.FFprobeBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
