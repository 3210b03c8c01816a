package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"tonearm/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TONEARM_LIBRARY_DIR", "")
	t.Setenv("TONEARM_MUSICBRAINZ_CONTACT", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "tonearm")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "Music") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "catalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.MinInterval() != 2*time.Second {
		t.Fatalf("expected 2s minimum interval, got %s", cfg.MinInterval())
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Fatalf("expected 10s request timeout, got %s", cfg.RequestTimeout())
	}
	if len(cfg.Scanner.TagAllowList) != len(config.DefaultTagAllowList) {
		t.Fatalf("unexpected tag allow-list: %v", cfg.Scanner.TagAllowList)
	}
	if !cfg.Scanner.FollowSymlinks {
		t.Fatal("expected symlinks followed by default")
	}
	if cfg.FullUserAgent() != "tonearm/dev" {
		t.Fatalf("unexpected user agent without contact: %q", cfg.FullUserAgent())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.Paths.LibraryDir); !os.IsNotExist(err) {
		t.Fatalf("expected library dir to be left alone, stat err=%v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tonearm.toml")
	t.Setenv("TONEARM_LIBRARY_DIR", "")

	type payload struct {
		Paths struct {
			LibraryDir string `toml:"library_dir"`
		} `toml:"paths"`
		Scanner struct {
			MaxFiles     int      `toml:"max_files"`
			TagAllowList []string `toml:"tag_allow_list"`
		} `toml:"scanner"`
		MusicBrainz struct {
			BaseURL            string  `toml:"base_url"`
			Contact            string  `toml:"contact"`
			MinIntervalSeconds float64 `toml:"min_interval_seconds"`
		} `toml:"musicbrainz"`
	}
	custom := payload{}
	custom.Paths.LibraryDir = filepath.Join(tempDir, "music")
	custom.Scanner.MaxFiles = 10
	custom.Scanner.TagAllowList = []string{" Artist ", "album", "ARTIST", ""}
	custom.MusicBrainz.BaseURL = "http://localhost:5000/ws/2/"
	custom.MusicBrainz.Contact = "https://example.com/tonearm"
	custom.MusicBrainz.MinIntervalSeconds = 0.5
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.LibraryDir != custom.Paths.LibraryDir {
		t.Fatalf("expected library dir from file, got %q", cfg.Paths.LibraryDir)
	}
	if cfg.Scanner.MaxFiles != 10 {
		t.Fatalf("expected max files 10, got %d", cfg.Scanner.MaxFiles)
	}
	if got := strings.Join(cfg.Scanner.TagAllowList, ","); got != "artist,album" {
		t.Fatalf("unexpected normalized allow-list: %q", got)
	}
	if cfg.MusicBrainz.BaseURL != "http://localhost:5000/ws/2" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.MusicBrainz.BaseURL)
	}
	if cfg.MinInterval() != 500*time.Millisecond {
		t.Fatalf("expected 500ms interval, got %s", cfg.MinInterval())
	}
	if cfg.FullUserAgent() != "tonearm/dev ( https://example.com/tonearm )" {
		t.Fatalf("unexpected user agent: %q", cfg.FullUserAgent())
	}
}

func TestEnvFallbacks(t *testing.T) {
	libDir := t.TempDir()
	t.Setenv("TONEARM_LIBRARY_DIR", libDir)
	t.Setenv("TONEARM_MUSICBRAINZ_CONTACT", "me@example.com")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.LibraryDir != libDir {
		t.Errorf("expected library dir from env, got %q", cfg.Paths.LibraryDir)
	}
	if cfg.MusicBrainz.Contact != "me@example.com" {
		t.Errorf("expected contact from env, got %q", cfg.MusicBrainz.Contact)
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.WriteSample(path, false); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path, false); !errors.Is(err, config.ErrSampleExists) {
		t.Fatalf("expected ErrSampleExists on second write, got %v", err)
	}
	if err := config.WriteSample(path, true); err != nil {
		t.Fatalf("WriteSample with overwrite failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[musicbrainz]") {
		t.Fatalf("sample config missing musicbrainz section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	defaults := config.Default()
	if cfg.MusicBrainz.MinIntervalSeconds != defaults.MusicBrainz.MinIntervalSeconds {
		t.Fatalf("sample interval %v drifted from default %v", cfg.MusicBrainz.MinIntervalSeconds, defaults.MusicBrainz.MinIntervalSeconds)
	}
	if len(cfg.Scanner.TagAllowList) != len(config.DefaultTagAllowList) {
		t.Fatalf("sample allow-list drifted from default: %v", cfg.Scanner.TagAllowList)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"max files", func(c *config.Config) { c.Scanner.MaxFiles = 0 }},
		{"interval", func(c *config.Config) { c.MusicBrainz.MinIntervalSeconds = 0 }},
		{"base url", func(c *config.Config) { c.MusicBrainz.BaseURL = "musicbrainz.org" }},
		{"search limit", func(c *config.Config) { c.MusicBrainz.SearchLimit = 500 }},
		{"retry window", func(c *config.Config) { c.Queue.RetryMaxSeconds = 1 }},
		{"startup attempts", func(c *config.Config) { c.Workflow.StartupAttempts = 0 }},
		{"log level", func(c *config.Config) { c.Logging.Level = "verbose" }},
		{"library", func(c *config.Config) { c.Paths.LibraryDir = " " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
