package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
}

// Scanner contains configuration for the library walk.
type Scanner struct {
	MaxFiles       int      `toml:"max_files"`
	FollowSymlinks bool     `toml:"follow_symlinks"`
	TagAllowList   []string `toml:"tag_allow_list"`
	FFprobeBinary  string   `toml:"ffprobe_binary"`
}

// MusicBrainz contains configuration for the artist directory client.
type MusicBrainz struct {
	BaseURL               string  `toml:"base_url"`
	UserAgent             string  `toml:"user_agent"`
	Contact               string  `toml:"contact"`
	MinIntervalSeconds    float64 `toml:"min_interval_seconds"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	SearchLimit           int     `toml:"search_limit"`
}

// Queue contains configuration for enrichment job retries.
type Queue struct {
	MaxAttempts       int `toml:"max_attempts"`
	RetryBaseSeconds  int `toml:"retry_base_seconds"`
	RetryMaxSeconds   int `toml:"retry_max_seconds"`
	StaleClaimSeconds int `toml:"stale_claim_seconds"`
}

// Workflow contains configuration for daemon timing.
type Workflow struct {
	RescanIntervalMinutes int `toml:"rescan_interval_minutes"`
	ErrorRetryInterval    int `toml:"error_retry_interval"`
	StartupAttempts       int `toml:"startup_attempts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tonearm.
//
// Configuration sections by subsystem:
//   - Paths: library root, catalog data and log directories
//   - Scanner: per-run file cap, symlink policy and tag allow-list
//   - MusicBrainz: artist lookup endpoint, identification and pacing
//   - Queue: enrichment retry policy
//   - Workflow: daemon rescan and restart timing
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Scanner     Scanner     `toml:"scanner"`
	MusicBrainz MusicBrainz `toml:"musicbrainz"`
	Queue       Queue       `toml:"queue"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or the first of the default and
// project-local locations that exists. A missing file is not an error: the
// defaults are used and exists reports false. The returned config is
// normalized and validated.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	loaded := Default()
	resolved, exists, err = resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}
	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("tonearm.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories. The library root is
// never created: a missing library is reported by the scanner instead.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the catalog database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockPath returns the location of the daemon lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "tonearm.lock")
}

// LogPath returns the location of the daemon and CLI log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "tonearm.log")
}

// FFprobeBinary returns the ffprobe executable name used for probing audio files.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Scanner.FFprobeBinary) == "" {
		return "ffprobe"
	}
	return c.Scanner.FFprobeBinary
}

// MinInterval is the minimum spacing between two MusicBrainz requests.
func (c *Config) MinInterval() time.Duration {
	return time.Duration(c.MusicBrainz.MinIntervalSeconds * float64(time.Second))
}

// RequestTimeout bounds a single MusicBrainz request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.MusicBrainz.RequestTimeoutSeconds) * time.Second
}

// FullUserAgent combines the application identifier with the contact address
// in the form MusicBrainz asks clients to send.
func (c *Config) FullUserAgent() string {
	ua := strings.TrimSpace(c.MusicBrainz.UserAgent)
	contact := strings.TrimSpace(c.MusicBrainz.Contact)
	if contact == "" {
		return ua
	}
	return fmt.Sprintf("%s ( %s )", ua, contact)
}

// RetryBackoff returns the queue retry base and cap.
func (c *Config) RetryBackoff() (time.Duration, time.Duration) {
	return time.Duration(c.Queue.RetryBaseSeconds) * time.Second,
		time.Duration(c.Queue.RetryMaxSeconds) * time.Second
}

// StaleClaimAge is how long a claim may stay open before it is considered abandoned.
func (c *Config) StaleClaimAge() time.Duration {
	return time.Duration(c.Queue.StaleClaimSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// ErrSampleExists is returned by WriteSample when the target exists and
// overwrite is false.
var ErrSampleExists = errors.New("config file already exists")

// WriteSample writes the commented sample configuration to path, creating
// parent directories.
func WriteSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrSampleExists, path)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		_ = file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
