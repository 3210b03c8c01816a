package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScanner()
	c.normalizeMusicBrainz()
	c.normalizeQueue()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("TONEARM_LIBRARY_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.LibraryDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScanner() {
	c.Scanner.FFprobeBinary = strings.TrimSpace(c.Scanner.FFprobeBinary)
	if c.Scanner.FFprobeBinary == "" {
		c.Scanner.FFprobeBinary = defaultFFprobeBinary
	}
	if len(c.Scanner.TagAllowList) == 0 {
		c.Scanner.TagAllowList = append([]string(nil), DefaultTagAllowList...)
		return
	}
	names := make([]string, 0, len(c.Scanner.TagAllowList))
	seen := make(map[string]struct{}, len(c.Scanner.TagAllowList))
	for _, name := range c.Scanner.TagAllowList {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		names = append(names, normalized)
	}
	c.Scanner.TagAllowList = names
}

func (c *Config) normalizeMusicBrainz() {
	c.MusicBrainz.BaseURL = strings.TrimRight(strings.TrimSpace(c.MusicBrainz.BaseURL), "/")
	if c.MusicBrainz.BaseURL == "" {
		c.MusicBrainz.BaseURL = defaultMusicBrainzBaseURL
	}
	c.MusicBrainz.UserAgent = strings.TrimSpace(c.MusicBrainz.UserAgent)
	if c.MusicBrainz.UserAgent == "" {
		c.MusicBrainz.UserAgent = defaultMusicBrainzUserAgent
	}
	c.MusicBrainz.Contact = strings.TrimSpace(c.MusicBrainz.Contact)
	if c.MusicBrainz.Contact == "" {
		if value, ok := os.LookupEnv("TONEARM_MUSICBRAINZ_CONTACT"); ok {
			c.MusicBrainz.Contact = strings.TrimSpace(value)
		}
	}
	if c.MusicBrainz.RequestTimeoutSeconds <= 0 {
		c.MusicBrainz.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if c.MusicBrainz.SearchLimit <= 0 {
		c.MusicBrainz.SearchLimit = defaultSearchLimit
	}
}

func (c *Config) normalizeQueue() {
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = defaultMaxAttempts
	}
	if c.Queue.StaleClaimSeconds <= 0 {
		c.Queue.StaleClaimSeconds = defaultStaleClaimSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
