package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateMusicBrainz(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set (or TONEARM_LIBRARY_DIR)")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateScanner() error {
	if c.Scanner.MaxFiles <= 0 {
		return errors.New("scanner.max_files must be positive")
	}
	return nil
}

func (c *Config) validateMusicBrainz() error {
	parsed, err := url.Parse(c.MusicBrainz.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("musicbrainz.base_url %q is not an absolute URL", c.MusicBrainz.BaseURL)
	}
	if c.MusicBrainz.MinIntervalSeconds <= 0 {
		return errors.New("musicbrainz.min_interval_seconds must be positive")
	}
	if c.MusicBrainz.SearchLimit > 100 {
		return errors.New("musicbrainz.search_limit must be at most 100")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.RetryBaseSeconds <= 0 {
		return errors.New("queue.retry_base_seconds must be positive")
	}
	if c.Queue.RetryMaxSeconds < c.Queue.RetryBaseSeconds {
		return errors.New("queue.retry_max_seconds must be >= queue.retry_base_seconds")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.RescanIntervalMinutes < 0 {
		return errors.New("workflow.rescan_interval_minutes must be >= 0")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.StartupAttempts <= 0 {
		return errors.New("workflow.startup_attempts must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}
