package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tonearm/internal/catalog"
	"tonearm/internal/config"
	"tonearm/internal/database"
	"tonearm/internal/extractor"
	"tonearm/internal/grouper"
	"tonearm/internal/logging"
	"tonearm/internal/musicbrainz"
	"tonearm/internal/queue"
	"tonearm/internal/ratelimit"
	"tonearm/internal/resolver"
	"tonearm/internal/scanner"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// stores bundles the opened catalog database with its logger.
type stores struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *database.DB
	catalog *catalog.Store
	queue   *queue.Store
}

func (s *stores) scanner() *scanner.Scanner {
	ex := extractor.NewFFprobe(s.cfg.FFprobeBinary(), s.cfg.Scanner.TagAllowList, s.logger)
	return scanner.New(s.catalog, s.queue, ex, scanner.OptionsFromConfig(s.cfg), s.logger)
}

func (s *stores) grouper() *grouper.Grouper {
	return grouper.New(s.catalog, s.logger)
}

func (s *stores) resolver() *resolver.Resolver {
	client := musicbrainz.NewFromConfig(s.cfg)
	limiter := ratelimit.New(s.cfg.MinInterval())
	return resolver.New(s.catalog, s.queue, client, limiter, resolver.OptionsFromConfig(s.cfg), s.logger)
}

// withStores opens the catalog database for the duration of fn.
func (c *commandContext) withStores(cmd *cobra.Command, fn func(context.Context, *stores) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.OpenWithRetry(ctx, cfg.DatabasePath(), cfg.Workflow.StartupAttempts, logger)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer db.Close()

	return fn(ctx, &stores{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		catalog: catalog.New(db),
		queue:   queue.New(db, queue.OptionsFromConfig(cfg)),
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
