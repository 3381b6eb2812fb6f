package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"clipnotes/internal/api"
	"clipnotes/internal/config"
	"clipnotes/internal/convcache"
	"clipnotes/internal/logging"
	"clipnotes/internal/session"
	"clipnotes/internal/settings"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	clientOnce sync.Once
	client     *api.Client
	logger     *slog.Logger
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
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureClient() (*api.Client, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	c.clientOnce.Do(func() {
		logger, logErr := logging.NewFromConfig(cfg)
		if logErr != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
		c.client = api.NewClient(api.Config{
			BaseURL:       cfg.Backend.BaseURL,
			APIToken:      cfg.Backend.APIToken,
			Timeout:       time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
			UploadTimeout: time.Duration(cfg.Backend.UploadTimeoutSeconds) * time.Second,
		}, api.WithLogger(logger))
	})
	return c.client, c.logger, nil
}

func (c *commandContext) orchestrator() (*session.Orchestrator, error) {
	client, logger, err := c.ensureClient()
	if err != nil {
		return nil, err
	}
	return session.New(client, session.WithLogger(logger)), nil
}

func (c *commandContext) settingsManager() (*settings.Manager, error) {
	client, logger, err := c.ensureClient()
	if err != nil {
		return nil, err
	}
	return settings.NewManager(client, settings.WithLogger(logger)), nil
}

// openCache opens the conversation cache; a nil cache with nil error means
// caching is unavailable and callers should proceed without it.
func (c *commandContext) openCache() (*convcache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	_, logger, err := c.ensureClient()
	if err != nil {
		return nil, err
	}
	cache, err := convcache.Open(cfg, logger)
	if err != nil {
		logger.Warn("conversation cache unavailable", logging.Error(err))
		return nil, nil
	}
	return cache, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
