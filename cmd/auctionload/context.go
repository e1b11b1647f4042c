package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"auctionload/internal/config"
	"auctionload/internal/ledger"
	"auctionload/internal/logging"
	"auctionload/internal/source"
	"auctionload/internal/warehouse"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
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

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

// logger builds the file-backed logger for commands that touch remote
// systems. Stale logs are rotated and pruned first.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	now := time.Now()
	if err := logging.RotateIfStale(cfg.Paths.LogDir, now); err != nil {
		return nil, fmt.Errorf("rotate log: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg, c.logLevel())
	if err != nil {
		return nil, err
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "auctionload-*.log", cfg.Logging.RetentionDays, now)
	return logger, nil
}

func (c *commandContext) openLedger(cfg *config.Config) (*ledger.Store, error) {
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

// backends opens the configured folder and warehouse. The returned closer
// releases whatever was opened.
func (c *commandContext) backends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (source.Folder, warehouse.Warehouse, func(), error) {
	folder, err := source.Open(ctx, cfg.Source, logger)
	if err != nil {
		return nil, nil, func() {}, fmt.Errorf("open source: %w", err)
	}
	wh, err := warehouse.Open(ctx, cfg.Warehouse, logger)
	if err != nil {
		closeQuietly(folder)
		return nil, nil, func() {}, fmt.Errorf("open warehouse: %w", err)
	}
	closer := func() {
		closeQuietly(folder)
		_ = wh.Close()
	}
	return folder, wh, closer, nil
}

func closeQuietly(value any) {
	if c, ok := value.(io.Closer); ok {
		_ = c.Close()
	}
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
