package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vimeodl/internal/config"
	"vimeodl/internal/download"
	"vimeodl/internal/history"
	"vimeodl/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
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
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
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

// newLogger builds the process logger. Console output goes to stderr so
// stdout stays free for command output and native messaging frames.
func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, "stderr")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// openHistory opens the history store when enabled and closes out records
// left running by an earlier process. A nil store means history is off.
func (c *commandContext) openHistory(cmd *cobra.Command, logger *slog.Logger) (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if n, err := store.MarkInterrupted(cmd.Context()); err != nil {
		logger.Warn("could not close out interrupted jobs",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_reconcile_failed"),
			logging.String(logging.FieldErrorHint, "check the history database in state_dir"),
			logging.String(logging.FieldImpact, "stale running entries remain in history"),
		)
	} else if n > 0 {
		logger.Info("marked interrupted jobs as failed", logging.Int64("count", n))
	}
	return store, nil
}

// newOrchestrator builds the download pipeline. The returned cleanup closes
// the history store.
func (c *commandContext) newOrchestrator(cmd *cobra.Command, logger *slog.Logger) (*download.Orchestrator, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := c.openHistory(cmd, logger)
	if err != nil {
		return nil, nil, err
	}
	var opts []download.Option
	cleanup := func() {}
	if store != nil {
		opts = append(opts, download.WithRecorder(store))
		cleanup = func() { _ = store.Close() }
	}
	orch, err := download.FromConfig(cfg, logger, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return orch, cleanup, nil
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
