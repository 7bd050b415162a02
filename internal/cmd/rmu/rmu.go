// Package rmu parses read model updater flags and runs the journal poller.
package rmu

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/louisbranch/groupchat/internal/platform/cmd"
	"github.com/louisbranch/groupchat/internal/platform/logging"
	"github.com/louisbranch/groupchat/internal/services/groupchat/app"
	"go.uber.org/zap"
)

// Config holds read model updater configuration.
type Config struct {
	app.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.BindFlags(fs)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run polls the journal and projects new events until ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRMU, func(ctx context.Context) error {
		logger, err := logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		rt, err := app.Open(cfg.Config, logger)
		if err != nil {
			return fmt.Errorf("open runtime: %w", err)
		}
		defer func() {
			if err := rt.Close(); err != nil {
				logger.Warn("close runtime", zap.Error(err))
			}
		}()

		logger.Info("read model updater started",
			zap.String("backend", cfg.Backend),
			zap.String("consumer", cfg.Consumer),
			zap.Duration("poll_interval", cfg.PollInterval),
		)
		err = rt.Poller.Run(ctx)
		logger.Info("read model updater stopped")
		return err
	})
}
