// Package rebuild parses flags for and runs a full read model rebuild.
package rebuild

import (
	"context"
	"flag"
	"fmt"
	"io"

	entrypoint "github.com/louisbranch/groupchat/internal/platform/cmd"
	"github.com/louisbranch/groupchat/internal/platform/logging"
	"github.com/louisbranch/groupchat/internal/services/groupchat/app"
	"go.uber.org/zap"
)

// Config holds rebuild configuration.
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

// Run clears the read model and replays the whole journal into it.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRebuild, func(ctx context.Context) error {
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

		n, err := rt.Poller.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuild read model: %w", err)
		}
		fmt.Fprintf(out, "rebuilt read model from %d journal records\n", n)
		return nil
	})
}
