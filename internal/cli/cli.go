// Package cli holds the pieces shared by the dealflow subcommands: the
// application context, output formatting and exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/dealflow/internal/app"
	"github.com/thenoetrevino/dealflow/internal/config"
	"github.com/thenoetrevino/dealflow/internal/logging"
)

type contextKey string

const (
	appKey    contextKey = "app"
	configKey contextKey = "config"
)

// WithApp makes GetCLIFromContext use a, instead of opening the database
// from configuration. The caller keeps ownership of a.
func WithApp(ctx context.Context, a *app.App) context.Context {
	return context.WithValue(ctx, appKey, a)
}

// WithConfig makes GetCLIFromContext use cfg instead of loading the config file
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// CLI represents the CLI application context
type CLI struct {
	App    *app.App
	Config *config.Config

	owned bool
	logs  io.Closer
}

// Options tweaks how GetCLIFromContext builds the application
type Options struct {
	// AppOptions are passed to app.Open when the CLI opens its own App
	AppOptions []app.Option
	// LogToFile sends slog output to the data dir log file
	LogToFile bool
}

// ConfigFromContext returns the injected configuration or loads it
func ConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// GetCLIFromContext returns a CLI over the injected App or opens one from
// configuration
func GetCLIFromContext(ctx context.Context, opts ...Options) (*CLI, error) {
	cfg, err := ConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := ctx.Value(appKey).(*app.App); ok && a != nil {
		return &CLI{App: a, Config: cfg}, nil
	}

	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	c := &CLI{Config: cfg, owned: true}
	logger := slog.Default()
	if o.LogToFile {
		closer, err := logging.Init(cfg.DataDir, cfg.SlogLevel())
		if err != nil {
			return nil, err
		}
		c.logs = closer
		logger = slog.Default()
	}

	a, err := app.Open(ctx, cfg, logger, o.AppOptions...)
	if err != nil {
		if c.logs != nil {
			_ = c.logs.Close()
		}
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	c.App = a
	return c, nil
}

// Close releases what GetCLIFromContext opened. An injected App is left open.
func (c *CLI) Close() error {
	var errs []error
	if c.owned && c.App != nil {
		errs = append(errs, c.App.Close())
	}
	if c.logs != nil {
		errs = append(errs, c.logs.Close())
	}
	return errors.Join(errs...)
}

// Handler is the body of a data command
type Handler func(cmd *cobra.Command, args []string, c *CLI, f *OutputFormatter) error

// RunE wraps a Handler with formatter construction and CLI setup and
// teardown
func RunE(h Handler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		formatter := Formatter(cmd)
		cliInstance, err := GetCLIFromContext(cmd.Context())
		if err != nil {
			return formatter.Fail(ExitError, "INITIALIZATION_ERROR", err, "")
		}
		defer func() {
			if err := cliInstance.Close(); err != nil {
				slog.Warn("closing CLI", "error", err)
			}
		}()
		return h(cmd, args, cliInstance, formatter)
	}
}
