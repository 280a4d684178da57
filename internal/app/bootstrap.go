package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/thenoetrevino/dealflow/internal/assistant"
	"github.com/thenoetrevino/dealflow/internal/config"
	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/dispatch"
	"github.com/thenoetrevino/dealflow/internal/events"
)

// Open builds an App from configuration: the SQLite database under
// cfg.DataDir, the Gemini assistant when an API key is set and the Redis
// relay when a Redis URL is set. extra options are applied last.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := database.InitDB(ctx, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	opts := []Option{
		WithLogger(logger),
		WithBus(events.NewBus(events.WithLogger(logger))),
	}

	if cfg.Assistant.APIKey != "" {
		provider, err := assistant.NewGeminiProvider(ctx, cfg.Assistant.APIKey, cfg.Assistant.Model)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		opts = append(opts, WithAssistant(provider, cfg.Assistant.SystemPrompt))
	}

	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = append(opts, WithRedisRelay(redis.NewClient(redisOpts), cfg.Redis.Channel))
	}

	a := New(db, append(opts, extra...)...)
	a.OnClose(db.Close)
	return a, nil
}

// DispatchConfig maps the webhooks section onto the dispatcher's settings
func DispatchConfig(cfg *config.Config, logger *slog.Logger) dispatch.Config {
	return dispatch.Config{
		Timeout:  cfg.Webhooks.Timeout,
		RetryMax: cfg.Webhooks.RetryMax,
		Workers:  cfg.Webhooks.Workers,
		Logger:   logger,
	}
}
