package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/thenoetrevino/dealflow/internal/assistant"
	"github.com/thenoetrevino/dealflow/internal/dispatch"
	"github.com/thenoetrevino/dealflow/internal/events"
)

// Option is a functional option for configuring App initialization
type Option func(*appConfig)

// appConfig holds the configuration for App initialization
type appConfig struct {
	bus          *events.Bus
	logger       *slog.Logger
	provider     assistant.Provider
	systemPrompt string
	redis        redis.UniversalClient
	redisChannel string
	webhooks     *dispatch.Config
}

// WithBus uses an existing event bus instead of creating one
func WithBus(bus *events.Bus) Option {
	return func(cfg *appConfig) {
		cfg.bus = bus
	}
}

// WithLogger sets the logger for the application
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *appConfig) {
		cfg.logger = logger
	}
}

// WithAssistant enables the chat assistant backed by provider
func WithAssistant(provider assistant.Provider, systemPrompt string) Option {
	return func(cfg *appConfig) {
		cfg.provider = provider
		cfg.systemPrompt = systemPrompt
	}
}

// WithRedisRelay fans events out to other instances through Redis pub/sub
func WithRedisRelay(client redis.UniversalClient, channel string) Option {
	return func(cfg *appConfig) {
		cfg.redis = client
		cfg.redisChannel = channel
	}
}

// WithWebhookDelivery enables outbound webhooks while the app is started
func WithWebhookDelivery(c dispatch.Config) Option {
	return func(cfg *appConfig) {
		cfg.webhooks = &c
	}
}
