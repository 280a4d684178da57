package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// DefaultRelayChannel is the Redis channel used when none is configured
const DefaultRelayChannel = "dealflow:events"

// ErrRelayClosed is returned by Run when the local bus shuts down first
var ErrRelayClosed = errors.New("event relay: bus closed")

// RedisRelay mirrors bus events across processes through a Redis channel.
// Local events are published with this relay's origin id; remote events
// are re-published on the local bus with their origin preserved so they
// are never sent back out.
type RedisRelay struct {
	bus        *Bus
	rdb        redis.UniversalClient
	channel    string
	origin     string
	maxRetries int
	logger     *slog.Logger
	ready      chan struct{}
}

// NewRedisRelay creates a relay; call Run to start it
func NewRedisRelay(bus *Bus, rdb redis.UniversalClient, channel string, logger *slog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRelay{
		bus:        bus,
		rdb:        rdb,
		channel:    channel,
		origin:     uuid.NewString(),
		maxRetries: 3,
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Origin returns the id stamped on events leaving this process
func (r *RedisRelay) Origin() string {
	return r.origin
}

// Ready is closed once the Redis subscription is confirmed
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run relays events until ctx is cancelled or the bus is closed
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			r.logger.Debug("closing redis subscription", "error", err)
		}
	}()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	local := r.bus.Subscribe()
	defer local.Close()
	close(r.ready)

	r.logger.Info("event relay started", "channel", r.channel, "origin", r.origin)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.outbound(gctx, local) })
	g.Go(func() error { return r.inbound(gctx, pubsub.Channel()) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *RedisRelay) outbound(ctx context.Context, local *Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-local.Events():
			if !ok {
				return ErrRelayClosed
			}
			if event.Origin != "" {
				// Already came from Redis
				continue
			}
			event.Origin = r.origin
			payload, err := sonic.Marshal(event)
			if err != nil {
				r.logger.Error("marshal event for relay", "event_type", event.Type, "error", err)
				continue
			}
			if err := r.publishWithRetry(ctx, payload); err != nil {
				r.logger.Warn("event relay publish failed",
					"event_type", event.Type,
					"seq", event.SequenceID,
					"error", err)
				continue
			}
			r.bus.metrics.Relayed.Add(1)
		}
	}
}

func (r *RedisRelay) inbound(ctx context.Context, ch <-chan *redis.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis channel %s closed", r.channel)
			}
			var event Event
			if err := sonic.UnmarshalString(msg.Payload, &event); err != nil {
				r.logger.Error("unable to parse relayed event", "error", err)
				continue
			}
			if event.Origin == r.origin || event.Origin == "" {
				continue
			}
			r.bus.Publish(event)
		}
	}
}

// publishWithRetry makes up to maxRetries attempts with exponential backoff
func (r *RedisRelay) publishWithRetry(ctx context.Context, payload []byte) error {
	baseDelay := 50 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		lastErr = r.rdb.Publish(ctx, r.channel, payload).Err()
		if lastErr == nil {
			return nil
		}
		if attempt < r.maxRetries-1 {
			delay := baseDelay * (1 << attempt)
			r.logger.Debug("relay publish failed, retrying",
				"attempt", attempt+1,
				"retry_delay", delay,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}
