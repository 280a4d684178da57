// Package dispatch delivers bus events to the registered webhooks
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/models"
)

const (
	HeaderEvent     = "X-Dealflow-Event"
	HeaderDelivery  = "X-Dealflow-Delivery"
	HeaderSignature = "X-Dealflow-Signature"

	defaultTimeout   = 10 * time.Second
	defaultRetryMax  = 3
	defaultWorkers   = 4
	defaultQueueSize = 128
)

var (
	ErrAlreadyStarted = errors.New("dispatcher already started")
	ErrClosed         = errors.New("dispatcher closed")
)

// Store is the persistence the dispatcher needs
type Store interface {
	ListActiveWebhooksForEvent(ctx context.Context, eventType string) ([]*models.Webhook, error)
	RecordDelivery(ctx context.Context, d *models.WebhookDelivery) error
}

// Config tunes delivery. Zero values fall back to defaults.
type Config struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Workers      int
	QueueSize    int
	Logger       *slog.Logger
}

// Payload is the JSON body POSTed to a webhook
type Payload struct {
	ID         string           `json:"id"`
	Type       events.EventType `json:"type"`
	OccurredAt time.Time        `json:"occurredAt"`
	Data       any              `json:"data,omitempty"`
}

type job struct {
	hook  *models.Webhook
	event events.Event
}

// Dispatcher fans bus events out to webhooks over a bounded worker pool
type Dispatcher struct {
	store   Store
	client  *retryablehttp.Client
	logger  *slog.Logger
	workers int
	jobs    chan job

	mu      sync.Mutex
	started bool
	closed  bool
	sub     *events.Subscription
	cancel  context.CancelFunc
	router  sync.WaitGroup
	pool    sync.WaitGroup
}

// New creates a dispatcher. Call Start to begin consuming events.
func New(store Store, cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	} else if cfg.RetryMax == 0 {
		cfg.RetryMax = defaultRetryMax
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	client.Logger = cfg.Logger
	// keep the last response so its status code lands in the delivery log
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Dispatcher{
		store:   store,
		client:  client,
		logger:  cfg.Logger,
		workers: cfg.Workers,
		jobs:    make(chan job, cfg.QueueSize),
	}
}

// Start subscribes to every event on bus and launches the worker pool
func (d *Dispatcher) Start(ctx context.Context, bus *events.Bus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.started {
		return ErrAlreadyStarted
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	d.sub = bus.Subscribe()

	for range d.workers {
		d.pool.Add(1)
		go func() {
			defer d.pool.Done()
			for j := range d.jobs {
				d.Deliver(ctx, j.hook, j.event)
			}
		}()
	}

	d.router.Add(1)
	go func() {
		defer d.router.Done()
		defer close(d.jobs)
		d.route(ctx, d.sub.Events())
	}()

	d.logger.Info("webhook dispatcher started", "workers", d.workers)
	return nil
}

func (d *Dispatcher) route(ctx context.Context, in <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-in:
			if !ok {
				return
			}
			// relayed events were already delivered by the instance that produced them
			if event.Origin != "" {
				continue
			}
			hooks, err := d.store.ListActiveWebhooksForEvent(ctx, string(event.Type))
			if err != nil {
				d.logger.Error("failed to load webhooks", "event_type", event.Type, "error", err)
				continue
			}
			for _, hook := range hooks {
				select {
				case d.jobs <- job{hook: hook, event: event}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Close stops consuming events, lets queued deliveries finish and waits for
// the workers. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	d.mu.Unlock()

	if !started {
		return
	}
	d.sub.Close()
	d.router.Wait()
	d.pool.Wait()
	d.cancel()
}

// Deliver POSTs one event to one webhook and records the attempt
func (d *Dispatcher) Deliver(ctx context.Context, hook *models.Webhook, event events.Event) *models.WebhookDelivery {
	delivery := &models.WebhookDelivery{
		ID:        uuid.NewString(),
		WebhookID: hook.ID,
		EventType: string(event.Type),
	}

	start := time.Now()
	status, err := d.post(ctx, hook, delivery.ID, event)
	delivery.DurationMs = time.Since(start).Milliseconds()
	delivery.StatusCode = status
	if err != nil {
		delivery.Error = err.Error()
	}

	logger := d.logger.With("webhook_id", hook.ID, "event_type", event.Type, "delivery_id", delivery.ID)
	if delivery.Succeeded() {
		logger.Debug("webhook delivered", "status", status, "duration_ms", delivery.DurationMs)
	} else {
		logger.Warn("webhook delivery failed", "status", status, "error", delivery.Error)
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.store.RecordDelivery(recordCtx, delivery); err != nil {
		logger.Error("failed to record delivery", "error", err)
	}
	return delivery
}

func (d *Dispatcher) post(ctx context.Context, hook *models.Webhook, deliveryID string, event events.Event) (int, error) {
	body, err := sonic.Marshal(Payload{
		ID:         event.ID,
		Type:       event.Type,
		OccurredAt: event.Timestamp,
		Data:       event.Data,
	})
	if err != nil {
		return 0, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, hook.URL, body)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "dealflow-webhooks/1")
	req.Header.Set(HeaderEvent, string(event.Type))
	req.Header.Set(HeaderDelivery, deliveryID)
	req.Header.Set(HeaderSignature, Sign(hook.Secret, body))

	resp, err := d.client.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return resp.StatusCode, err
		}
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("receiver answered %s", resp.Status)
	}
	return resp.StatusCode, nil
}
