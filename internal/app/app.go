package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/thenoetrevino/dealflow/internal/assistant"
	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/dispatch"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/services/contact"
	"github.com/thenoetrevino/dealflow/internal/services/opportunity"
	"github.com/thenoetrevino/dealflow/internal/services/task"
	"github.com/thenoetrevino/dealflow/internal/services/webhook"
)

// ErrAlreadyStarted is returned by a second call to Start
var ErrAlreadyStarted = errors.New("app already started")

// App holds all application services and provides dependency injection.
// This is the main application container that manages service lifecycles.
type App struct {
	// Repository layer (direct database access)
	repo *database.Repository

	// Event system for live updates
	Bus *events.Bus

	// Service layer (business logic)
	ContactService     contact.Service
	OpportunityService opportunity.Service
	TaskService        task.Service
	WebhookService     webhook.Service
	Assistant          assistant.Service

	logger     *slog.Logger
	relay      *events.RedisRelay
	redis      redis.UniversalClient
	dispatcher *dispatch.Dispatcher

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closers []func() error
}

// New creates a new App with all services initialized.
// This is the single entry point for creating the application container.
func New(db *sql.DB, opts ...Option) *App {
	cfg := &appConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.bus == nil {
		cfg.bus = events.NewBus(events.WithLogger(cfg.logger))
	}

	repo := database.NewRepository(db)
	a := &App{
		repo:               repo,
		Bus:                cfg.bus,
		ContactService:     contact.NewService(repo, cfg.bus),
		OpportunityService: opportunity.NewService(repo, cfg.bus),
		TaskService:        task.NewService(repo, cfg.bus),
		WebhookService:     webhook.NewService(repo),
		logger:             cfg.logger,
	}
	a.Assistant = assistant.NewService(cfg.provider, a.snapshot(), cfg.systemPrompt, cfg.logger)

	if cfg.redis != nil {
		a.redis = cfg.redis
		a.relay = events.NewRedisRelay(cfg.bus, cfg.redis, cfg.redisChannel, cfg.logger)
	}
	if cfg.webhooks != nil {
		wc := *cfg.webhooks
		if wc.Logger == nil {
			wc.Logger = cfg.logger
		}
		a.dispatcher = dispatch.New(repo, wc)
	}
	return a
}

// Repo returns the underlying repository for direct database access.
func (a *App) Repo() *database.Repository {
	return a.repo
}

// Start launches the background workers: webhook delivery and the Redis
// relay, when configured. They stop on Close or when ctx ends.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return ErrAlreadyStarted
	}
	a.started = true

	ctx, a.cancel = context.WithCancel(ctx)

	if a.dispatcher != nil {
		if err := a.dispatcher.Start(ctx, a.Bus); err != nil {
			return fmt.Errorf("starting webhook dispatcher: %w", err)
		}
	}
	if a.relay != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.relay.Run(ctx); err != nil && !errors.Is(err, events.ErrRelayClosed) {
				a.logger.Error("event relay stopped", "error", err)
			}
		}()
	}
	return nil
}

// Relay returns the Redis relay, or nil when events stay in-process
func (a *App) Relay() *events.RedisRelay {
	return a.relay
}

// OnClose registers cleanup to run after the workers stop
func (a *App) OnClose(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Close stops the background workers, closes the bus and runs the
// registered cleanups in reverse order
func (a *App) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if cancel != nil {
		cancel()
	}
	a.wg.Wait()
	a.Bus.Close()

	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
		a.redis = nil
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// crmSnapshot feeds the assistant's context summary
type crmSnapshot struct {
	contacts contact.Service
	pipeline opportunity.Service
}

func (a *App) snapshot() assistant.Snapshot {
	return crmSnapshot{contacts: a.ContactService, pipeline: a.OpportunityService}
}

func (s crmSnapshot) CountContacts(ctx context.Context) (int, error) {
	return s.contacts.CountContacts(ctx)
}

func (s crmSnapshot) ListStages(ctx context.Context) ([]*models.Stage, error) {
	return s.pipeline.ListStages(ctx)
}

func (s crmSnapshot) PipelineTotals(ctx context.Context) (map[int]database.StageTotals, error) {
	return s.pipeline.PipelineTotals(ctx)
}
