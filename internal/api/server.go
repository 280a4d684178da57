// Package api exposes the CRM over HTTP
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/thenoetrevino/dealflow/internal/assistant"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/services/contact"
	"github.com/thenoetrevino/dealflow/internal/services/opportunity"
	"github.com/thenoetrevino/dealflow/internal/services/task"
	"github.com/thenoetrevino/dealflow/internal/services/webhook"
)

const (
	defaultKeepAlive       = 15 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Services are the business operations the handlers call
type Services struct {
	Contacts      contact.Service
	Opportunities opportunity.Service
	Tasks         task.Service
	Webhooks      webhook.Service
	Assistant     assistant.Service
	Bus           *events.Bus
}

// Config tunes the HTTP layer
type Config struct {
	// JWTSecret enables bearer authentication on /api when set
	JWTSecret string
	// SSEKeepAlive is the interval between comment frames on /api/events
	SSEKeepAlive time.Duration
	Logger       *slog.Logger
}

// Server wraps the echo instance and its dependencies
type Server struct {
	echo      *echo.Echo
	svc       Services
	logger    *slog.Logger
	keepAlive time.Duration
	done      chan struct{}
}

// NewServer builds the router. Nil services leave their routes answering 503.
func NewServer(svc Services, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SSEKeepAlive <= 0 {
		cfg.SSEKeepAlive = defaultKeepAlive
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}

	s := &Server{
		echo:      e,
		svc:       svc,
		logger:    cfg.Logger,
		keepAlive: cfg.SSEKeepAlive,
		done:      make(chan struct{}),
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(cfg.Logger))

	e.GET("/healthz", s.healthz)

	g := e.Group("/api")
	if cfg.JWTSecret != "" {
		g.Use(JWTAuth([]byte(cfg.JWTSecret)))
	}
	s.registerContacts(g)
	s.registerPipeline(g)
	s.registerTasks(g)
	s.registerWebhooks(g)
	g.POST("/chat", s.chat)
	g.GET("/events", s.streamEvents)

	return s
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()
	s.logger.Info("api listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// end open event streams so Shutdown does not wait on them
	close(s.done)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("api stopped")
	return nil
}

func (s *Server) healthz(c echo.Context) error {
	body := map[string]any{"status": "ok"}
	if s.svc.Bus != nil {
		body["events"] = s.svc.Bus.Stats()
	}
	return c.JSON(http.StatusOK, body)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
