package serve

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/dealflow/internal/api"
	"github.com/thenoetrevino/dealflow/internal/app"
	"github.com/thenoetrevino/dealflow/internal/cli"
	"github.com/thenoetrevino/dealflow/internal/logging"
)

// ErrNoSecret is returned by token when no JWT secret is configured
var ErrNoSecret = errors.New("server.jwt_secret is not set")

// Cmd returns the serve command
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, event stream and webhook delivery",
		Long: `Run the HTTP API on server.addr.

The server exposes the contact, pipeline, task, webhook and chat endpoints
under /api, a server-sent event stream on /api/events, and delivers
webhooks for every change. With redis.url set, events from other dealflow
processes sharing the Redis channel are streamed and delivered too.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cli.ConfigFromContext(ctx)
	if err != nil {
		return err
	}
	logger := logging.Setup(cmd.ErrOrStderr(), cfg.SlogLevel())

	cliInstance, err := cli.GetCLIFromContext(ctx, cli.Options{
		AppOptions: []app.Option{app.WithWebhookDelivery(app.DispatchConfig(cfg, logger))},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	a := cliInstance.App
	if err := a.Start(ctx); err != nil && !errors.Is(err, app.ErrAlreadyStarted) {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if cfg.Server.JWTSecret == "" {
		logger.Warn("server.jwt_secret is empty, the API accepts unauthenticated requests")
	}

	srv := api.NewServer(api.Services{
		Contacts:      a.ContactService,
		Opportunities: a.OpportunityService,
		Tasks:         a.TaskService,
		Webhooks:      a.WebhookService,
		Assistant:     a.Assistant,
		Bus:           a.Bus,
	}, api.Config{
		JWTSecret:    cfg.Server.JWTSecret,
		SSEKeepAlive: cfg.Server.SSEKeepAlive,
		Logger:       logger,
	})
	return srv.Run(ctx, addr)
}

// TokenCmd returns the token command
func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Long: `Issue an HS256 bearer token signed with server.jwt_secret.

Example:
  export DEALFLOW_TOKEN=$(dealflow token --subject board --ttl 720h)
`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}
	cmd.Flags().String("subject", "dealflow", "Token subject")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.ConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	f := &cli.OutputFormatter{Out: cmd.OutOrStdout(), ErrOut: cmd.ErrOrStderr()}
	if cfg.Server.JWTSecret == "" {
		return f.Fail(cli.ExitUsage, "NO_SECRET", ErrNoSecret, "Set server.jwt_secret or DEALFLOW_JWT_SECRET")
	}

	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		return f.Fail(cli.ExitUsage, "INVALID_TTL", fmt.Errorf("ttl must be positive"), "")
	}

	token, err := api.IssueToken(cfg.Server.JWTSecret, subject, ttl)
	if err != nil {
		return f.Fail(cli.ExitError, "TOKEN_ERROR", err, "")
	}
	slog.Debug("issued token", "subject", subject, "ttl", ttl)
	_, err = io.WriteString(cmd.OutOrStdout(), token+"\n")
	return err
}
