package board

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/dealflow/internal/boards"
	"github.com/thenoetrevino/dealflow/internal/cli"
	"github.com/thenoetrevino/dealflow/internal/client"
	"github.com/thenoetrevino/dealflow/internal/config"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/kanban"
	"github.com/thenoetrevino/dealflow/internal/logging"
	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/tui"
)

// Cmd returns the board command group
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open a kanban board",
		Long: `Open the opportunity pipeline or the task board in the terminal.

By default the board reads the local database. With --server (or
server.url in the config file) it talks to a running 'dealflow serve' and
follows its event stream.`,
	}
	cmd.PersistentFlags().String("server", "", "Base URL of a dealflow server")
	cmd.PersistentFlags().String("token", "", "Bearer token for the server")
	cmd.PersistentFlags().StringP("query", "q", "", "Initial search filter")
	cmd.PersistentFlags().Bool("print", false, "Print the first page of every column and exit")
	cmd.AddCommand(OpportunitiesCmd(), TasksCmd())
	return cmd
}

// OpportunitiesCmd returns the pipeline board subcommand
func OpportunitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "opportunities",
		Aliases: []string{"pipeline", "opps"},
		Short:   "Board of opportunities by pipeline stage",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(s session) error {
				stages, err := s.pipeline.ListStages(s.ctx)
				if err != nil {
					return fmt.Errorf("loading stages: %w", err)
				}
				return show(s, boardDef[*models.OpportunitySummary]{
					title:     "Pipeline",
					source:    boards.NewOpportunitySource(s.pipeline),
					columns:   boards.OpportunityColumns(stages),
					renderer:  boards.OpportunityRenderer{},
					refreshOn: events.OpportunityTypes(),
				})
			})
		},
	}
}

// TasksCmd returns the task board subcommand
func TasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "Board of tasks by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(s session) error {
				return show(s, boardDef[*models.Task]{
					title:     "Tasks",
					source:    boards.NewTaskSource(s.tasks),
					columns:   boards.TaskColumns(),
					renderer:  boards.TaskRenderer{},
					refreshOn: events.TaskTypes(),
				})
			})
		},
	}
}

// pipelineBackend is satisfied by the opportunity service and the API client
type pipelineBackend interface {
	boards.OpportunityBackend
	ListStages(ctx context.Context) ([]*models.Stage, error)
}

// session is what a board needs regardless of where its data lives
type session struct {
	ctx      context.Context
	cfg      *config.Config
	pipeline pipelineBackend
	tasks    boards.TaskBackend
	bus      *events.Bus
	query    string
	print    bool
	out      io.Writer
	// follow starts forwarding remote events for the given types
	follow func(types []events.EventType)
}

func withBackend(cmd *cobra.Command, fn func(session) error) error {
	ctx := cmd.Context()
	cfg, err := cli.ConfigFromContext(ctx)
	if err != nil {
		return err
	}

	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = cfg.Server.URL
	}
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = cfg.Server.Token
	}

	s := session{ctx: ctx, cfg: cfg, out: cmd.OutOrStdout()}
	s.query, _ = cmd.Flags().GetString("query")
	s.print, _ = cmd.Flags().GetBool("print")

	// The TUI owns the terminal, so logs go to the data dir
	if !s.print {
		closer, err := logging.Init(cfg.DataDir, cfg.SlogLevel())
		if err != nil {
			return err
		}
		defer closer.Close()
	}

	if server != "" {
		return withRemote(s, server, token, fn)
	}

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Warn("closing CLI", "error", err)
		}
	}()

	a := cliInstance.App
	if a.Relay() != nil && !s.print {
		// Other instances publish through Redis; this board should see them
		if err := a.Start(ctx); err != nil {
			return err
		}
	}
	s.pipeline = a.OpportunityService
	s.tasks = a.TaskService
	s.bus = a.Bus
	s.follow = func([]events.EventType) {}
	return fn(s)
}

func withRemote(s session, server, token string, fn func(session) error) error {
	c, err := client.New(server, client.WithToken(token), client.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	if err := c.Health(s.ctx); err != nil {
		return fmt.Errorf("server %s is not reachable: %w", server, err)
	}

	bus := events.NewBus(events.WithLogger(slog.Default()))
	streamCtx, stop := context.WithCancel(s.ctx)
	var wg sync.WaitGroup
	defer func() {
		stop()
		wg.Wait()
		bus.Close()
	}()

	s.pipeline = c
	s.tasks = c
	s.bus = bus
	s.follow = func(types []events.EventType) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.StreamEvents(streamCtx, bus, types...); err != nil {
				slog.Warn("event stream stopped", "error", err)
			}
		}()
	}
	return fn(s)
}

type boardDef[T any] struct {
	title     string
	source    kanban.Source[T]
	columns   []kanban.Column
	renderer  kanban.Renderer[T]
	refreshOn []events.EventType
}

func show[T any](s session, def boardDef[T]) error {
	cfg := s.cfg
	kcfg := kanban.Config{
		Columns:         def.columns,
		PageSize:        cfg.Board.PageSize,
		EmptyText:       cfg.Board.EmptyText,
		Query:           s.query,
		RefreshDebounce: cfg.Board.RefreshDebounce,
		Logger:          slog.Default(),
	}
	if !s.print {
		kcfg.Bus = s.bus
		kcfg.RefreshOn = def.refreshOn
	}

	board, err := kanban.New(def.source, kcfg)
	if err != nil {
		return err
	}
	if err := board.Start(s.ctx); err != nil {
		return err
	}
	defer board.Close()

	if s.print {
		_, err := fmt.Fprintln(s.out, board.View(def.renderer, kanban.View{
			Palette: tui.PaletteFrom(cfg.ColorScheme),
		}))
		return err
	}

	s.follow(def.refreshOn)
	return tui.Run(s.ctx, board, tui.Options[T]{
		Title:    def.title,
		Renderer: def.renderer,
		Keys:     cfg.KeyMappings,
		Colors:   cfg.ColorScheme,
	})
}
