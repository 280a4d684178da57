package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/dealflow/internal/assistant"
	"github.com/thenoetrevino/dealflow/internal/cli"
	"github.com/thenoetrevino/dealflow/internal/client"
	"github.com/thenoetrevino/dealflow/internal/models"
)

const wrapWidth = 80

// Chatter answers a conversation; the assistant service and the API
// client both qualify
type Chatter interface {
	Chat(ctx context.Context, messages []models.ChatMessage) (*models.ChatMessage, error)
}

// Cmd returns the chat command
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the CRM assistant",
		Long: `Ask the CRM assistant about your pipeline.

With a message argument the assistant answers once. Without one, an
interactive session starts; type "exit" to leave. The assistant sees the
current contact count and open deals per stage.

Requires assistant.api_key (or GEMINI_API_KEY), or --server pointing at a
dealflow server that has one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}
	cmd.Flags().String("server", "", "Base URL of a dealflow server")
	cmd.Flags().String("token", "", "Bearer token for the server")
	cmd.Flags().Bool("plain", false, "Print replies without markdown rendering")
	cli.AddOutputFlags(cmd)
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f := cli.Formatter(cmd)
	plain, _ := cmd.Flags().GetBool("plain")

	cfg, err := cli.ConfigFromContext(ctx)
	if err != nil {
		return f.Fail(cli.ExitError, "CONFIG_ERROR", err, "")
	}
	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = cfg.Server.URL
	}
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = cfg.Server.Token
	}

	var chatter Chatter
	if server != "" {
		c, err := client.New(server, client.WithToken(token), client.WithLogger(slog.Default()))
		if err != nil {
			return f.Fail(cli.ExitUsage, "INVALID_SERVER", err, "")
		}
		chatter = c
	} else {
		cliInstance, err := cli.GetCLIFromContext(ctx)
		if err != nil {
			return f.Fail(cli.ExitError, "INITIALIZATION_ERROR", err, "")
		}
		defer func() {
			if err := cliInstance.Close(); err != nil {
				slog.Warn("closing CLI", "error", err)
			}
		}()
		if !cliInstance.App.Assistant.Configured() {
			return f.Fail(cli.ExitUsage, "ASSISTANT_NOT_CONFIGURED", assistant.ErrNotConfigured,
				"Set GEMINI_API_KEY or assistant.api_key in the config file")
		}
		chatter = cliInstance.App.Assistant
	}

	s := &session{chatter: chatter, f: f, plain: plain}
	if len(args) == 1 {
		return s.ask(ctx, args[0])
	}
	return s.repl(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

type session struct {
	chatter Chatter
	f       *cli.OutputFormatter
	plain   bool
	history []models.ChatMessage
}

func (s *session) ask(ctx context.Context, text string) error {
	if len(s.history) >= assistant.MaxMessages-1 {
		s.history = s.history[len(s.history)-(assistant.MaxMessages-2):]
	}
	s.history = append(s.history, models.ChatMessage{Role: models.ChatRoleUser, Content: text})

	reply, err := s.chatter.Chat(ctx, s.history)
	if err != nil {
		// Drop the unanswered question so the next turn starts clean
		s.history = s.history[:len(s.history)-1]
		return s.f.Fail(0, "CHAT_ERROR", err, "")
	}
	s.history = append(s.history, *reply)

	if s.f.Quiet && !s.f.JSON {
		_, err := fmt.Fprintln(s.f.Out, reply.Content)
		return err
	}
	return s.f.Print(reply, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, s.render(reply.Content))
		return err
	})
}

func (s *session) repl(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		if !s.f.JSON {
			fmt.Fprint(out, "› ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := s.ask(ctx, line); err != nil {
			var cmdErr *cli.CommandError
			if errors.As(err, &cmdErr) && !errors.Is(err, context.Canceled) {
				// Reported already; keep the session alive
				continue
			}
			return err
		}
	}
}

func (s *session) render(markdown string) string {
	if s.plain {
		return markdown
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrapWidth))
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSpace(out)
}
