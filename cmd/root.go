package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/dealflow/internal/cli/board"
	"github.com/thenoetrevino/dealflow/internal/cli/chat"
	"github.com/thenoetrevino/dealflow/internal/cli/contact"
	"github.com/thenoetrevino/dealflow/internal/cli/opportunity"
	"github.com/thenoetrevino/dealflow/internal/cli/serve"
	"github.com/thenoetrevino/dealflow/internal/cli/task"
	"github.com/thenoetrevino/dealflow/internal/cli/webhook"
)

// NewRootCmd builds the dealflow command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dealflow",
		Short: "Dealflow - a small CRM with kanban boards",
		Long: `Dealflow keeps contacts, a sales pipeline and follow-up tasks in a local
SQLite database, shows them on terminal kanban boards, and serves them over
an HTTP API with live events and signed webhooks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		contact.Cmd(),
		opportunity.Cmd(),
		task.Cmd(),
		webhook.Cmd(),
		board.Cmd(),
		chat.Cmd(),
		serve.Cmd(),
		serve.TokenCmd(),
	)
	return rootCmd
}

// Execute runs the command line against ctx
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
