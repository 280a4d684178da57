package opportunity

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/dealflow/internal/boards"
	"github.com/thenoetrevino/dealflow/internal/cli"
	"github.com/thenoetrevino/dealflow/internal/models"
	opportunityservice "github.com/thenoetrevino/dealflow/internal/services/opportunity"
)

// Cmd returns the opportunity command group
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "opportunity",
		Aliases: []string{"opp", "deal"},
		Short:   "Manage pipeline opportunities",
	}
	cmd.AddCommand(CreateCmd(), ListCmd(), ShowCmd(), MoveCmd(), DeleteCmd(), StagesCmd())
	return cmd
}

// resolveStage finds a stage by id or case-insensitive name
func resolveStage(ctx context.Context, svc opportunityservice.Service, arg string) (*models.Stage, error) {
	stages, err := svc.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	id, idErr := strconv.Atoi(arg)
	names := make([]string, 0, len(stages))
	for _, st := range stages {
		if (idErr == nil && st.ID == id) || strings.EqualFold(st.Name, arg) {
			return st, nil
		}
		names = append(names, st.Name)
	}
	return nil, fmt.Errorf("stage %q: %w (available: %s)", arg, models.ErrNotFound, strings.Join(names, ", "))
}

// CreateCmd returns the opportunity create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new opportunity",
		Long: `Create a new opportunity. New opportunities go to the end of their stage.

Examples:
  dealflow opportunity create --title "Acme renewal" --amount 12,500
  dealflow opportunity create --title "Globex pilot" --stage Proposal --contact 3 --quiet
`,
		Args: cobra.NoArgs,
		RunE: cli.RunE(runCreate),
	}
	cmd.Flags().String("title", "", "Opportunity title (required)")
	_ = cmd.MarkFlagRequired("title")
	cmd.Flags().String("amount", "0", "Deal amount, e.g. 1250 or 1,250.50")
	cmd.Flags().String("stage", "", "Stage name or id (defaults to the first stage)")
	cmd.Flags().Int("contact", 0, "Linked contact id")
	cmd.Flags().String("notes", "", "Free-form notes")
	cli.AddOutputFlags(cmd)
	return cmd
}

func runCreate(cmd *cobra.Command, _ []string, c *cli.CLI, f *cli.OutputFormatter) error {
	ctx := cmd.Context()
	svc := c.App.OpportunityService

	req := opportunityservice.CreateOpportunityRequest{}
	req.Title, _ = cmd.Flags().GetString("title")
	req.Notes, _ = cmd.Flags().GetString("notes")

	amount, _ := cmd.Flags().GetString("amount")
	cents, err := cli.ParseAmount(amount)
	if err != nil {
		return f.Fail(cli.ExitDataErr, "INVALID_AMOUNT", err, "")
	}
	req.AmountCents = cents

	if stageArg, _ := cmd.Flags().GetString("stage"); stageArg != "" {
		stage, err := resolveStage(ctx, svc, stageArg)
		if err != nil {
			return f.Fail(0, "STAGE_NOT_FOUND", err, "Use 'dealflow opportunity stages' to list stages")
		}
		req.StageID = stage.ID
	}
	if contactID, _ := cmd.Flags().GetInt("contact"); contactID > 0 {
		req.ContactID = &contactID
	}

	created, err := svc.CreateOpportunity(ctx, req)
	if err != nil {
		return f.Fail(0, "OPPORTUNITY_CREATE_ERROR", err, "")
	}
	return f.Print(created, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Created opportunity %d: %s (%s)\n",
			created.ID, created.Title, boards.FormatCents(created.AmountCents))
		return err
	})
}

// ListCmd returns the opportunity list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List opportunities in a stage",
		Long:  "List opportunities in a stage in board order. Without --stage every stage is listed.",
		Args:  cobra.NoArgs,
		RunE:  cli.RunE(runList),
	}
	cmd.Flags().String("stage", "", "Stage name or id")
	cmd.Flags().StringP("query", "q", "", "Filter by title or contact name")
	cmd.Flags().Int("page", 1, "Page number (1-based)")
	cmd.Flags().Int("page-size", models.DefaultPageSize, "Opportunities per page")
	cli.AddOutputFlags(cmd)
	return cmd
}

func runList(cmd *cobra.Command, _ []string, c *cli.CLI, f *cli.OutputFormatter) error {
	ctx := cmd.Context()
	svc := c.App.OpportunityService
	query, _ := cmd.Flags().GetString("query")
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	var stages []*models.Stage
	if stageArg, _ := cmd.Flags().GetString("stage"); stageArg != "" {
		stage, err := resolveStage(ctx, svc, stageArg)
		if err != nil {
			return f.Fail(0, "STAGE_NOT_FOUND", err, "Use 'dealflow opportunity stages' to list stages")
		}
		stages = []*models.Stage{stage}
	} else {
		all, err := svc.ListStages(ctx)
		if err != nil {
			return f.Fail(0, "STAGE_LIST_ERROR", err, "")
		}
		stages = all
	}

	var (
		items []*models.OpportunitySummary
		ids   []int
		rows  [][]string
	)
	for _, stage := range stages {
		result, err := svc.ListByStage(ctx, stage.ID, query, page, pageSize)
		if err != nil {
			return f.Fail(0, "OPPORTUNITY_LIST_ERROR", err, "")
		}
		for _, o := range result.Items {
			items = append(items, o)
			ids = append(ids, o.ID)
			rows = append(rows, []string{
				strconv.Itoa(o.ID), o.Title, stage.Name, o.ContactName, boards.FormatCents(o.AmountCents),
			})
		}
	}
	return f.List(items, ids, []string{"ID", "TITLE", "STAGE", "CONTACT", "AMOUNT"}, rows)
}

// ShowCmd returns the opportunity show subcommand
func ShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one opportunity",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.RunE(runShow),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runShow(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	id, err := cli.ParseID("opportunity", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	o, err := c.App.OpportunityService.GetOpportunity(cmd.Context(), id)
	if err != nil {
		return f.Fail(0, "OPPORTUNITY_NOT_FOUND", err, "Use 'dealflow opportunity list' to see opportunities")
	}
	stageName := strconv.Itoa(o.StageID)
	if stage, err := resolveStage(cmd.Context(), c.App.OpportunityService, stageName); err == nil {
		stageName = stage.Name
	}
	return f.Print(o, func(w io.Writer) error {
		fmt.Fprintf(w, "Opportunity #%d: %s\n", o.ID, o.Title)
		fmt.Fprintf(w, "  Stage:   %s\n", stageName)
		fmt.Fprintf(w, "  Amount:  %s\n", boards.FormatCents(o.AmountCents))
		if o.ContactID != nil {
			fmt.Fprintf(w, "  Contact: #%d\n", *o.ContactID)
		}
		if o.Notes != "" {
			fmt.Fprintf(w, "  Notes:   %s\n", o.Notes)
		}
		return nil
	})
}

// MoveCmd returns the opportunity move subcommand
func MoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move an opportunity to another stage",
		Long: `Move an opportunity to the end of another stage.

Examples:
  dealflow opportunity move 12 Won
  dealflow opportunity move 12 3
`,
		Args: cobra.ExactArgs(2),
		RunE: cli.RunE(runMove),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runMove(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	ctx := cmd.Context()
	svc := c.App.OpportunityService

	id, err := cli.ParseID("opportunity", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	stage, err := resolveStage(ctx, svc, args[1])
	if err != nil {
		return f.Fail(0, "STAGE_NOT_FOUND", err, "Use 'dealflow opportunity stages' to list stages")
	}
	if err := svc.MoveOpportunity(ctx, id, stage.ID); err != nil {
		return f.Fail(0, "OPPORTUNITY_MOVE_ERROR", err, "")
	}
	moved, err := svc.GetOpportunity(ctx, id)
	if err != nil {
		return f.Fail(0, "OPPORTUNITY_NOT_FOUND", err, "")
	}
	return f.Print(moved, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Moved opportunity %d to %s\n", id, stage.Name)
		return err
	})
}

// DeleteCmd returns the opportunity delete subcommand
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an opportunity",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.RunE(runDelete),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runDelete(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	id, err := cli.ParseID("opportunity", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	if err := c.App.OpportunityService.DeleteOpportunity(cmd.Context(), id); err != nil {
		return f.Fail(0, "OPPORTUNITY_DELETE_ERROR", err, "")
	}
	return f.Print(map[string]any{"id": id, "deleted": true}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Deleted opportunity %d\n", id)
		return err
	})
}

// StagesCmd returns the subcommand listing pipeline stages with totals
func StagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List pipeline stages with open deal totals",
		Args:  cobra.NoArgs,
		RunE:  cli.RunE(runStages),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runStages(cmd *cobra.Command, _ []string, c *cli.CLI, f *cli.OutputFormatter) error {
	ctx := cmd.Context()
	svc := c.App.OpportunityService

	stages, err := svc.ListStages(ctx)
	if err != nil {
		return f.Fail(0, "STAGE_LIST_ERROR", err, "")
	}
	totals, err := svc.PipelineTotals(ctx)
	if err != nil {
		return f.Fail(0, "STAGE_LIST_ERROR", err, "")
	}

	ids := make([]int, len(stages))
	rows := make([][]string, len(stages))
	for i, st := range stages {
		ids[i] = st.ID
		t := totals[st.ID]
		rows[i] = []string{strconv.Itoa(st.ID), st.Name, strconv.Itoa(t.Count), boards.FormatCents(t.AmountCents)}
	}
	return f.List(stages, ids, []string{"ID", "STAGE", "DEALS", "AMOUNT"}, rows)
}
