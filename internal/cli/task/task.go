package task

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/dealflow/internal/cli"
	"github.com/thenoetrevino/dealflow/internal/models"
	taskservice "github.com/thenoetrevino/dealflow/internal/services/task"
)

const dateLayout = "2006-01-02"

// Cmd returns the task command group
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage follow-up tasks",
	}
	cmd.AddCommand(CreateCmd(), ListCmd(), ShowCmd(), MoveCmd(), DeleteCmd())
	return cmd
}

// ParseStatus accepts a status id or display name: "in_progress",
// "in-progress" and "In Progress" are the same status
func ParseStatus(s string) (models.TaskStatus, error) {
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	status := models.TaskStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("%w %q (must be: todo, in_progress, done)", taskservice.ErrInvalidStatus, s)
	}
	return status, nil
}

func statusName(s models.TaskStatus) string {
	for _, info := range models.TaskStatuses() {
		if info.ID == s {
			return info.Name
		}
	}
	return string(s)
}

func formatDue(t *models.Task) string {
	if t.DueDate == nil {
		return ""
	}
	due := t.DueDate.Format(dateLayout) + " (" + humanize.Time(*t.DueDate) + ")"
	if t.Overdue(time.Now()) {
		due += " overdue"
	}
	return due
}

// CreateCmd returns the task create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new task",
		Long: `Create a new task.

Examples:
  dealflow task create --title "Call Ada" --due 2026-11-02 --contact 3
  TASK_ID=$(dealflow task create --title "Send proposal" --opportunity 7 --quiet)
`,
		Args: cobra.NoArgs,
		RunE: cli.RunE(runCreate),
	}
	cmd.Flags().String("title", "", "Task title (required)")
	_ = cmd.MarkFlagRequired("title")
	cmd.Flags().String("description", "", "Task description")
	cmd.Flags().String("status", string(models.TaskStatusTodo), "Status: todo, in_progress, done")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().Int("contact", 0, "Linked contact id")
	cmd.Flags().Int("opportunity", 0, "Linked opportunity id")
	cli.AddOutputFlags(cmd)
	return cmd
}

func runCreate(cmd *cobra.Command, _ []string, c *cli.CLI, f *cli.OutputFormatter) error {
	req := taskservice.CreateTaskRequest{}
	req.Title, _ = cmd.Flags().GetString("title")
	req.Description, _ = cmd.Flags().GetString("description")

	statusArg, _ := cmd.Flags().GetString("status")
	status, err := ParseStatus(statusArg)
	if err != nil {
		return f.Fail(cli.ExitValidation, "INVALID_STATUS", err, "")
	}
	req.Status = status

	if due, _ := cmd.Flags().GetString("due"); due != "" {
		d, err := time.ParseInLocation(dateLayout, due, time.Local)
		if err != nil {
			return f.Fail(cli.ExitDataErr, "INVALID_DATE", fmt.Errorf("invalid due date %q: use YYYY-MM-DD", due), "")
		}
		req.DueDate = &d
	}
	if id, _ := cmd.Flags().GetInt("contact"); id > 0 {
		req.ContactID = &id
	}
	if id, _ := cmd.Flags().GetInt("opportunity"); id > 0 {
		req.OpportunityID = &id
	}

	created, err := c.App.TaskService.CreateTask(cmd.Context(), req)
	if err != nil {
		return f.Fail(0, "TASK_CREATE_ERROR", err, "")
	}
	return f.Print(created, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Created task %d: %s\n", created.ID, created.Title)
		return err
	})
}

// ListCmd returns the task list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by status",
		Long:  "List tasks in board order. Without --status every status is listed.",
		Args:  cobra.NoArgs,
		RunE:  cli.RunE(runList),
	}
	cmd.Flags().String("status", "", "Status: todo, in_progress, done")
	cmd.Flags().StringP("query", "q", "", "Filter by title or description")
	cmd.Flags().Int("page", 1, "Page number (1-based)")
	cmd.Flags().Int("page-size", models.DefaultPageSize, "Tasks per page")
	cli.AddOutputFlags(cmd)
	return cmd
}

func runList(cmd *cobra.Command, _ []string, c *cli.CLI, f *cli.OutputFormatter) error {
	ctx := cmd.Context()
	query, _ := cmd.Flags().GetString("query")
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	var statuses []models.TaskStatus
	if arg, _ := cmd.Flags().GetString("status"); arg != "" {
		status, err := ParseStatus(arg)
		if err != nil {
			return f.Fail(cli.ExitValidation, "INVALID_STATUS", err, "")
		}
		statuses = []models.TaskStatus{status}
	} else {
		for _, info := range c.App.TaskService.ListStatuses() {
			statuses = append(statuses, info.ID)
		}
	}

	var (
		items []*models.Task
		ids   []int
		rows  [][]string
	)
	for _, status := range statuses {
		result, err := c.App.TaskService.ListByStatus(ctx, status, query, page, pageSize)
		if err != nil {
			return f.Fail(0, "TASK_LIST_ERROR", err, "")
		}
		for _, t := range result.Items {
			items = append(items, t)
			ids = append(ids, t.ID)
			rows = append(rows, []string{strconv.Itoa(t.ID), t.Title, statusName(t.Status), formatDue(t)})
		}
	}
	return f.List(items, ids, []string{"ID", "TITLE", "STATUS", "DUE"}, rows)
}

// ShowCmd returns the task show subcommand
func ShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.RunE(runShow),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runShow(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	id, err := cli.ParseID("task", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	t, err := c.App.TaskService.GetTask(cmd.Context(), id)
	if err != nil {
		return f.Fail(0, "TASK_NOT_FOUND", err, "Use 'dealflow task list' to see tasks")
	}
	return f.Print(t, func(w io.Writer) error {
		fmt.Fprintf(w, "Task #%d: %s\n", t.ID, t.Title)
		fmt.Fprintf(w, "  Status: %s\n", statusName(t.Status))
		if due := formatDue(t); due != "" {
			fmt.Fprintf(w, "  Due:    %s\n", due)
		}
		if t.ContactID != nil {
			fmt.Fprintf(w, "  Contact: #%d\n", *t.ContactID)
		}
		if t.OpportunityID != nil {
			fmt.Fprintf(w, "  Opportunity: #%d\n", *t.OpportunityID)
		}
		if t.Description != "" {
			fmt.Fprintf(w, "\n%s\n", t.Description)
		}
		return nil
	})
}

// MoveCmd returns the task move subcommand
func MoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another status",
		Long: `Move a task to the end of another status column.

Examples:
  dealflow task move 4 in_progress
  dealflow task move 4 done
`,
		Args: cobra.ExactArgs(2),
		RunE: cli.RunE(runMove),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runMove(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	ctx := cmd.Context()
	id, err := cli.ParseID("task", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	status, err := ParseStatus(args[1])
	if err != nil {
		return f.Fail(cli.ExitValidation, "INVALID_STATUS", err, "")
	}
	if err := c.App.TaskService.MoveTask(ctx, id, status); err != nil {
		return f.Fail(0, "TASK_MOVE_ERROR", err, "")
	}
	moved, err := c.App.TaskService.GetTask(ctx, id)
	if err != nil {
		return f.Fail(0, "TASK_NOT_FOUND", err, "")
	}
	return f.Print(moved, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Moved task %d to %s\n", id, statusName(status))
		return err
	})
}

// DeleteCmd returns the task delete subcommand
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.RunE(runDelete),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runDelete(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	id, err := cli.ParseID("task", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	if err := c.App.TaskService.DeleteTask(cmd.Context(), id); err != nil {
		return f.Fail(0, "TASK_DELETE_ERROR", err, "")
	}
	return f.Print(map[string]any{"id": id, "deleted": true}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Deleted task %d\n", id)
		return err
	})
}
