package webhook

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/dealflow/internal/cli"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/models"
	webhookservice "github.com/thenoetrevino/dealflow/internal/services/webhook"
)

// Cmd returns the webhook command group
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage outbound webhooks",
		Long: `Manage outbound webhooks. Deliveries are sent by 'dealflow serve'.

Every delivery is a JSON POST signed with HMAC-SHA256 of the body, in the
X-Dealflow-Signature header as "sha256=<hex>".`,
	}
	cmd.AddCommand(AddCmd(), ListCmd(), RemoveCmd(), EnableCmd(), DisableCmd(), DeliveriesCmd())
	return cmd
}

// AddCmd returns the webhook add subcommand
func AddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Subscribe a URL to CRM events",
		Long: fmt.Sprintf(`Subscribe a URL to CRM events. The signing secret is printed once.

Event types: %s, or * for all.

Examples:
  dealflow webhook add --url https://hooks.example.com/crm --events opportunity.moved,task.moved
`, eventList()),
		Args: cobra.NoArgs,
		RunE: cli.RunE(runAdd),
	}
	cmd.Flags().String("url", "", "Receiver URL (required)")
	_ = cmd.MarkFlagRequired("url")
	cmd.Flags().StringSlice("events", []string{"*"}, "Event types to deliver")
	cmd.Flags().String("secret", "", "Signing secret (generated when empty)")
	cli.AddOutputFlags(cmd)
	return cmd
}

func eventList() string {
	types := events.AllTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// createdWebhook shows the secret, which models.Webhook never serializes
type createdWebhook struct {
	*models.Webhook
	Secret string `json:"secret"`
}

func runAdd(cmd *cobra.Command, _ []string, c *cli.CLI, f *cli.OutputFormatter) error {
	req := webhookservice.CreateWebhookRequest{}
	req.URL, _ = cmd.Flags().GetString("url")
	req.Events, _ = cmd.Flags().GetStringSlice("events")
	req.Secret, _ = cmd.Flags().GetString("secret")

	hook, err := c.App.WebhookService.CreateWebhook(cmd.Context(), req)
	if err != nil {
		return f.Fail(0, "WEBHOOK_CREATE_ERROR", err, "")
	}
	return f.Print(createdWebhook{Webhook: hook, Secret: hook.Secret}, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Added webhook %d → %s\n", hook.ID, hook.URL)
		fmt.Fprintf(w, "  Events: %s\n", strings.Join(hook.Events, ", "))
		fmt.Fprintf(w, "  Secret: %s\n", hook.Secret)
		fmt.Fprintln(w, "  Store the secret now; it is not shown again.")
		return nil
	})
}

// ListCmd returns the webhook list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List webhooks",
		Args:  cobra.NoArgs,
		RunE:  cli.RunE(runList),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runList(cmd *cobra.Command, _ []string, c *cli.CLI, f *cli.OutputFormatter) error {
	hooks, err := c.App.WebhookService.ListWebhooks(cmd.Context())
	if err != nil {
		return f.Fail(0, "WEBHOOK_LIST_ERROR", err, "")
	}
	ids := make([]int, len(hooks))
	rows := make([][]string, len(hooks))
	for i, h := range hooks {
		ids[i] = h.ID
		active := "yes"
		if !h.Active {
			active = "no"
		}
		rows[i] = []string{strconv.Itoa(h.ID), h.URL, strings.Join(h.Events, ","), active}
	}
	return f.List(hooks, ids, []string{"ID", "URL", "EVENTS", "ACTIVE"}, rows)
}

// RemoveCmd returns the webhook remove subcommand
func RemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove a webhook and its delivery log",
		Args:    cobra.ExactArgs(1),
		RunE:    cli.RunE(runRemove),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runRemove(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	id, err := cli.ParseID("webhook", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	if err := c.App.WebhookService.DeleteWebhook(cmd.Context(), id); err != nil {
		return f.Fail(0, "WEBHOOK_DELETE_ERROR", err, "Use 'dealflow webhook list' to see webhooks")
	}
	return f.Print(map[string]any{"id": id, "deleted": true}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Removed webhook %d\n", id)
		return err
	})
}

// EnableCmd returns the webhook enable subcommand
func EnableCmd() *cobra.Command {
	return activeCmd("enable", true)
}

// DisableCmd returns the webhook disable subcommand
func DisableCmd() *cobra.Command {
	return activeCmd("disable", false)
}

func activeCmd(name string, active bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " <id>",
		Short: strings.ToUpper(name[:1]) + name[1:] + " delivery to a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: cli.RunE(func(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
			id, err := cli.ParseID("webhook", args[0])
			if err != nil {
				return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
			}
			if err := c.App.WebhookService.SetActive(cmd.Context(), id, active); err != nil {
				return f.Fail(0, "WEBHOOK_UPDATE_ERROR", err, "")
			}
			hook, err := c.App.WebhookService.GetWebhook(cmd.Context(), id)
			if err != nil {
				return f.Fail(0, "WEBHOOK_NOT_FOUND", err, "")
			}
			return f.Print(hook, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "✓ Webhook %d %sd\n", id, name)
				return err
			})
		}),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

// DeliveriesCmd returns the webhook deliveries subcommand
func DeliveriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deliveries <id>",
		Short: "Show the delivery log of a webhook, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.RunE(runDeliveries),
	}
	cmd.Flags().Int("limit", 20, "Number of deliveries to show")
	cli.AddOutputFlags(cmd)
	return cmd
}

func runDeliveries(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	id, err := cli.ParseID("webhook", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	deliveries, err := c.App.WebhookService.ListDeliveries(cmd.Context(), id, limit)
	if err != nil {
		return f.Fail(0, "WEBHOOK_DELIVERIES_ERROR", err, "")
	}

	rows := make([][]string, len(deliveries))
	for i, d := range deliveries {
		result := strconv.Itoa(d.StatusCode)
		if d.Error != "" {
			result = d.Error
		}
		if d.Succeeded() {
			result = "✓ " + result
		} else {
			result = "✗ " + result
		}
		rows[i] = []string{
			humanize.Time(d.CreatedAt),
			d.EventType,
			result,
			(time.Duration(d.DurationMs) * time.Millisecond).String(),
		}
	}
	// Delivery ids are uuids, so quiet mode has nothing numeric to print
	return f.List(deliveries, nil, []string{"WHEN", "EVENT", "RESULT", "DURATION"}, rows)
}
