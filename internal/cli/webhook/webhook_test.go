package webhook

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/dealflow/internal/cli"
	"github.com/thenoetrevino/dealflow/internal/models"
	webhookservice "github.com/thenoetrevino/dealflow/internal/services/webhook"
	testutilcli "github.com/thenoetrevino/dealflow/internal/testutil/cli"
)

func TestAddWebhookCommand(t *testing.T) {
	_, app := testutilcli.SetupCLITest(t)

	t.Run("json shows the secret once", func(t *testing.T) {
		res, err := testutilcli.ExecuteCLICommand(t, app, AddCmd(), []string{
			"--url", "https://hooks.example.com/crm",
			"--events", "opportunity.moved,task.moved",
			"--secret", "s3cret",
			"--json",
		})
		require.NoError(t, err, res.Stdout)

		var envelope struct {
			Data struct {
				ID     int      `json:"id"`
				URL    string   `json:"url"`
				Events []string `json:"events"`
				Secret string   `json:"secret"`
			} `json:"data"`
		}
		require.NoError(t, sonic.Unmarshal([]byte(res.Stdout), &envelope))
		assert.Equal(t, "s3cret", envelope.Data.Secret)
		assert.Equal(t, []string{"opportunity.moved", "task.moved"}, envelope.Data.Events)

		res, err = testutilcli.ExecuteCLICommand(t, app, ListCmd(), []string{"--json"})
		require.NoError(t, err)
		assert.NotContains(t, res.Stdout, "s3cret")
	})

	t.Run("generated secret in human output", func(t *testing.T) {
		res, err := testutilcli.ExecuteCLICommand(t, app, AddCmd(), []string{"--url", "https://hooks.example.com/all"})
		require.NoError(t, err)
		assert.Contains(t, res.Stdout, "✓ Added webhook")
		assert.Contains(t, res.Stdout, "Events: *")
		assert.Contains(t, res.Stdout, "Secret: ")
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := testutilcli.ExecuteCLICommand(t, app, AddCmd(), []string{"--url", "ftp://nope"})
		require.Error(t, err)
		assert.ErrorIs(t, err, webhookservice.ErrInvalidURL)
		assert.Equal(t, cli.ExitValidation, cli.ExitCode(err))
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := testutilcli.ExecuteCLICommand(t, app, AddCmd(), []string{"--url", "https://x.example", "--events", "deal.closed"})
		require.Error(t, err)
		assert.ErrorIs(t, err, webhookservice.ErrUnknownEvent)
	})
}

func TestEnableDisableRemoveCommands(t *testing.T) {
	_, app := testutilcli.SetupCLITest(t)
	ctx := context.Background()
	hook, err := app.WebhookService.CreateWebhook(ctx, webhookservice.CreateWebhookRequest{URL: "https://x.example", Events: []string{"*"}})
	require.NoError(t, err)
	id := strconv.Itoa(hook.ID)

	res, err := testutilcli.ExecuteCLICommand(t, app, DisableCmd(), []string{id})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "✓ Webhook "+id+" disabled")
	got, err := app.WebhookService.GetWebhook(ctx, hook.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = testutilcli.ExecuteCLICommand(t, app, EnableCmd(), []string{id})
	require.NoError(t, err)
	got, err = app.WebhookService.GetWebhook(ctx, hook.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	res, err = testutilcli.ExecuteCLICommand(t, app, ListCmd(), []string{"--quiet"})
	require.NoError(t, err)
	assert.Equal(t, id, strings.TrimSpace(res.Stdout))

	_, err = testutilcli.ExecuteCLICommand(t, app, RemoveCmd(), []string{id})
	require.NoError(t, err)
	_, err = testutilcli.ExecuteCLICommand(t, app, RemoveCmd(), []string{id})
	require.Error(t, err)
	assert.Equal(t, cli.ExitNotFound, cli.ExitCode(err))
}

func TestDeliveriesCommand(t *testing.T) {
	_, app := testutilcli.SetupCLITest(t)
	ctx := context.Background()
	hook, err := app.WebhookService.CreateWebhook(ctx, webhookservice.CreateWebhookRequest{URL: "https://x.example", Events: []string{"*"}})
	require.NoError(t, err)

	require.NoError(t, app.Repo().RecordDelivery(ctx, &models.WebhookDelivery{
		ID: "d1", WebhookID: hook.ID, EventType: "task.moved", StatusCode: 200, DurationMs: 12,
	}))
	require.NoError(t, app.Repo().RecordDelivery(ctx, &models.WebhookDelivery{
		ID: "d2", WebhookID: hook.ID, EventType: "contact.created", Error: "connection refused", DurationMs: 3,
	}))

	res, err := testutilcli.ExecuteCLICommand(t, app, DeliveriesCmd(), []string{strconv.Itoa(hook.ID)})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "✓ 200")
	assert.Contains(t, res.Stdout, "✗ connection refused")
	assert.Contains(t, res.Stdout, "12ms")

	res, err = testutilcli.ExecuteCLICommand(t, app, DeliveriesCmd(), []string{strconv.Itoa(hook.ID), "--limit", "1", "--json"})
	require.NoError(t, err)
	var envelope struct {
		Data []models.WebhookDelivery `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal([]byte(res.Stdout), &envelope))
	assert.Len(t, envelope.Data, 1)
}
