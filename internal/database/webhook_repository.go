package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// WebhookRepo handles webhook subscriptions and their delivery log.
type WebhookRepo struct {
	db *sql.DB
}

func scanWebhook(row interface{ Scan(...any) error }) (*models.Webhook, error) {
	w := &models.Webhook{}
	var events string
	if err := row.Scan(&w.ID, &w.URL, &w.Secret, &events, &w.Active, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.Events = splitEvents(events)
	return w, nil
}

func splitEvents(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CreateWebhook stores a new webhook subscription
func (r *WebhookRepo) CreateWebhook(ctx context.Context, w *models.Webhook) (*models.Webhook, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO webhooks (url, secret, events, active) VALUES (?, ?, ?, ?)`,
		w.URL, w.Secret, strings.Join(w.Events, ","), w.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting webhook: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetWebhook(ctx, int(id))
}

// GetWebhook retrieves a single webhook
func (r *WebhookRepo) GetWebhook(ctx context.Context, id int) (*models.Webhook, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, url, secret, events, active, created_at FROM webhooks WHERE id = ?`, id)
	w, err := scanWebhook(row)
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

// ListWebhooks returns every webhook, newest last
func (r *WebhookRepo) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, secret, events, active, created_at FROM webhooks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []*models.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning webhook row: %w", err)
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// ListActiveWebhooksForEvent returns the active webhooks subscribed to eventType
func (r *WebhookRepo) ListActiveWebhooksForEvent(ctx context.Context, eventType string) ([]*models.Webhook, error) {
	all, err := r.ListWebhooks(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*models.Webhook
	for _, w := range all {
		if w.Active && w.Matches(eventType) {
			matched = append(matched, w)
		}
	}
	return matched, nil
}

// SetWebhookActive pauses or resumes deliveries for a webhook
func (r *WebhookRepo) SetWebhookActive(ctx context.Context, id int, active bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE webhooks SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("updating webhook %d: %w", id, err)
	}
	return requireAffected(result)
}

// DeleteWebhook removes a webhook and its delivery log
func (r *WebhookRepo) DeleteWebhook(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM webhooks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting webhook %d: %w", id, err)
	}
	return requireAffected(result)
}

// RecordDelivery appends a row to the delivery log
func (r *WebhookRepo) RecordDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, webhook_id, event_type, status_code, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.WebhookID, d.EventType, d.StatusCode, d.Error, d.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("recording delivery %s: %w", d.ID, err)
	}
	return nil
}

// ListDeliveries returns the most recent deliveries for a webhook, newest first
func (r *WebhookRepo) ListDeliveries(ctx context.Context, webhookID, limit int) ([]*models.WebhookDelivery, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, webhook_id, event_type, status_code, error, duration_ms, created_at
		 FROM webhook_deliveries WHERE webhook_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		webhookID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.WebhookDelivery
	for rows.Next() {
		d := &models.WebhookDelivery{}
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.EventType, &d.StatusCode, &d.Error, &d.DurationMs, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning delivery row: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
