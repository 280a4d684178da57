package database

import (
	"context"
	"database/sql"

	"github.com/thenoetrevino/dealflow/internal/models"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(last_name, first_name)`,

	`CREATE TABLE IF NOT EXISTS stages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		sort_order INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS opportunities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		contact_id INTEGER,
		amount_cents INTEGER NOT NULL DEFAULT 0,
		stage_id INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE SET NULL,
		FOREIGN KEY (stage_id) REFERENCES stages(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_stage ON opportunities(stage_id, position)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		due_date DATETIME,
		contact_id INTEGER,
		opportunity_id INTEGER,
		position INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE SET NULL,
		FOREIGN KEY (opportunity_id) REFERENCES opportunities(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, position)`,

	`CREATE TABLE IF NOT EXISTS webhooks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		secret TEXT NOT NULL DEFAULT '',
		events TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS webhook_deliveries (
		id TEXT PRIMARY KEY,
		webhook_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (webhook_id) REFERENCES webhooks(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_hook ON webhook_deliveries(webhook_id, created_at)`,
}

// runMigrations creates the database schema and seeds default data if needed
func runMigrations(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return seedDefaultStages(ctx, db)
}

// seedDefaultStages inserts the default pipeline if the stages table is empty
func seedDefaultStages(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stages").Scan(&count); err != nil {
		return err
	}

	// If stages exist, don't seed
	if count > 0 {
		return nil
	}

	return withTx(ctx, db, func(tx *sql.Tx) error {
		for _, stage := range models.DefaultStages {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO stages (name, color, sort_order) VALUES (?, ?, ?)",
				stage.Name, stage.Color, stage.SortOrder,
			); err != nil {
				return err
			}
		}
		return nil
	})
}
