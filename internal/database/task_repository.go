package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// TaskRepo handles all task-related database operations.
type TaskRepo struct {
	db *sql.DB
}

const taskColumns = `id, title, description, status, due_date, contact_id, opportunity_id, position, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	t := &models.Task{}
	var status string
	var due sql.NullTime
	var contactID, opportunityID sql.NullInt64
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status, &due, &contactID, &opportunityID,
		&t.Position, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	t.ContactID = nullInt64ToPtr(contactID)
	t.OpportunityID = nullInt64ToPtr(opportunityID)
	return t, nil
}

func dueDateArg(due *models.Task) sql.NullTime {
	if due.DueDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: due.DueDate.UTC(), Valid: true}
}

// CreateTask appends a new task to the end of its status column
func (r *TaskRepo) CreateTask(ctx context.Context, t *models.Task) (*models.Task, error) {
	var id int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		pos, err := nextPosition(ctx, tx, "tasks", "status", string(t.Status))
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (title, description, status, due_date, contact_id, opportunity_id, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.Title, t.Description, string(t.Status), dueDateArg(t),
			ptrToNullInt64(t.ContactID), ptrToNullInt64(t.OpportunityID), pos,
		)
		if err != nil {
			return fmt.Errorf("inserting task: %w", err)
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	return r.GetTask(ctx, int(id))
}

// GetTask retrieves a single task
func (r *TaskRepo) GetTask(ctx context.Context, id int) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// UpdateTask overwrites the editable fields of a task. The status is changed
// through MoveTask only.
func (r *TaskRepo) UpdateTask(ctx context.Context, t *models.Task) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET title = ?, description = ?, due_date = ?, contact_id = ?, opportunity_id = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		t.Title, t.Description, dueDateArg(t),
		ptrToNullInt64(t.ContactID), ptrToNullInt64(t.OpportunityID), t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %d: %w", t.ID, err)
	}
	return requireAffected(result)
}

// MoveTask changes a task's status, appending it to the end of the new column.
// It returns the status the task came from.
func (r *TaskRepo) MoveTask(ctx context.Context, id int, status models.TaskStatus) (models.TaskStatus, error) {
	var from string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, id).Scan(&from); err != nil {
			return notFound(err)
		}
		if models.TaskStatus(from) == status {
			return models.ErrAlreadyInColumn
		}

		pos, err := nextPosition(ctx, tx, "tasks", "status", string(status))
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), pos, id,
		)
		return err
	})
	return models.TaskStatus(from), err
}

// DeleteTask removes a task from the database
func (r *TaskRepo) DeleteTask(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	return requireAffected(result)
}

// ListTasksByStatus returns one page of a status column in board order, plus
// the total number of matches in that column
func (r *TaskRepo) ListTasksByStatus(ctx context.Context, status models.TaskStatus, query string, page, pageSize int) ([]*models.Task, int, error) {
	pattern := likePattern(query)
	const filter = `WHERE status = ? AND (? = '' OR title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks `+filter,
		string(status), pattern, pattern, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks `+filter+`
		 ORDER BY position, id
		 LIMIT ? OFFSET ?`,
		string(status), pattern, pattern, pattern, pageSize, pageOffset(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0, pageSize)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating task rows: %w", err)
	}

	return tasks, total, nil
}
