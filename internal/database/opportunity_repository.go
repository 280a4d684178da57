package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// OpportunityRepo handles all opportunity-related database operations.
type OpportunityRepo struct {
	db *sql.DB
}

const opportunityColumns = `id, title, contact_id, amount_cents, stage_id, notes, position, created_at, updated_at`

func scanOpportunity(row interface{ Scan(...any) error }) (*models.Opportunity, error) {
	o := &models.Opportunity{}
	var contactID sql.NullInt64
	if err := row.Scan(
		&o.ID, &o.Title, &contactID, &o.AmountCents, &o.StageID, &o.Notes,
		&o.Position, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.ContactID = nullInt64ToPtr(contactID)
	return o, nil
}

// CreateOpportunity appends a new opportunity to the end of its stage
func (r *OpportunityRepo) CreateOpportunity(ctx context.Context, o *models.Opportunity) (*models.Opportunity, error) {
	var id int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		pos, err := nextPosition(ctx, tx, "opportunities", "stage_id", o.StageID)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO opportunities (title, contact_id, amount_cents, stage_id, notes, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			o.Title, ptrToNullInt64(o.ContactID), o.AmountCents, o.StageID, o.Notes, pos,
		)
		if err != nil {
			return fmt.Errorf("inserting opportunity: %w", err)
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	return r.GetOpportunity(ctx, int(id))
}

// GetOpportunity retrieves a single opportunity
func (r *OpportunityRepo) GetOpportunity(ctx context.Context, id int) (*models.Opportunity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities WHERE id = ?`, id)
	o, err := scanOpportunity(row)
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

// UpdateOpportunity overwrites title, contact, amount and notes. The stage is
// changed through MoveOpportunity only.
func (r *OpportunityRepo) UpdateOpportunity(ctx context.Context, o *models.Opportunity) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE opportunities
		 SET title = ?, contact_id = ?, amount_cents = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		o.Title, ptrToNullInt64(o.ContactID), o.AmountCents, o.Notes, o.ID,
	)
	if err != nil {
		return fmt.Errorf("updating opportunity %d: %w", o.ID, err)
	}
	return requireAffected(result)
}

// MoveOpportunity reassigns an opportunity to stageID, appending it to the end
// of that stage. It returns the stage the opportunity came from.
func (r *OpportunityRepo) MoveOpportunity(ctx context.Context, id, stageID int) (int, error) {
	var fromStage int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT stage_id FROM opportunities WHERE id = ?`, id,
		).Scan(&fromStage); err != nil {
			return notFound(err)
		}
		if fromStage == stageID {
			return models.ErrAlreadyInColumn
		}

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM stages WHERE id = ?`, stageID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("stage %d: %w", stageID, ErrNotFound)
		}

		pos, err := nextPosition(ctx, tx, "opportunities", "stage_id", stageID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE opportunities SET stage_id = ?, position = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			stageID, pos, id,
		)
		return err
	})
	return fromStage, err
}

// DeleteOpportunity removes an opportunity
func (r *OpportunityRepo) DeleteOpportunity(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM opportunities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting opportunity %d: %w", id, err)
	}
	return requireAffected(result)
}

// ListOpportunitiesByStage returns one page of a stage's opportunities in board
// order, plus the total number of matches in that stage
func (r *OpportunityRepo) ListOpportunitiesByStage(ctx context.Context, stageID int, query string, page, pageSize int) ([]*models.OpportunitySummary, int, error) {
	pattern := likePattern(query)
	const filter = `WHERE o.stage_id = ? AND (? = '' OR o.title LIKE ? ESCAPE '\' OR c.first_name LIKE ? ESCAPE '\' OR c.last_name LIKE ? ESCAPE '\' OR c.company LIKE ? ESCAPE '\')`
	const from = `FROM opportunities o LEFT JOIN contacts c ON c.id = o.contact_id `

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) `+from+filter,
		stageID, pattern, pattern, pattern, pattern, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting opportunities: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT o.id, o.title, COALESCE(c.first_name, ''), COALESCE(c.last_name, ''),
		        o.amount_cents, o.stage_id, o.position `+from+filter+`
		 ORDER BY o.position, o.id
		 LIMIT ? OFFSET ?`,
		stageID, pattern, pattern, pattern, pattern, pattern, pageSize, pageOffset(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying opportunities: %w", err)
	}
	defer rows.Close()

	summaries := make([]*models.OpportunitySummary, 0, pageSize)
	for rows.Next() {
		s := &models.OpportunitySummary{}
		var first, last string
		if err := rows.Scan(&s.ID, &s.Title, &first, &last, &s.AmountCents, &s.StageID, &s.Position); err != nil {
			return nil, 0, fmt.Errorf("scanning opportunity row: %w", err)
		}
		s.ContactName = strings.TrimSpace(first + " " + last)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating opportunity rows: %w", err)
	}

	return summaries, total, nil
}
