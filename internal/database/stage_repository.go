package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// StageRepo handles pipeline stage lookups.
type StageRepo struct {
	db *sql.DB
}

// ListStages returns every stage in board order
func (r *StageRepo) ListStages(ctx context.Context) ([]*models.Stage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, sort_order FROM stages ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("querying stages: %w", err)
	}
	defer rows.Close()

	var stages []*models.Stage
	for rows.Next() {
		s := &models.Stage{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Color, &s.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning stage row: %w", err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage rows: %w", err)
	}

	return stages, nil
}

// GetStage retrieves a single stage
func (r *StageRepo) GetStage(ctx context.Context, id int) (*models.Stage, error) {
	s := &models.Stage{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, color, sort_order FROM stages WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Color, &s.SortOrder)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// OpenPipelineTotals returns the number and value of opportunities per stage
func (r *StageRepo) OpenPipelineTotals(ctx context.Context) (map[int]StageTotals, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stage_id, COUNT(*), COALESCE(SUM(amount_cents), 0)
		 FROM opportunities GROUP BY stage_id`)
	if err != nil {
		return nil, fmt.Errorf("querying pipeline totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[int]StageTotals)
	for rows.Next() {
		var stageID int
		var t StageTotals
		if err := rows.Scan(&stageID, &t.Count, &t.AmountCents); err != nil {
			return nil, fmt.Errorf("scanning pipeline totals: %w", err)
		}
		totals[stageID] = t
	}
	return totals, rows.Err()
}

// StageTotals aggregates the opportunities sitting in one stage
type StageTotals struct {
	Count       int
	AmountCents int64
}
