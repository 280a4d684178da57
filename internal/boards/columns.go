// Package boards binds the generic kanban board to the CRM: the opportunity
// pipeline (one column per stage) and the task board (one column per status).
package boards

import (
	"strconv"

	"github.com/thenoetrevino/dealflow/internal/kanban"
	"github.com/thenoetrevino/dealflow/internal/models"
)

// OpportunityColumns maps pipeline stages to board columns
func OpportunityColumns(stages []*models.Stage) []kanban.Column {
	cols := make([]kanban.Column, 0, len(stages))
	for _, s := range stages {
		cols = append(cols, kanban.Column{
			ID:        StageColumnID(s.ID),
			Name:      s.Name,
			Color:     s.Color,
			SortOrder: s.SortOrder,
		})
	}
	return cols
}

// TaskColumns maps the fixed task statuses to board columns
func TaskColumns() []kanban.Column {
	statuses := models.TaskStatuses()
	cols := make([]kanban.Column, 0, len(statuses))
	for _, s := range statuses {
		cols = append(cols, kanban.Column{
			ID:        string(s.ID),
			Name:      s.Name,
			Color:     s.Color,
			SortOrder: s.SortOrder,
		})
	}
	return cols
}

// StageColumnID is the column id of a stage
func StageColumnID(stageID int) string {
	return strconv.Itoa(stageID)
}

// ParseStageColumnID reverses StageColumnID
func ParseStageColumnID(columnID string) (int, error) {
	return strconv.Atoi(columnID)
}
