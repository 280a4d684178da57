package models

import "time"

// Task is a follow-up item, optionally tied to a contact or an opportunity
type Task struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Status        TaskStatus `json:"status"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	ContactID     *int       `json:"contactId,omitempty"`
	OpportunityID *int       `json:"opportunityId,omitempty"`
	Position      int        `json:"position"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// GetID lets the CLI print just the id in quiet mode
func (t *Task) GetID() int {
	return t.ID
}

// Overdue reports whether the task has a due date in the past and is not done
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.Status != TaskStatusDone && t.DueDate.Before(now)
}
