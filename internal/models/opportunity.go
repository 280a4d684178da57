package models

import "time"

// Opportunity is a potential deal moving through the sales pipeline
type Opportunity struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	ContactID   *int      `json:"contactId,omitempty"`
	AmountCents int64     `json:"amountCents"`
	StageID     int       `json:"stageId"`
	Notes       string    `json:"notes,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GetID lets the CLI print just the id in quiet mode
func (o *Opportunity) GetID() int {
	return o.ID
}

// OpportunitySummary is a DTO for displaying opportunities on the pipeline board
type OpportunitySummary struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ContactName string `json:"contactName,omitempty"`
	AmountCents int64  `json:"amountCents"`
	StageID     int    `json:"stageId"`
	Position    int    `json:"position"`
}
