package database

import "database/sql"

// Repository provides a unified interface to all data operations.
// It composes domain-specific repositories using struct embedding.
type Repository struct {
	*ContactRepo
	*StageRepo
	*OpportunityRepo
	*TaskRepo
	*WebhookRepo
}

// NewRepository creates a new Repository instance wrapping the given database connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		ContactRepo:     &ContactRepo{db: db},
		StageRepo:       &StageRepo{db: db},
		OpportunityRepo: &OpportunityRepo{db: db},
		TaskRepo:        &TaskRepo{db: db},
		WebhookRepo:     &WebhookRepo{db: db},
	}
}
