package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/models"
)

// SetupTestDB creates an in-memory database with the full schema and the
// default pipeline stages
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SetupTestRepo wraps SetupTestDB in a Repository
func SetupTestRepo(t *testing.T) *database.Repository {
	t.Helper()
	return database.NewRepository(SetupTestDB(t))
}

// Stages returns the seeded pipeline stages in board order
func Stages(t *testing.T, repo database.StageRepository) []*models.Stage {
	t.Helper()
	stages, err := repo.ListStages(context.Background())
	if err != nil {
		t.Fatalf("Failed to list stages: %v", err)
	}
	return stages
}

// CreateTestContact inserts a contact and returns it
func CreateTestContact(t *testing.T, repo database.ContactRepository, first, last string) *models.Contact {
	t.Helper()
	c, err := repo.CreateContact(context.Background(), &models.Contact{FirstName: first, LastName: last})
	if err != nil {
		t.Fatalf("Failed to create contact: %v", err)
	}
	return c
}

// CreateTestOpportunity inserts an opportunity into a stage and returns it
func CreateTestOpportunity(t *testing.T, repo database.OpportunityRepository, title string, stageID int, amountCents int64) *models.Opportunity {
	t.Helper()
	o, err := repo.CreateOpportunity(context.Background(), &models.Opportunity{
		Title: title, StageID: stageID, AmountCents: amountCents,
	})
	if err != nil {
		t.Fatalf("Failed to create opportunity: %v", err)
	}
	return o
}

// CreateTestTask inserts a task with the given status and returns it
func CreateTestTask(t *testing.T, repo database.TaskRepository, title string, status models.TaskStatus) *models.Task {
	t.Helper()
	task, err := repo.CreateTask(context.Background(), &models.Task{Title: title, Status: status})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	return task
}
